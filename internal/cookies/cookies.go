// Package cookies owns the auth cookie pair: the HttpOnly access-token
// cookie and the script-readable ui-hint cookie the SPA uses to render
// signed-in state without calling the API.
package cookies

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// AccessTokenCookie carries the signed access token. Never readable by
	// page script.
	AccessTokenCookie = "access-token"
	// UIHintCookie carries a non-authoritative display payload for the SPA.
	UIHintCookie = "ui-hint"
)

// UIHint is the ui-hint cookie payload. Exp is epoch seconds of the access
// token expiry so the SPA can schedule a refresh.
type UIHint struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
	Exp  int64  `json:"exp"`
}

// Manager writes and clears the auth cookie pair with one consistent set of
// attributes. Secure is off only for local runs.
type Manager struct {
	secure bool
}

func NewManager(secure bool) *Manager {
	return &Manager{secure: secure}
}

// SetAccessToken installs the access-token cookie with a lifetime matching
// the token's.
func (m *Manager) SetAccessToken(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetUIHint installs the ui-hint cookie: base64url JSON, no padding, so the
// value survives cookie encoding untouched.
func (m *Manager) SetUIHint(w http.ResponseWriter, hint UIHint, ttl time.Duration) error {
	raw, err := json.Marshal(hint)
	if err != nil {
		return fmt.Errorf("encode ui hint: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     UIHintCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: false,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires both auth cookies. Attributes must match the set path or
// browsers keep the originals.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UIHintCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadAccessToken returns the raw access token from the request, or the
// empty string when the cookie is absent.
func ReadAccessToken(r *http.Request) string {
	c, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
