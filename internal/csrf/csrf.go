// Package csrf implements double-submit CSRF protection. Verify rejects
// state-changing requests whose echoed token does not match the cookie;
// Guard keeps the token cookie stable, establishing one lazily and never
// deleting one that is already set.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
)

const (
	// CookieName is the script-readable token cookie.
	CookieName = "csrf-token"
	// HeaderName is the header the client echoes the token through.
	HeaderName = "X-CSRF-Token"
	// ParameterName is the form/query fallback for the echoed token.
	ParameterName = "csrf_token"

	cookieMaxAge = 3600
)

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Protector carries the cookie attributes shared by Verify and Guard.
type Protector struct {
	secure bool
}

func NewProtector(secure bool) *Protector {
	return &Protector{secure: secure}
}

func (p *Protector) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: false,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func echoedToken(r *http.Request) string {
	if h := r.Header.Get(HeaderName); h != "" {
		return h
	}
	return r.URL.Query().Get(ParameterName)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Verify rejects unsafe-method requests whose echoed token does not match
// the token cookie. It runs before Guard so a rejection is never confused
// with token maintenance.
func (p *Protector) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		c, err := r.Cookie(CookieName)
		if err != nil || c.Value == "" {
			http.Error(w, "missing csrf token", http.StatusForbidden)
			return
		}
		echoed := echoedToken(r)
		if subtle.ConstantTimeCompare([]byte(c.Value), []byte(echoed)) != 1 {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Guard ensures every response leaves the client holding a token: when the
// request carried none, a fresh token is generated and flushed before the
// handler runs; an established token is left untouched and re-flushed so its
// lifetime slides.
func (p *Protector) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(CookieName); err == nil {
			token = c.Value
		}
		if token == "" {
			fresh, err := newToken()
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			token = fresh
			r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		}
		p.setCookie(w, token)
		next.ServeHTTP(w, r)
	})
}

// Token returns the request's established token, or the empty string.
func Token(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
