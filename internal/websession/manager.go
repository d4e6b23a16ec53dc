package websession

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the opaque browser session identifier cookie.
const CookieName = "browser-session"

// Manager ties the opaque cookie to the Store. The cookie is HttpOnly and
// long-lived; its value never carries claims.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
}

func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, ttl: ttl, secure: secure}
}

// Begin persists wc under a fresh identifier and sets the cookie on w.
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, wc *Context) error {
	id := uuid.NewString()
	if err := m.store.Put(ctx, id, wc); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load resolves the request's browser session context, or ErrNotFound when
// the cookie is absent or the stored context has expired.
func (m *Manager) Load(r *http.Request) (*Context, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.store.Get(r.Context(), c.Value)
}

// Update rewrites the stored context for the request's browser session.
func (m *Manager) Update(r *http.Request, wc *Context) error {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ErrNotFound
	}
	return m.store.Put(r.Context(), c.Value, wc)
}

// End deletes the stored context and expires the cookie. Missing cookies are
// not an error; logout must converge regardless of browser state.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(CookieName); err == nil {
		if err := m.store.Delete(ctx, c.Value); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
