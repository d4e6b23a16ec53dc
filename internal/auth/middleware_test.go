package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newMiddleware(t *testing.T) (*Middleware, *store.MemoryStore) {
	t.Helper()
	sessions := store.NewMemoryStore(14 * 24 * time.Hour)
	return &Middleware{
		Tokens:      security.NewTokenCodec(testSecret, "estimate-api"),
		Sessions:    sessions,
		Cookies:     cookies.NewManager(false),
		IdleTimeout: 2 * time.Hour,
	}, sessions
}

func echoSubject() (http.Handler, *string) {
	var seen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := Subject(r.Context()); ok {
			seen = s
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return h, &seen
}

func clearedAccessCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookies.AccessTokenCookie && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestMiddlewareNoCookiePassesThrough(t *testing.T) {
	m, _ := newMiddleware(t)
	h, seen := echoSubject()
	rec := httptest.NewRecorder()

	m.Handler(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	if *seen != "" {
		t.Errorf("identity established without a token: %q", *seen)
	}
	if clearedAccessCookie(rec) {
		t.Error("cookies cleared for an anonymous request")
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	ctx := context.Background()
	m, sessions := newMiddleware(t)
	if err := sessions.Create(ctx, "user-1", "sid-1", 1); err != nil {
		t.Fatal(err)
	}
	token, err := m.Tokens.Issue("user-1", "sid-1", 1, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	h, seen := echoSubject()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: token})

	m.Handler(h).ServeHTTP(rec, req)

	if *seen != "user-1" {
		t.Fatalf("subject = %q, want user-1", *seen)
	}
}

func TestMiddlewareExpiredTokenClearsCookiesOnly(t *testing.T) {
	ctx := context.Background()
	m, sessions := newMiddleware(t)
	if err := sessions.Create(ctx, "user-1", "sid-1", 1); err != nil {
		t.Fatal(err)
	}
	token, err := m.Tokens.Issue("user-1", "sid-1", 1, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	h, seen := echoSubject()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: token})

	m.Handler(h).ServeHTTP(rec, req)

	if *seen != "" {
		t.Error("expired token must not authenticate")
	}
	if !clearedAccessCookie(rec) {
		t.Error("expired token must clear the auth cookies")
	}
	// Token-level failure: the session survives for other devices.
	if ver, err := sessions.GetVersion(ctx, "sid-1"); err != nil || ver != 1 {
		t.Errorf("session version disturbed: ver=%d err=%v", ver, err)
	}
}

func TestMiddlewareVersionMismatchForcesInvalidation(t *testing.T) {
	ctx := context.Background()
	m, sessions := newMiddleware(t)
	if err := sessions.Create(ctx, "user-1", "sid-1", 1); err != nil {
		t.Fatal(err)
	}
	token, err := m.Tokens.Issue("user-1", "sid-1", 1, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.IncrementVersion(ctx, "sid-1"); err != nil {
		t.Fatal(err)
	}

	h, seen := echoSubject()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: token})

	m.Handler(h).ServeHTTP(rec, req)

	if *seen != "" {
		t.Error("stale-version token must not authenticate")
	}
	if !clearedAccessCookie(rec) {
		t.Error("session-level failure must clear the auth cookies")
	}
	ver, err := sessions.GetVersion(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if ver != 3 {
		t.Errorf("forced invalidation not applied: version %d, want 3", ver)
	}
}

func TestMiddlewareRefreshPathExemption(t *testing.T) {
	ctx := context.Background()
	m, sessions := newMiddleware(t)
	if err := sessions.Create(ctx, "user-1", "sid-1", 1); err != nil {
		t.Fatal(err)
	}
	token, err := m.Tokens.Issue("user-1", "sid-1", 1, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	h, _ := echoSubject()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, RefreshPath, nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: token})

	m.Handler(h).ServeHTTP(rec, req)

	if clearedAccessCookie(rec) {
		t.Error("refresh path must not be destructively cleaned before the coordinator runs")
	}
	if ver, err := sessions.GetVersion(ctx, "sid-1"); err != nil || ver != 1 {
		t.Errorf("refresh path must not touch the session version: ver=%d err=%v", ver, err)
	}
}

func TestMiddlewareRefreshPathSessionFailureNoIncrement(t *testing.T) {
	ctx := context.Background()
	m, sessions := newMiddleware(t)
	if err := sessions.Create(ctx, "user-1", "sid-1", 2); err != nil {
		t.Fatal(err)
	}
	// Token carries a stale version.
	token, err := m.Tokens.Issue("user-1", "sid-1", 1, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	h, _ := echoSubject()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, RefreshPath, nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: token})

	m.Handler(h).ServeHTTP(rec, req)

	if ver, err := sessions.GetVersion(ctx, "sid-1"); err != nil || ver != 2 {
		t.Errorf("version must be untouched on the refresh path: ver=%d err=%v", ver, err)
	}
	if clearedAccessCookie(rec) {
		t.Error("refresh path must leave cookie handling to the coordinator")
	}
}
