package websession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBeginLoadEnd(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), time.Hour, false)

	rec := httptest.NewRecorder()
	wc := &Context{SessionID: "sid-1", Version: 1, UserID: "u-1", DisplayName: "Dev User"}
	if err := m.Begin(ctx, rec, wc); err != nil {
		t.Fatal(err)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("browser session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("browser session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("browser session cookie must be SameSite=Lax")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)

	got, err := m.Load(req)
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "sid-1" || got.Version != 1 || got.UserID != "u-1" {
		t.Fatalf("loaded context mismatch: %+v", got)
	}

	rec2 := httptest.NewRecorder()
	if err := m.End(ctx, rec2, req); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(req); err != ErrNotFound {
		t.Fatalf("after End: got %v, want ErrNotFound", err)
	}
}

func TestLoadWithoutCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Hour), time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := m.Load(req); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestContextComplete(t *testing.T) {
	cases := []struct {
		name string
		wc   *Context
		want bool
	}{
		{"nil", nil, false},
		{"full", &Context{SessionID: "s", Version: 1, UserID: "u"}, true},
		{"no sid", &Context{Version: 1, UserID: "u"}, false},
		{"zero version", &Context{SessionID: "s", UserID: "u"}, false},
		{"no user", &Context{SessionID: "s", Version: 1}, false},
	}
	for _, tc := range cases {
		if got := tc.wc.Complete(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
