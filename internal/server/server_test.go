package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"estimate-api/backend/internal/auth"
	authhandler "estimate-api/backend/internal/auth/handler"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/csrf"
	"estimate-api/backend/internal/idp"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
	"estimate-api/backend/internal/websession"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type toggleAuthorizer struct {
	denied bool
}

func (a *toggleAuthorizer) Authorize(ctx context.Context, grant idp.Grant) (*idp.Authorization, error) {
	if a.denied || grant.RefreshToken == "" {
		return nil, idp.ErrAuthorizationFailed
	}
	return &idp.Authorization{PrincipalName: grant.PrincipalName, RefreshToken: grant.RefreshToken}, nil
}

type harness struct {
	srv      *httptest.Server
	client   *http.Client
	sessions *store.MemoryStore
	codec    *security.TokenCodec
	idp      *toggleAuthorizer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sessions := store.NewMemoryStore(14 * 24 * time.Hour)
	webs := websession.NewManager(websession.NewMemoryStore(14*24*time.Hour), 14*24*time.Hour, false)
	codec := security.NewTokenCodec(testSecret, "estimate-api")
	cm := cookies.NewManager(false)
	authorizer := &toggleAuthorizer{}

	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("devpass"))
	if err != nil {
		t.Fatal(err)
	}

	finalizer := &auth.LoginFinalizer{
		Tokens:      codec,
		Sessions:    sessions,
		Cookies:     cm,
		WebSessions: webs,
		AccessTTL:   10 * time.Minute,
	}
	h := New(Deps{
		Auth: &authhandler.Handler{
			Tokens:      codec,
			Sessions:    sessions,
			Cookies:     cm,
			WebSessions: webs,
			Refresher: &auth.RefreshCoordinator{
				Tokens:      codec,
				Sessions:    sessions,
				Cookies:     cm,
				WebSessions: webs,
				IdP:         authorizer,
				AccessTTL:   10 * time.Minute,
			},
		},
		Middleware: &auth.Middleware{
			Tokens:      codec,
			Sessions:    sessions,
			Cookies:     cm,
			IdleTimeout: 2 * time.Hour,
		},
		Csrf: csrf.NewProtector(false),
		DevLogin: &authhandler.DevLoginHandler{
			Username:     "testuser",
			PasswordHash: hash,
			Hasher:       hasher,
			Finalizer:    finalizer,
		},
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{
		srv:      srv,
		client:   &http.Client{Jar: jar},
		sessions: sessions,
		codec:    codec,
		idp:      authorizer,
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

// establishCsrf primes the client's jar with a CSRF cookie via GET /csrf and
// returns the token for header echo.
func (h *harness) establishCsrf(t *testing.T) string {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + "/csrf")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == csrf.CookieName {
			return c.Value
		}
	}
	t.Fatal("csrf cookie not established")
	return ""
}

func (h *harness) post(t *testing.T, path, csrfToken, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(csrf.HeaderName, csrfToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func (h *harness) accessToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(h.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == cookies.AccessTokenCookie {
			return c.Value
		}
	}
	return ""
}

func TestLoginAccessLogoutReplay(t *testing.T) {
	h := newHarness(t)
	token := h.establishCsrf(t)

	// Login
	resp := h.post(t, "/auth/login", token, `{"username":"testuser","password":"devpass"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("login: got %d, want 204", resp.StatusCode)
	}

	issued := h.accessToken(t)
	if issued == "" {
		t.Fatal("no access token after login")
	}
	claims, err := h.codec.Verify(issued)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionVersion != 1 {
		t.Fatalf("fresh session version = %d, want 1", claims.SessionVersion)
	}

	// Authenticated access succeeds.
	meResp, err := h.client.Get(h.srv.URL + "/me")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, meResp)
	if !strings.Contains(body, `"name":"testuser@example.com"`) {
		t.Fatalf("/me before logout: %s", body)
	}

	// Logout bumps the version and clears cookies.
	resp = h.post(t, "/auth/logout", token, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: got %d, want 204", resp.StatusCode)
	}
	ver, err := h.sessions.GetVersion(context.Background(), claims.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if ver != 2 {
		t.Fatalf("version after logout = %d, want 2", ver)
	}

	// Replay the revoked token: it still verifies cryptographically but the
	// session check rejects it, which forces another version bump.
	req, _ := http.NewRequest(http.MethodGet, h.srv.URL+"/me", nil)
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenCookie, Value: issued})
	replayResp, err := h.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body = readBody(t, replayResp)
	if !strings.Contains(body, `"name":null`) {
		t.Fatalf("replayed token must not authenticate: %s", body)
	}
	if ver, _ := h.sessions.GetVersion(context.Background(), claims.SessionID); ver != 3 {
		t.Fatalf("replay must force invalidation: version %d, want 3", ver)
	}
}

func TestRefreshAfterIdpRevocation(t *testing.T) {
	h := newHarness(t)
	token := h.establishCsrf(t)

	resp := h.post(t, "/auth/login", token, `{"username":"testuser","password":"devpass"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("login: got %d", resp.StatusCode)
	}
	claims, err := h.codec.Verify(h.accessToken(t))
	if err != nil {
		t.Fatal(err)
	}

	// Provider revokes the grant: refresh is denied, cookies cleared, but
	// the session version stays put.
	h.idp.denied = true
	resp = h.post(t, "/auth/refresh", token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh under revocation: got %d, want 401", resp.StatusCode)
	}
	if got := h.accessToken(t); got != "" {
		t.Fatal("denied refresh must clear the access-token cookie")
	}
	if ver, _ := h.sessions.GetVersion(context.Background(), claims.SessionID); ver != 1 {
		t.Fatalf("denied refresh must not bump the version: got %d", ver)
	}

	// Provider recovers: the same browser session refreshes without re-login.
	h.idp.denied = false
	resp = h.post(t, "/auth/refresh", token, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("refresh after recovery: got %d, want 204", resp.StatusCode)
	}
	reissued := h.accessToken(t)
	if reissued == "" {
		t.Fatal("no access token after successful refresh")
	}
	newClaims, err := h.codec.Verify(reissued)
	if err != nil {
		t.Fatal(err)
	}
	if newClaims.SessionID != claims.SessionID || newClaims.SessionVersion != 1 {
		t.Fatalf("refresh must keep sid/version: %+v", newClaims)
	}
}

func TestPostWithoutCsrfRejected(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Post(h.srv.URL+"/auth/logout", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("got %d, want 403", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Get(h.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
}
