package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthorizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Form.Get("refresh_token"); got != "rt-1" {
			t.Errorf("refresh_token = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "at-new",
			"refresh_token": "rt-2",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret", time.Second)
	auth, err := c.Authorize(context.Background(), Grant{PrincipalName: "user@example.com", RefreshToken: "rt-1"})
	if err != nil {
		t.Fatal(err)
	}
	if auth.RefreshToken != "rt-2" {
		t.Errorf("rotated token not adopted: got %q", auth.RefreshToken)
	}
	if auth.PrincipalName != "user@example.com" {
		t.Errorf("principal = %q", auth.PrincipalName)
	}
}

func TestAuthorizeKeepsGrantWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "at-new"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret", time.Second)
	auth, err := c.Authorize(context.Background(), Grant{RefreshToken: "rt-1"})
	if err != nil {
		t.Fatal(err)
	}
	if auth.RefreshToken != "rt-1" {
		t.Errorf("got %q, want rt-1", auth.RefreshToken)
	}
}

func TestAuthorizeDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret", time.Second)
	_, err := c.Authorize(context.Background(), Grant{RefreshToken: "rt-revoked"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("got %v, want ErrAuthorizationFailed", err)
	}
}

func TestAuthorizeEmptyGrant(t *testing.T) {
	c := NewClient("http://unused.invalid", "cid", "secret", time.Second)
	_, err := c.Authorize(context.Background(), Grant{})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("got %v, want ErrAuthorizationFailed", err)
	}
}

func TestAuthorizeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "secret", 50*time.Millisecond)
	_, err := c.Authorize(context.Background(), Grant{RefreshToken: "rt-1"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("got %v, want ErrAuthorizationFailed", err)
	}
}
