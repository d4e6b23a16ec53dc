// Package websession carries the server-side browser session context. The
// browser holds only an opaque identifier in a long-lived HttpOnly cookie;
// everything the refresh flow needs (the bound session, its issued version,
// the principal, and the IdP refresh grant) stays on this side.
package websession

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent or expired browser session.
var ErrNotFound = errors.New("browser session not found")

// Context is the state bound to one browser across requests. SessionID and
// Version identify the server-side session record as issued at login;
// IdPRefreshToken is the grant used to re-authorize the user silently.
type Context struct {
	SessionID       string `json:"sid"`
	Version         int64  `json:"ver"`
	UserID          string `json:"uid"`
	DisplayName     string `json:"name"`
	PrincipalName   string `json:"principal"`
	IdPRefreshToken string `json:"idpRefreshToken,omitempty"`
}

// Complete reports whether the context carries everything the refresh flow
// requires. A partial context is treated the same as a missing one.
func (c *Context) Complete() bool {
	return c != nil && c.SessionID != "" && c.Version > 0 && c.UserID != ""
}

// Store persists browser session contexts keyed by the opaque cookie value.
type Store interface {
	Put(ctx context.Context, id string, wc *Context) error
	Get(ctx context.Context, id string) (*Context, error)
	Delete(ctx context.Context, id string) error
}
