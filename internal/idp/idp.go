// Package idp consumes the identity provider's authorize/refresh capability.
// The provider's own protocol is out of scope; this package only asks one
// question: is this grant still good, and if so, what grant replaces it.
package idp

import (
	"context"
	"errors"
)

// ErrAuthorizationFailed reports that the provider declined to re-authorize
// the grant. Any provider-side denial collapses to this one error; callers
// must not learn why.
var ErrAuthorizationFailed = errors.New("identity provider authorization failed")

// Grant is the stored credential presented back to the provider.
type Grant struct {
	PrincipalName string
	RefreshToken  string
}

// Authorization is the provider's answer on success. RefreshToken may rotate
// on every call and must always replace the stored one.
type Authorization struct {
	PrincipalName string
	RefreshToken  string
}

// Authorizer re-authorizes a previously issued grant.
type Authorizer interface {
	Authorize(ctx context.Context, grant Grant) (*Authorization, error)
}
