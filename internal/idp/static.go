package idp

import "context"

// StaticAuthorizer approves any non-empty grant. Used for local runs where
// no real provider is reachable.
type StaticAuthorizer struct{}

func (StaticAuthorizer) Authorize(ctx context.Context, grant Grant) (*Authorization, error) {
	if grant.RefreshToken == "" {
		return nil, ErrAuthorizationFailed
	}
	return &Authorization{
		PrincipalName: grant.PrincipalName,
		RefreshToken:  grant.RefreshToken,
	}, nil
}
