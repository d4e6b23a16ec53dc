// Package security provides access-token signing/verification and credential hashing.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token-level failures. These are expected, user-facing conditions; callers
// clear cookies and treat the request as unauthenticated. They never force
// session revocation on their own.
var (
	// ErrTokenMalformed is returned for structurally invalid tokens, including
	// claim-validation failures other than expiry (iss/aud mismatch, nbf in the future).
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrSignatureInvalid is returned when the signature does not verify.
	ErrSignatureInvalid = errors.New("invalid token signature")
)

// AccessClaims holds the JWT claims of an access token. The sid/ver pair ties
// the token to the server-side session record: a token is trusted only while
// ver equals the stored session version.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID      string `json:"sid"`
	SessionVersion int64  `json:"ver"`
}

// TokenCodec signs and verifies short-lived access tokens with a shared
// HS256 secret. The secret is process-wide configuration loaded once at
// startup; rotating it invalidates all outstanding tokens.
type TokenCodec struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenCodec returns a TokenCodec signing with secret. issuer is set as
// both iss and aud, matching how the tokens are consumed (this service is its
// own audience). The secret should be at least 32 bytes.
func NewTokenCodec(secret []byte, issuer string) *TokenCodec {
	return &TokenCodec{secret: secret, issuer: issuer, audience: issuer}
}

// Issue creates a signed access token for subject bound to the given session
// id and version. ttl must be positive; expiry is now+ttl. Each token carries
// a random jti for traceability.
func (c *TokenCodec) Issue(subject, sessionID string, sessionVersion int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SessionID:      sessionID,
		SessionVersion: sessionVersion,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify parses and validates tokenString (signature, exp, nbf, iss, aud) and
// returns its claims. Fails with ErrSignatureInvalid, ErrTokenExpired, or
// ErrTokenMalformed. No side effects.
func (c *TokenCodec) Verify(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&AccessClaims{},
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ClaimsIgnoringExpiry verifies the signature but skips claim validation, so
// an expired token still yields its claims. Used by logout to recover the
// session id from a token that may have lapsed; a forged token still fails.
func (c *TokenCodec) ClaimsIgnoringExpiry(tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(
		tokenString,
		&AccessClaims{},
		func(*jwt.Token) (interface{}, error) { return c.secret, nil },
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrSignatureInvalid
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
