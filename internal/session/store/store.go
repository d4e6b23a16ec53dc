// Package store persists versioned, sliding-TTL session records. The redis
// implementation is the deployment store; the memory implementation backs
// tests and local runs without Redis.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists (or it has expired) for a session id.
var ErrNotFound = errors.New("session not found")

// Store is the session record store. ValidateAndTouch and IncrementVersion
// must be atomic against the backing store: a read-then-write sequence loses
// updates under concurrent requests for the same session.
type Store interface {
	// Create writes a fresh record for sessionID with the given version, applies
	// the session-meta TTL, and adds sessionID to the user index.
	Create(ctx context.Context, userID, sessionID string, version int64) error

	// Touch sets LastSeenAt to now and re-applies the session-meta TTL.
	Touch(ctx context.Context, sessionID string) error

	// IncrementVersion atomically increments the record's version (a missing
	// record counts as version 0) and touches it. This is the sole revocation
	// mechanism: tokens bearing an older version become permanently untrusted.
	IncrementVersion(ctx context.Context, sessionID string) (int64, error)

	// GetVersion returns the current version, or ErrNotFound.
	GetVersion(ctx context.Context, sessionID string) (int64, error)

	// ValidateAndTouch returns true only if the record exists, presentedVersion
	// matches the stored version, and the idle timeout has not elapsed; on true
	// it also touches the record. On false the record is left untouched.
	ValidateAndTouch(ctx context.Context, sessionID string, presentedVersion int64, idleTimeout time.Duration) (bool, error)

	// SessionsForUser returns the session ids indexed for userID. Informational
	// only (multi-device awareness); not used for invalidation decisions.
	SessionsForUser(ctx context.Context, userID string) ([]string, error)
}
