// Package audit records auth lifecycle events. Recording is best-effort:
// a failed write is logged and dropped, never surfaced to the request.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event actions.
const (
	ActionLogin              = "login"
	ActionLogout             = "logout"
	ActionRefreshSucceeded   = "refresh_succeeded"
	ActionRefreshDenied      = "refresh_denied"
	ActionSessionInvalidated = "session_invalidated"
)

// Event is one auth lifecycle occurrence.
type Event struct {
	ID        string
	Action    string
	UserID    string
	SessionID string
	Detail    string
	At        time.Time
}

// Repository persists events.
type Repository interface {
	Insert(ctx context.Context, e Event) error
}

// Logger assigns identity and timestamps to events and hands them to the
// repository. A nil Logger is safe to call; events are silently dropped.
type Logger struct {
	repo Repository
	log  *slog.Logger
	nowF func() time.Time
}

func NewLogger(repo Repository, log *slog.Logger) *Logger {
	return &Logger{repo: repo, log: log, nowF: func() time.Time { return time.Now().UTC() }}
}

// Record completes and persists e. Persistence errors never propagate.
func (l *Logger) Record(ctx context.Context, e Event) {
	if l == nil || l.repo == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = l.nowF()
	}
	if err := l.repo.Insert(ctx, e); err != nil && l.log != nil {
		l.log.Error("audit write failed",
			"action", e.Action,
			"session_id", e.SessionID,
			"error", err,
		)
	}
}
