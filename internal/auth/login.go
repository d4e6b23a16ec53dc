package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"estimate-api/backend/internal/audit"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
	tel "estimate-api/backend/internal/telemetry/otel"
	"estimate-api/backend/internal/websession"
)

// LoginFinalizer turns a successful identity-provider authentication into a
// live session: a fresh version-1 session record, an access token, the
// cookie pair, and a browser session context for later refreshes.
type LoginFinalizer struct {
	Tokens      *security.TokenCodec
	Sessions    store.Store
	Cookies     *cookies.Manager
	WebSessions *websession.Manager
	Audit       *audit.Logger
	Metrics     *tel.AuthMetrics
	AccessTTL   time.Duration
}

// Finalize establishes the session for p. idpRefreshToken is the provider
// grant stored for silent refresh; empty for flows with no such grant.
func (f *LoginFinalizer) Finalize(w http.ResponseWriter, r *http.Request, p Principal, idpRefreshToken string) error {
	userID := subjectOf(p)
	display := displayOf(p)
	sessionID := uuid.NewString()
	const version = int64(1)

	ctx := r.Context()
	if err := f.Sessions.Create(ctx, userID, sessionID, version); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	token, err := f.Tokens.Issue(userID, sessionID, version, f.AccessTTL)
	if err != nil {
		return fmt.Errorf("issue access token: %w", err)
	}

	f.Cookies.SetAccessToken(w, token, f.AccessTTL)
	if err := f.Cookies.SetUIHint(w, cookies.UIHint{
		UID:  userID,
		Name: display,
		Exp:  time.Now().Add(f.AccessTTL).Unix(),
	}, f.AccessTTL); err != nil {
		return err
	}

	if err := f.WebSessions.Begin(ctx, w, &websession.Context{
		SessionID:       sessionID,
		Version:         version,
		UserID:          userID,
		DisplayName:     display,
		PrincipalName:   p.Name(),
		IdPRefreshToken: idpRefreshToken,
	}); err != nil {
		return fmt.Errorf("begin browser session: %w", err)
	}

	f.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionLogin,
		UserID:    userID,
		SessionID: sessionID,
	})
	f.Metrics.Login(ctx)
	return nil
}
