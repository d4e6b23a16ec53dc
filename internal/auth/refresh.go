package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"estimate-api/backend/internal/audit"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/idp"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
	tel "estimate-api/backend/internal/telemetry/otel"
	"estimate-api/backend/internal/websession"
)

// ErrRefreshDenied is the single failure the refresh endpoint surfaces.
// Every precondition miss collapses into it.
var ErrRefreshDenied = errors.New("refresh denied")

// RefreshCoordinator re-issues an access token when the browser session is
// intact, the server-side version still matches, and the identity provider
// confirms the grant. A denial never increments the session version; the
// failure may be transient and other devices on the session stay live.
type RefreshCoordinator struct {
	Tokens      *security.TokenCodec
	Sessions    store.Store
	Cookies     *cookies.Manager
	WebSessions *websession.Manager
	IdP         idp.Authorizer
	Audit       *audit.Logger
	Metrics     *tel.AuthMetrics
	AccessTTL   time.Duration
}

// Refresh runs the precondition chain and reissues cookies on success. On
// any failure it clears the auth cookies and returns ErrRefreshDenied;
// internal store faults are returned as-is for a 5xx.
func (c *RefreshCoordinator) Refresh(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	wc, err := c.WebSessions.Load(r)
	if err != nil || !wc.Complete() {
		return c.deny(ctx, w, wc, "missing browser session")
	}

	stored, err := c.Sessions.GetVersion(ctx, wc.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return c.deny(ctx, w, wc, "session not found")
	}
	if err != nil {
		return fmt.Errorf("get session version: %w", err)
	}
	if stored != wc.Version {
		return c.deny(ctx, w, wc, "session version mismatch")
	}

	authz, err := c.IdP.Authorize(ctx, idp.Grant{
		PrincipalName: wc.PrincipalName,
		RefreshToken:  wc.IdPRefreshToken,
	})
	if err != nil {
		return c.deny(ctx, w, wc, "idp authorization failed")
	}

	token, err := c.Tokens.Issue(wc.UserID, wc.SessionID, wc.Version, c.AccessTTL)
	if err != nil {
		return fmt.Errorf("issue access token: %w", err)
	}

	// Reissuing also resets the idle clock. The record is touched rather
	// than relied on being touched by the next authenticated request.
	if err := c.Sessions.Touch(ctx, wc.SessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("touch session: %w", err)
	}

	if authz.RefreshToken != wc.IdPRefreshToken {
		wc.IdPRefreshToken = authz.RefreshToken
		if err := c.WebSessions.Update(r, wc); err != nil {
			return fmt.Errorf("update browser session: %w", err)
		}
	}

	c.Cookies.SetAccessToken(w, token, c.AccessTTL)
	if err := c.Cookies.SetUIHint(w, cookies.UIHint{
		UID:  wc.UserID,
		Name: wc.DisplayName,
		Exp:  time.Now().Add(c.AccessTTL).Unix(),
	}, c.AccessTTL); err != nil {
		return err
	}

	c.Audit.Record(ctx, audit.Event{
		Action:    audit.ActionRefreshSucceeded,
		UserID:    wc.UserID,
		SessionID: wc.SessionID,
	})
	c.Metrics.Refresh(ctx, "success")
	return nil
}

func (c *RefreshCoordinator) deny(ctx context.Context, w http.ResponseWriter, wc *websession.Context, reason string) error {
	c.Cookies.Clear(w)
	e := audit.Event{Action: audit.ActionRefreshDenied, Detail: reason}
	if wc != nil {
		e.UserID = wc.UserID
		e.SessionID = wc.SessionID
	}
	c.Audit.Record(ctx, e)
	c.Metrics.Refresh(ctx, "denied")
	return ErrRefreshDenied
}
