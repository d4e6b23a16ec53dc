// Package handler exposes the session lifecycle over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"estimate-api/backend/internal/audit"
	"estimate-api/backend/internal/auth"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/csrf"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
	tel "estimate-api/backend/internal/telemetry/otel"
	"estimate-api/backend/internal/websession"
)

// Handler bundles the auth endpoints and their collaborators.
type Handler struct {
	Tokens      *security.TokenCodec
	Sessions    store.Store
	Cookies     *cookies.Manager
	WebSessions *websession.Manager
	Refresher   *auth.RefreshCoordinator
	Audit       *audit.Logger
	Metrics     *tel.AuthMetrics
	Log         *slog.Logger
}

// Logout revokes the session behind the presented access token and clears
// every auth cookie. It converges to 204 no matter what the browser sent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The token may well be expired at logout time; claims are still good
	// enough to find the session to revoke.
	if raw := cookies.ReadAccessToken(r); raw != "" {
		if claims, err := h.Tokens.ClaimsIgnoringExpiry(raw); err == nil && claims.SessionID != "" {
			if _, err := h.Sessions.IncrementVersion(ctx, claims.SessionID); err != nil && h.Log != nil {
				h.Log.Error("logout invalidation failed", "session_id", claims.SessionID, "error", err)
			}
			h.Audit.Record(ctx, audit.Event{
				Action:    audit.ActionLogout,
				UserID:    claims.Subject,
				SessionID: claims.SessionID,
			})
			h.Metrics.Logout(ctx)
		}
	}

	h.Cookies.Clear(w)
	if err := h.WebSessions.End(ctx, w, r); err != nil && h.Log != nil {
		h.Log.Error("browser session cleanup failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh runs the coordinator. 204 with fresh cookies on success, 401 with
// cleared cookies on any denial.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.Refresher.Refresh(w, r)
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if errors.Is(err, auth.ErrRefreshDenied) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Log != nil {
		h.Log.Error("refresh failed", "error", err)
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

type csrfResponse struct {
	Token         string `json:"token"`
	HeaderName    string `json:"headerName"`
	ParameterName string `json:"parameterName"`
}

// Csrf reports the established token and the names the client echoes it
// through. The cookie itself is maintained upstream by the guard.
func (h *Handler) Csrf(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(csrfResponse{
		Token:         csrf.Token(r),
		HeaderName:    csrf.HeaderName,
		ParameterName: csrf.ParameterName,
	})
}

type meResponse struct {
	Name  *string  `json:"name"`
	Roles []string `json:"roles"`
}

// Me reports the caller's established identity, or a null name when the
// request is unauthenticated.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{Roles: []string{}}
	if subject, ok := auth.Subject(r.Context()); ok {
		resp.Name = &subject
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
