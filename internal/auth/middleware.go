package auth

import (
	"log/slog"
	"net/http"
	"time"

	"estimate-api/backend/internal/audit"
	"estimate-api/backend/internal/cookies"
	"estimate-api/backend/internal/security"
	"estimate-api/backend/internal/session/store"
	tel "estimate-api/backend/internal/telemetry/otel"
)

// RefreshPath is exempt from destructive cleanup in the middleware so a
// borderline session reaches the refresh coordinator intact.
const RefreshPath = "/auth/refresh"

// Middleware is the per-request gatekeeper. It establishes the request
// identity from the access-token cookie, or cleans up and passes through
// unauthenticated. Endpoints that require auth reject later with 401.
type Middleware struct {
	Tokens      *security.TokenCodec
	Sessions    store.Store
	Cookies     *cookies.Manager
	Audit       *audit.Logger
	Metrics     *tel.AuthMetrics
	IdleTimeout time.Duration
	Log         *slog.Logger
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := Subject(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		raw := cookies.ReadAccessToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		isRefresh := r.URL.Path == RefreshPath

		claims, err := m.Tokens.Verify(raw)
		if err != nil {
			// Token-level failure. The store is untouched: a garbled or
			// expired token on one device must not revoke the session for
			// the others.
			if !isRefresh {
				m.Cookies.Clear(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		ok, err := m.Sessions.ValidateAndTouch(r.Context(), claims.SessionID, claims.SessionVersion, m.IdleTimeout)
		if err != nil {
			if m.Log != nil {
				m.Log.Error("session validation failed", "error", err)
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			// Session-level failure: version mismatch, idle timeout, or a
			// vanished record. Force invalidation so every outstanding token
			// for this session dies with it.
			if !isRefresh {
				if _, err := m.Sessions.IncrementVersion(r.Context(), claims.SessionID); err != nil && m.Log != nil {
					m.Log.Error("forced invalidation failed", "session_id", claims.SessionID, "error", err)
				}
				m.Cookies.Clear(w)
				m.Audit.Record(r.Context(), audit.Event{
					Action:    audit.ActionSessionInvalidated,
					UserID:    claims.Subject,
					SessionID: claims.SessionID,
				})
				m.Metrics.ForcedInvalidation(r.Context())
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), claims.Subject)))
	})
}
