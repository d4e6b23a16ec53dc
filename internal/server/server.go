// Package server assembles the HTTP router and middleware chain.
package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"estimate-api/backend/internal/auth"
	authhandler "estimate-api/backend/internal/auth/handler"
	"estimate-api/backend/internal/csrf"
	"estimate-api/backend/internal/dev"
	"estimate-api/backend/internal/storage"
)

// Deps carries everything the router needs. Optional collaborators may be
// nil; the corresponding routes or checks are then skipped.
type Deps struct {
	Auth       *authhandler.Handler
	Middleware *auth.Middleware
	Csrf       *csrf.Protector
	DevLogin   *authhandler.DevLoginHandler
	DevSleep   *dev.SleepHandler
	CsvURL     *storage.CsvURLHandler
	AuditDB    *sql.DB
	Log        *slog.Logger
}

// New builds the router. Order matters: CSRF verification runs before the
// token-stabilizing guard, and both run before authentication so every
// response carries a live CSRF cookie.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "http.server")
	})
	r.Use(d.Csrf.Verify)
	r.Use(d.Csrf.Guard)
	r.Use(d.Middleware.Handler)

	r.Get("/healthz", d.health)

	r.Post("/auth/logout", d.Auth.Logout)
	r.Post("/auth/refresh", d.Auth.Refresh)
	r.Get("/csrf", d.Auth.Csrf)
	r.Get("/me", d.Auth.Me)

	if d.CsvURL != nil {
		r.Get("/files/csv-url", d.CsvURL.Get)
	}

	if d.DevLogin != nil {
		r.Post("/auth/login", d.DevLogin.Login)
	}
	if d.DevSleep != nil {
		r.Get("/dev/sleep", d.DevSleep.Get)
	}

	return r
}

func (d Deps) health(w http.ResponseWriter, r *http.Request) {
	if d.AuditDB != nil {
		if err := d.AuditDB.PingContext(r.Context()); err != nil {
			if d.Log != nil {
				d.Log.Error("health: database unreachable", "error", err)
			}
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
