package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"estimate-api/backend/internal/auth"
	"estimate-api/backend/internal/security"
)

// DevLoginHandler authenticates the fixed development user so the full
// cookie and session flow works without a reachable identity provider.
// Never mounted outside local/dev environments.
type DevLoginHandler struct {
	Username     string
	PasswordHash string
	Hasher       *security.Hasher
	Finalizer    *auth.LoginFinalizer
	Log          *slog.Logger
}

type devLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *DevLoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req devLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if req.Username != h.Username || h.Hasher.Compare(h.PasswordHash, []byte(req.Password)) != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	p := auth.OAuth2Principal{
		Attributes: map[string]any{
			"sub":   h.Username,
			"email": h.Username + "@example.com",
			"name":  "Dev User",
		},
		NameAttr: "sub",
	}
	if err := h.Finalizer.Finalize(w, r, p, "dev-grant"); err != nil {
		if h.Log != nil {
			h.Log.Error("dev login failed", "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
