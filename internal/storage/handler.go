package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"estimate-api/backend/internal/auth"
)

// URLSource is the slice of Presigner the handler needs.
type URLSource interface {
	DownloadURL(ctx context.Context, opts PresignOptions) (string, error)
}

// CsvURLHandler hands authenticated callers a short-lived download URL for
// the CSV export object.
type CsvURLHandler struct {
	Source URLSource
	Bucket string
	Key    string
	Expiry time.Duration
	Log    *slog.Logger
}

func (h *CsvURLHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.Subject(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	url, err := h.Source.DownloadURL(r.Context(), PresignOptions{
		Bucket: h.Bucket,
		Key:    h.Key,
		Expiry: h.Expiry,
	})
	if err != nil {
		if h.Log != nil {
			h.Log.Error("presign failed", "error", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}
