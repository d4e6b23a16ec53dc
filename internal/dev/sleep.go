// Package dev holds endpoints mounted only in local and dev environments.
package dev

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const maxSleepSeconds = 300

// SleepHandler blocks for the requested number of seconds. Used to verify
// graceful shutdown drains in-flight requests.
type SleepHandler struct {
	Log *slog.Logger
}

func (h *SleepHandler) Get(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || seconds < 0 {
		http.Error(w, "seconds must be a non-negative integer", http.StatusBadRequest)
		return
	}
	if seconds > maxSleepSeconds {
		seconds = maxSleepSeconds
	}

	if h.Log != nil {
		h.Log.Info("sleep start", "seconds", seconds)
	}
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-r.Context().Done():
		if h.Log != nil {
			h.Log.Info("sleep aborted", "error", r.Context().Err())
		}
		return
	}
	if h.Log != nil {
		h.Log.Info("sleep end", "seconds", seconds)
	}
	fmt.Fprintf(w, "slept %ds\n", seconds)
}
