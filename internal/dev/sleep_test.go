package dev

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSleepRejectsBadInput(t *testing.T) {
	h := &SleepHandler{}
	for _, q := range []string{"", "seconds=abc", "seconds=-1"} {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/dev/sleep?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: got %d, want 400", q, rec.Code)
		}
	}
}

func TestSleepZeroSeconds(t *testing.T) {
	h := &SleepHandler{}
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dev/sleep?seconds=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}
