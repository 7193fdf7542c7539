package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports the running mode and configured sources so a
// dashboard can render without waiting for the first pass.
type StatusHandler struct {
	mode      string
	sources   []string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, sources []string) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		sources:   sources,
		startedAt: time.Now().UTC(),
	}
}

// GetStatus returns the process mode, source names, and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"sources":        h.sources,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
