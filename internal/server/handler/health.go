package handler

import (
	"log/slog"
	"net/http"
	"time"

	"spikewatch/internal/supervisor"
)

// HealthHandler serves the health-check endpoint with the supervisor and
// feed state folded in, so one curl answers "is it up and is it streaming".
type HealthHandler struct {
	started    time.Time
	supervisor func() supervisor.Status
	feedState  func() string
	logger     *slog.Logger
}

// NewHealthHandler creates a HealthHandler. supervisorStatus and
// feedState may be nil when the corresponding component is not wired.
func NewHealthHandler(supervisorStatus func() supervisor.Status, feedState func() string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		started:    time.Now(),
		supervisor: supervisorStatus,
		feedState:  feedState,
		logger:     logger,
	}
}

// HealthCheck responds with the process status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	if h.supervisor != nil {
		body["supervisor"] = h.supervisor()
	}
	if h.feedState != nil {
		body["feed"] = map[string]string{"state": h.feedState()}
	}
	writeJSON(w, http.StatusOK, body)
}
