package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/jobs/dispatcher"
)

// StatusHandler reports service health and dispatcher occupancy
type StatusHandler struct {
	dispatcher *dispatcher.Dispatcher
	startedAt  time.Time
	logger     arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(disp *dispatcher.Dispatcher, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		dispatcher: disp,
		startedAt:  time.Now().UTC(),
		logger:     logger,
	}
}

// GetStatusHandler returns service status
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	total, byCategory := h.dispatcher.Inflight()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"version":         common.GetVersion(),
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"inflight_total":  total,
		"inflight_by_cat": byCategory,
	})
}
