// -----------------------------------------------------------------------
// Change handler - review queue listing and manual decisions
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/services/decision"
)

// ReviewRequest is the manual review payload.
type ReviewRequest struct {
	Action   string `json:"action" validate:"required,oneof=approve reject"`
	Reviewer string `json:"reviewer" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

// ChangeHandler handles change-review API requests
type ChangeHandler struct {
	changeStorage interfaces.ChangeStorage
	decision      *decision.Service
	logger        arbor.ILogger
}

// NewChangeHandler creates a new change handler
func NewChangeHandler(changeStorage interfaces.ChangeStorage, decisionService *decision.Service, logger arbor.ILogger) *ChangeHandler {
	return &ChangeHandler{
		changeStorage: changeStorage,
		decision:      decisionService,
		logger:        logger,
	}
}

// ListChangesHandler returns a filtered list of changes
// GET /api/changes?status=pending&entity=home&limit=50
func (h *ChangeHandler) ListChangesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := &interfaces.ChangeListOptions{
		ReviewStatus: models.ReviewStatus(r.URL.Query().Get("status")),
		EntityType:   models.EntityType(r.URL.Query().Get("entity")),
		Limit:        QueryInt(r, "limit", 50),
		Offset:       QueryInt(r, "offset", 0),
	}

	changes, err := h.changeStorage.ListChanges(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list changes")
		WriteError(w, http.StatusInternalServerError, "Failed to list changes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"changes": changes,
		"count":   len(changes),
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

// GetChangeHandler returns a single change by ID
// GET /api/changes/{id}
func (h *ChangeHandler) GetChangeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	changeID := strings.TrimPrefix(r.URL.Path, "/api/changes/")
	if changeID == "" {
		WriteError(w, http.StatusBadRequest, "Change ID is required")
		return
	}

	change, err := h.changeStorage.GetChange(ctx, changeID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Change not found")
		return
	}

	WriteJSON(w, http.StatusOK, change)
}

// ReviewChangeHandler applies a manual approve or reject decision
// POST /api/changes/{id}/review
func (h *ChangeHandler) ReviewChangeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.TrimPrefix(r.URL.Path, "/api/changes/")
	changeID := strings.TrimSuffix(path, "/review")
	if changeID == "" || changeID == path {
		WriteError(w, http.StatusBadRequest, "Change ID is required")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	change, err := h.changeStorage.GetChange(ctx, changeID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Change not found")
		return
	}

	switch req.Action {
	case "approve":
		err = h.decision.ApproveManually(ctx, change, req.Reviewer, req.Reason)
	case "reject":
		err = h.decision.RejectManually(ctx, change, req.Reviewer, req.Reason)
	}
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("change_id", changeID).
			Str("action", req.Action).
			Msg("Manual review failed")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info().
		Str("change_id", changeID).
		Str("action", req.Action).
		Str("reviewer", req.Reviewer).
		Msg("Change reviewed")

	WriteJSON(w, http.StatusOK, change)
}
