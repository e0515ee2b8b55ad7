// -----------------------------------------------------------------------
// Job handler - admin trigger surface for the job queue
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/jobs/dispatcher"
	"github.com/ternarybob/prospectus/internal/models"
)

var validate = validator.New()

// EnqueueRequest is the admin enqueue payload.
type EnqueueRequest struct {
	EntityType    string                 `json:"entity_type" validate:"required,oneof=builder community home agent"`
	JobType       string                 `json:"job_type" validate:"required,oneof=discovery update inventory"`
	EntityID      string                 `json:"entity_id,omitempty"`
	SearchQuery   string                 `json:"search_query,omitempty"`
	SearchFilters map[string]interface{} `json:"search_filters,omitempty"`
	Priority      int                    `json:"priority" validate:"gte=0,lte=100"`
}

// JobHandler handles job-related API requests
type JobHandler struct {
	jobStorage interfaces.JobStorage
	dispatcher *dispatcher.Dispatcher
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobStorage interfaces.JobStorage, disp *dispatcher.Dispatcher, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobStorage: jobStorage,
		dispatcher: disp,
		logger:     logger,
	}
}

// EnqueueJobHandler creates a pending job
// POST /api/jobs
func (h *JobHandler) EnqueueJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := models.NewJob(common.NewJobID(), models.EntityType(req.EntityType), models.JobType(req.JobType), req.Priority)
	job.EntityID = req.EntityID
	job.SearchQuery = req.SearchQuery
	job.SearchFilters = req.SearchFilters

	if err := job.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.jobStorage.SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Msg("Failed to enqueue job")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("entity_type", req.EntityType).
		Str("job_type", req.JobType).
		Msg("Job enqueued via API")

	WriteJSON(w, http.StatusCreated, job)
}

// DispatchNowHandler wakes the dispatcher without waiting for the next poll
// POST /api/jobs/dispatch
func (h *JobHandler) DispatchNowHandler(w http.ResponseWriter, r *http.Request) {
	h.dispatcher.Wake()
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"message": "Dispatch requested",
	})
}

// ListJobsHandler returns a filtered list of jobs
// GET /api/jobs?limit=50&offset=0&status=pending&entity=builder
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := &interfaces.JobListOptions{
		Status:     models.JobStatus(r.URL.Query().Get("status")),
		EntityType: models.EntityType(r.URL.Query().Get("entity")),
		Limit:      QueryInt(r, "limit", 50),
		Offset:     QueryInt(r, "offset", 0),
	}

	jobs, err := h.jobStorage.ListJobs(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetJobHandler returns a single job by ID
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobStorage.GetJob(ctx, jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
