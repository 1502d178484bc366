// -----------------------------------------------------------------------
// Job Handler - Submit and status endpoints for payment-gated jobs
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/orchestrator"
)

// JobService is the orchestrator surface the handler needs
type JobService interface {
	Submit(ctx context.Context, kind models.TaskKind, rawInput []byte, purchaserID string) (*orchestrator.SubmitResult, error)
	GetStatus(ctx context.Context, jobID string) (*models.JobView, error)
}

type JobHandler struct {
	service JobService
	logger  arbor.ILogger
}

func NewJobHandler(service JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// submitRequest is the wire shape for POST /jobs
type submitRequest struct {
	TaskKind                string          `json:"task_kind"`
	IdentifierFromPurchaser string          `json:"identifier_from_purchaser"`
	InputData               json.RawMessage `json:"input_data"`
}

// SubmitHandler creates a job and its payment request.
// POST /jobs
func (h *JobHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.InputData) == 0 {
		WriteError(w, http.StatusBadRequest, "input_data is required")
		return
	}

	result, err := h.service.Submit(r.Context(), models.TaskKind(req.TaskKind), req.InputData, req.IdentifierFromPurchaser)
	if err != nil {
		var invalid *models.InvalidInputError
		if errors.As(err, &invalid) {
			WriteError(w, http.StatusBadRequest, invalid.Error())
			return
		}

		h.logger.Error().Err(err).Str("task_kind", req.TaskKind).Msg("Job submit failed")
		WriteError(w, http.StatusBadGateway, "Failed to create payment request: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, struct {
		Status string `json:"status"`
		*orchestrator.SubmitResult
	}{Status: "success", SubmitResult: result})
}

// StatusHandler returns the current status and result of a job.
// GET /jobs/{job_id}
func (h *JobHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	view, err := h.service.GetStatus(r.Context(), jobID)
	if err != nil {
		var notFound *models.NotFoundError
		if errors.As(err, &notFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}

		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Status lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to get job status")
		return
	}

	WriteJSON(w, http.StatusOK, view)
}
