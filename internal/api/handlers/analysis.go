package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/application/service"
)

// AnalysisHandler handles analysis job HTTP requests.
type AnalysisHandler struct {
	*Base
	analysis *service.AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		Base:     &Base{},
		analysis: analysis,
	}
}

// Start handles POST /api/analysis - starts a new analysis job.
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartAnalysisRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	serviceReq := service.AnalysisRequest{
		VendorIDs: req.VendorIDs,
		Statuses:  req.Statuses,
	}
	if req.FromDate != "" {
		from, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid from_date, want YYYY-MM-DD"))
			return
		}
		serviceReq.FromDate = &from
	}
	if req.ToDate != "" {
		to, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid to_date, want YYYY-MM-DD"))
			return
		}
		serviceReq.ToDate = &to
	}

	jobID, err := h.analysis.StartAnalysis(r.Context(), serviceReq)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartAnalysisResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// Get handles GET /api/analysis/{jobId} - returns one analysis job.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.analysis.GetAnalysisJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("analysis job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toAnalysisJobResponse(job))
}

// List handles GET /api/analysis - lists all analysis jobs.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.analysis.ListAnalysisJobs()

	response := dto.AnalysisJobListResponse{
		Jobs:  make([]dto.AnalysisJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toAnalysisJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/analysis/{jobId} - cancels an analysis job.
func (h *AnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.analysis.CancelAnalysis(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "analysis job cancelled",
	})
}

// toAnalysisJobResponse converts a service job to an API response.
func toAnalysisJobResponse(job *service.AnalysisJob) dto.AnalysisJobResponse {
	response := dto.AnalysisJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		StartedAt: job.StartedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		response.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	if job.Error != nil {
		response.Error = job.Error.Error()
	}
	if job.Result != nil {
		response.RunID = job.Result.RunID
		response.Statistics = job.Result.Statistics
	}
	return response
}
