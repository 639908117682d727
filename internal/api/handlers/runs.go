package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// RunsHandler handles analysis run HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns the most recent analysis runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{runId} - returns a single analysis run.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if runID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(runID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("analysis run"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toRunResponse(*run))
}

// ListMatches handles GET /api/runs/{runId}/matches - returns the match
// records of one run.
func (h *RunsHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if runID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(runID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("analysis run"))
		return
	}

	records, err := h.repo.ListMatches(runID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.MatchListResponse{
		Matches: make([]dto.MatchRecordResponse, 0, len(records)),
		Count:   len(records),
	}
	for _, record := range records {
		response.Matches = append(response.Matches, toMatchRecordResponse(record))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toRunResponse converts a storage MatchRun to an API response.
func toRunResponse(run storage.MatchRun) dto.RunResponse {
	response := dto.RunResponse{
		RunID:             run.RunID,
		TenantID:          run.TenantID,
		StartedAt:         run.StartedAt.Format(time.RFC3339),
		Status:            run.Status,
		ErrorMessage:      run.ErrorMessage,
		TotalInvoices:     run.TotalInvoices,
		FullyMatched:      run.FullyMatched,
		PartiallyMatched:  run.PartiallyMatched,
		ToleranceExceeded: run.ToleranceExceeded,
		NotMatched:        run.NotMatched,
		Blocked:           run.Blocked,
		ApprovalRequired:  run.ApprovalRequired,
		FraudAlerts:       run.FraudAlerts,
		Discrepancies:     run.Discrepancies,
	}
	if !run.CompletedAt.IsZero() {
		response.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return response
}

// toMatchRecordResponse converts a storage MatchRecord to an API
// response, inlining the stored detail payload when present.
func toMatchRecordResponse(record storage.MatchRecord) dto.MatchRecordResponse {
	response := dto.MatchRecordResponse{
		RunID:            record.RunID,
		InvoiceNumber:    record.InvoiceNumber,
		InvoiceItem:      record.InvoiceItem,
		PONumber:         record.PONumber,
		POItem:           record.POItem,
		GRNumber:         record.GRNumber,
		GRItem:           record.GRItem,
		Status:           record.Status,
		MatchType:        record.MatchType,
		RiskScore:        record.RiskScore,
		ApprovalRequired: record.ApprovalRequired,
		MatchedAt:        record.MatchedAt.Format(time.RFC3339),
		DiscrepancyCount: record.DiscrepancyCount,
		ViolationCount:   record.ViolationCount,
		AlertCount:       record.AlertCount,
	}
	if record.DetailJSON != "" {
		var detail json.RawMessage
		if err := record.Detail(&detail); err == nil {
			response.Detail = detail
		}
	}
	return response
}
