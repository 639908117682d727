package handlers

import (
	"net/http"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// StatsHandler handles stats HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalRuns:        stats.TotalRuns,
		TotalMatches:     stats.TotalMatches,
		ApprovalRequired: stats.ApprovalRequired,
		AverageRiskScore: stats.AverageRiskScore,
		StatusCounts:     stats.StatusCounts,
		TenantCounts:     stats.TenantCounts,
	})
}
