package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// InvoicesHandler handles single-invoice HTTP requests.
type InvoicesHandler struct {
	*Base
	engine *engine.Engine
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(repo storage.Repository, eng *engine.Engine) *InvoicesHandler {
	return &InvoicesHandler{
		Base:   NewBase(repo),
		engine: eng,
	}
}

// Match handles POST /api/invoices/{invoiceNumber}/match - runs an
// on-demand match of one invoice against live ERP data.
func (h *InvoicesHandler) Match(w http.ResponseWriter, r *http.Request) {
	invoiceNumber := chi.URLParam(r, "invoiceNumber")
	if invoiceNumber == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invoice number is required"))
		return
	}

	result, err := h.engine.MatchSingleInvoice(r.Context(), invoiceNumber)
	if err != nil {
		if errors.Is(err, engine.ErrInvoiceNotFound) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("invoice"))
			return
		}
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("erp_error", "failed to fetch ERP data"))
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// History handles GET /api/invoices/{invoiceNumber}/matches - returns
// the persisted match history of one invoice.
func (h *InvoicesHandler) History(w http.ResponseWriter, r *http.Request) {
	invoiceNumber := chi.URLParam(r, "invoiceNumber")
	if invoiceNumber == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invoice number is required"))
		return
	}

	records, err := h.repo.GetMatchesByInvoice(invoiceNumber)
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
