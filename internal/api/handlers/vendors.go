package handlers

import (
	"net/http"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/erp"
)

// VendorsHandler handles vendor pattern HTTP requests.
type VendorsHandler struct {
	*Base
	engine *engine.Engine
}

// NewVendorsHandler creates a new vendors handler.
func NewVendorsHandler(eng *engine.Engine) *VendorsHandler {
	return &VendorsHandler{
		Base:   &Base{},
		engine: eng,
	}
}

// Patterns handles GET /api/vendors/patterns - aggregates payment
// behavior per vendor, riskiest first. An optional vendor_id query
// parameter narrows the population.
func (h *VendorsHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	filter := erp.InvoiceFilter{}
	if vendorID := r.URL.Query().Get("vendor_id"); vendorID != "" {
		filter.VendorIDs = []string{vendorID}
	}

	patterns, err := h.engine.AnalyzeVendorPatterns(r.Context(), filter)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.NewAPIError("erp_error", "failed to fetch ERP data"))
		return
	}

	response := dto.VendorPatternListResponse{
		Vendors: make([]dto.VendorPatternResponse, 0, len(patterns)),
		Count:   len(patterns),
	}
	for _, p := range patterns {
		response.Vendors = append(response.Vendors, dto.VendorPatternResponse{
			VendorID:           p.VendorID,
			VendorName:         p.VendorName,
			InvoiceCount:       p.InvoiceCount,
			TotalAmount:        p.TotalAmount,
			AverageAmount:      p.AverageAmount,
			AveragePaymentDays: p.AveragePaymentDays,
			DuplicateCount:     p.DuplicateCount,
			RiskScore:          p.RiskScore,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}
