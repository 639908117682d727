package engine

import (
	"fmt"
	"sort"

	"github.com/apflow/invoice-match-backend/internal/erp"
)

// Vendor risk weights. A vendor accumulates risk for duplicate-looking
// invoices, for having no history, and for an unusually high average
// invoice amount.
const (
	vendorRiskDuplicate   = 30
	vendorRiskSingleUse   = 20
	vendorRiskHighAverage = 10

	highAverageAmount = 100000
)

// buildVendorPattern summarizes one vendor's invoices. The caller
// guarantees the slice is non-empty and single-vendor.
func buildVendorPattern(invoices []erp.SupplierInvoice) VendorPaymentPattern {
	pattern := VendorPaymentPattern{
		VendorID:     invoices[0].VendorID,
		VendorName:   invoices[0].VendorName,
		InvoiceCount: len(invoices),
	}

	seen := make(map[string]bool, len(invoices))
	paidDays := 0.0
	paidCount := 0

	for _, inv := range invoices {
		pattern.TotalAmount += inv.TotalAmount

		// Same vendor, same amount, same date reads as a duplicate.
		key := fmt.Sprintf("%s|%.2f|%s", inv.VendorID, inv.TotalAmount, inv.InvoiceDate.Format("2006-01-02"))
		if seen[key] {
			pattern.DuplicateCount++
		}
		seen[key] = true

		if inv.Status == erp.InvoiceStatusPaid && !inv.DueDate.IsZero() {
			paidDays += inv.DueDate.Sub(inv.InvoiceDate).Hours() / 24
			paidCount++
		}
	}

	pattern.AverageAmount = pattern.TotalAmount / float64(len(invoices))
	if paidCount > 0 {
		pattern.AveragePaymentDays = paidDays / float64(paidCount)
	}

	if pattern.DuplicateCount > 0 {
		pattern.RiskScore += vendorRiskDuplicate
	}
	if pattern.InvoiceCount == 1 {
		pattern.RiskScore += vendorRiskSingleUse
	}
	if pattern.AverageAmount > highAverageAmount {
		pattern.RiskScore += vendorRiskHighAverage
	}

	return pattern
}

// sortVendorPatterns orders by risk descending, then vendor ID so that
// equal-risk vendors come back in a stable order.
func sortVendorPatterns(patterns []VendorPaymentPattern) {
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].RiskScore != patterns[j].RiskScore {
			return patterns[i].RiskScore > patterns[j].RiskScore
		}
		return patterns[i].VendorID < patterns[j].VendorID
	})
}
