// Package match reconciles supplier invoices against purchase orders
// and goods receipts.
//
// The matcher is pure computation: it detects field-level
// discrepancies, evaluates tolerance rules, runs fraud heuristics,
// derives a terminal match status, a bounded risk score and an
// approval decision for each invoice line. It holds no mutable state
// beyond its frozen configuration, so a single matcher may serve any
// number of concurrent callers.
package match

import (
	"fmt"
	"math"
	"time"

	"github.com/apflow/invoice-match-backend/internal/domain/fraud"
	"github.com/apflow/invoice-match-backend/internal/domain/tolerance"
	"github.com/apflow/invoice-match-backend/internal/erp"
)

// Variance severity bands shared by the quantity and price checks.
const (
	varianceHighBand   = 10
	varianceMediumBand = 5
	taxHighBand        = 5
	taxMediumBand      = 2
	// Price differences below a cent are rounding noise, not findings.
	priceEpsilon = 0.01
)

// Matcher performs three-way matching with a frozen configuration.
type Matcher struct {
	config Config
	now    func() time.Time
}

// NewMatcher creates a matcher with the given config.
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
		now:    time.Now,
	}
}

// MatchInvoice matches one invoice line against its correlated PO and
// GR within the full invoice population.
//
// A missing PO short-circuits: the result is NOT_MATCHED with a single
// CRITICAL vendor discrepancy, risk score 100 and approval required.
// No tolerance or fraud evaluation runs in that case.
func (m *Matcher) MatchInvoice(inv erp.SupplierInvoice, po *erp.PurchaseOrder, gr *erp.GoodsReceipt, population []erp.SupplierInvoice) Result {
	result := Result{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceItem:   inv.InvoiceItem,
		MatchedAt:     m.now(),
	}

	result.Type = m.matchType(po, gr)

	if po == nil {
		result.Status = StatusNotMatched
		result.RiskScore = 100
		result.ApprovalRequired = true
		result.Discrepancies = []Discrepancy{{
			Type:        DiscrepancyVendor,
			Severity:    fraud.SeverityCritical,
			Field:       "poNumber",
			Expected:    "purchase order reference",
			Actual:      "none",
			Description: fmt.Sprintf("invoice %s has no purchase order", inv.InvoiceNumber),
		}}
		return result
	}

	result.PONumber = po.PONumber
	result.POItem = po.POItem
	if gr != nil {
		result.GRNumber = gr.GRNumber
		result.GRItem = gr.GRItem
	}

	result.Discrepancies = detectDiscrepancies(inv, *po, gr)
	result.ToleranceViolations = tolerance.ValidateAll(*po, inv, m.config.rules)

	if m.config.fraud.Enabled {
		alerts := m.config.detector.DetectAll(inv, po, population, m.config.fraud.Patterns)
		for _, alert := range alerts {
			if alert.Confidence >= m.config.fraud.MinimumConfidence {
				result.FraudAlerts = append(result.FraudAlerts, alert)
			}
		}
	}

	result.Status = m.deriveStatus(result)
	result.RiskScore = riskScore(result)
	result.ApprovalRequired = m.approvalRequired(result)

	return result
}

// MatchInvoices correlates and matches a batch. Each invoice pairs with
// the PO sharing (poNumber, poItem) and the GR sharing (grNumber,
// grItem, poNumber); failed correlations flow through as nil inputs.
func (m *Matcher) MatchInvoices(invoices []erp.SupplierInvoice, pos []erp.PurchaseOrder, grs []erp.GoodsReceipt) []Result {
	poIndex := make(map[string]erp.PurchaseOrder, len(pos))
	for _, po := range pos {
		poIndex[po.Key()] = po
	}
	grIndex := make(map[string]erp.GoodsReceipt, len(grs))
	for _, gr := range grs {
		grIndex[gr.Key()] = gr
	}

	results := make([]Result, 0, len(invoices))
	for _, inv := range invoices {
		po, gr := Correlate(inv, poIndex, grIndex)
		results = append(results, m.MatchInvoice(inv, po, gr, invoices))
	}
	return results
}

// Correlate resolves an invoice's PO and GR references against indexes
// keyed by erp.PurchaseOrder.Key and erp.GoodsReceipt.Key.
func Correlate(inv erp.SupplierInvoice, poIndex map[string]erp.PurchaseOrder, grIndex map[string]erp.GoodsReceipt) (*erp.PurchaseOrder, *erp.GoodsReceipt) {
	var po *erp.PurchaseOrder
	var gr *erp.GoodsReceipt

	if inv.HasPOReference() {
		if found, ok := poIndex[inv.PONumber+"/"+inv.POItem]; ok {
			po = &found
		}
	}
	if inv.HasGRReference() {
		if found, ok := grIndex[inv.GRNumber+"/"+inv.GRItem+"/"+inv.PONumber]; ok {
			gr = &found
		}
	}
	return po, gr
}

func (m *Matcher) matchType(po *erp.PurchaseOrder, gr *erp.GoodsReceipt) Type {
	switch {
	case po != nil && gr != nil:
		return TypeThreeWay
	case po != nil && !m.config.policy.RequireGoodsReceipt:
		return TypeTwoWay
	default:
		return TypeNoMatch
	}
}

// detectDiscrepancies compares the invoice against its PO line and, if
// present, the goods receipt.
func detectDiscrepancies(inv erp.SupplierInvoice, po erp.PurchaseOrder, gr *erp.GoodsReceipt) []Discrepancy {
	var out []Discrepancy

	if inv.VendorID != po.VendorID {
		out = append(out, Discrepancy{
			Type:        DiscrepancyVendor,
			Severity:    fraud.SeverityCritical,
			Field:       "vendorId",
			Expected:    po.VendorID,
			Actual:      inv.VendorID,
			Description: fmt.Sprintf("invoice vendor %s does not match PO vendor %s", inv.VendorID, po.VendorID),
		})
	}

	if inv.MaterialID != "" && inv.MaterialID != po.MaterialID {
		out = append(out, Discrepancy{
			Type:        DiscrepancyMaterial,
			Severity:    fraud.SeverityHigh,
			Field:       "materialId",
			Expected:    po.MaterialID,
			Actual:      inv.MaterialID,
			Description: fmt.Sprintf("invoice material %s does not match PO material %s", inv.MaterialID, po.MaterialID),
		})
	}

	if inv.Currency != po.Currency {
		out = append(out, Discrepancy{
			Type:        DiscrepancyCurrency,
			Severity:    fraud.SeverityHigh,
			Field:       "currency",
			Expected:    po.Currency,
			Actual:      inv.Currency,
			Description: fmt.Sprintf("invoice currency %s does not match PO currency %s", inv.Currency, po.Currency),
		})
	}

	if v := percentVariance(po.OrderedQuantity, inv.InvoicedQuantity); v > 0 {
		out = append(out, Discrepancy{
			Type:            DiscrepancyQuantity,
			Severity:        varianceSeverity(v, varianceHighBand, varianceMediumBand),
			Field:           "invoicedQuantity",
			Expected:        fmt.Sprintf("%.2f", po.OrderedQuantity),
			Actual:          fmt.Sprintf("%.2f", inv.InvoicedQuantity),
			VariancePercent: v,
			Description:     fmt.Sprintf("invoiced quantity deviates %.2f%% from ordered quantity", v),
		})
	}

	invPrice := inv.UnitPrice()
	if math.Abs(invPrice-po.UnitPrice) >= priceEpsilon {
		if v := percentVariance(po.UnitPrice, invPrice); v > 0 {
			out = append(out, Discrepancy{
				Type:            DiscrepancyPrice,
				Severity:        varianceSeverity(v, varianceHighBand, varianceMediumBand),
				Field:           "unitPrice",
				Expected:        fmt.Sprintf("%.2f", po.UnitPrice),
				Actual:          fmt.Sprintf("%.2f", invPrice),
				VariancePercent: v,
				Description:     fmt.Sprintf("invoice unit price deviates %.2f%% from PO unit price", v),
			})
		}
	}

	if v := percentVariance(po.TaxAmount, inv.TaxAmount); v > 0 {
		out = append(out, Discrepancy{
			Type:            DiscrepancyTax,
			Severity:        varianceSeverity(v, taxHighBand, taxMediumBand),
			Field:           "taxAmount",
			Expected:        fmt.Sprintf("%.2f", po.TaxAmount),
			Actual:          fmt.Sprintf("%.2f", inv.TaxAmount),
			VariancePercent: v,
			Description:     fmt.Sprintf("invoice tax deviates %.2f%% from PO tax", v),
		})
	}

	if !inv.InvoiceDate.IsZero() && !po.CreatedAt.IsZero() && inv.InvoiceDate.Before(po.CreatedAt) {
		out = append(out, Discrepancy{
			Type:        DiscrepancyDate,
			Severity:    fraud.SeverityMedium,
			Field:       "invoiceDate",
			Expected:    "on or after " + po.CreatedAt.Format("2006-01-02"),
			Actual:      inv.InvoiceDate.Format("2006-01-02"),
			Description: "invoice is dated before its purchase order was created",
		})
	}

	if gr != nil {
		if v := percentVariance(gr.ReceivedQuantity, inv.InvoicedQuantity); v > 0 {
			out = append(out, Discrepancy{
				Type:            DiscrepancyQuantity,
				Severity:        varianceSeverity(v, varianceHighBand, varianceMediumBand),
				Field:           "receivedQuantity",
				Expected:        fmt.Sprintf("%.2f", gr.ReceivedQuantity),
				Actual:          fmt.Sprintf("%.2f", inv.InvoicedQuantity),
				VariancePercent: v,
				Description:     fmt.Sprintf("invoiced quantity deviates %.2f%% from received quantity", v),
			})
		}
	}

	return out
}

// deriveStatus applies the precedence: BLOCKED beats TOLERANCE_EXCEEDED
// beats PARTIALLY_MATCHED beats FULLY_MATCHED.
func (m *Matcher) deriveStatus(r Result) Status {
	for _, d := range r.Discrepancies {
		if d.Severity == fraud.SeverityCritical {
			return StatusBlocked
		}
	}
	if m.config.policy.BlockOnFraudAlert {
		for _, a := range r.FraudAlerts {
			if a.Severity == fraud.SeverityCritical {
				return StatusBlocked
			}
		}
	}
	if len(r.ToleranceViolations) > 0 {
		return StatusToleranceExceeded
	}
	if len(r.Discrepancies) > 0 {
		return StatusPartiallyMatched
	}
	return StatusFullyMatched
}

// riskScore composes the bounded [0,100] risk signal: discrepancy
// severities capped at 40, violation count capped at 30, fraud
// severities capped at 30.
func riskScore(r Result) int {
	discrepancyScore := 0
	for _, d := range r.Discrepancies {
		discrepancyScore += severityDiscrepancyWeight(d.Severity)
	}
	if discrepancyScore > discrepancyScoreCap {
		discrepancyScore = discrepancyScoreCap
	}

	violationScore := violationScoreEach * len(r.ToleranceViolations)
	if violationScore > violationScoreCap {
		violationScore = violationScoreCap
	}

	fraudScore := 0
	for _, a := range r.FraudAlerts {
		fraudScore += severityFraudWeight(a.Severity)
	}
	if fraudScore > fraudScoreCap {
		fraudScore = fraudScoreCap
	}

	score := discrepancyScore + violationScore + fraudScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// approvalRequired decides whether a human signs off. Note that fraud
// severity is re-checked here regardless of the blockOnFraudAlert
// policy flag: an invoice can require approval without being BLOCKED.
func (m *Matcher) approvalRequired(r Result) bool {
	if r.Status == StatusBlocked {
		return true
	}
	for _, v := range r.ToleranceViolations {
		if v.Rule.RequiresApproval {
			return true
		}
	}
	for _, a := range r.FraudAlerts {
		if a.Severity == fraud.SeverityCritical || a.Severity == fraud.SeverityHigh {
			return true
		}
	}
	if r.RiskScore >= 50 {
		return true
	}
	if r.Status == StatusFullyMatched {
		return !m.config.policy.AutoApproveWithinTolerance
	}
	return true
}

// percentVariance returns |actual-expected|/expected*100, treating a
// zero expected value with a nonzero actual as 100%.
func percentVariance(expected, actual float64) float64 {
	if expected == 0 {
		if actual == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(actual-expected) / math.Abs(expected) * 100
}

func varianceSeverity(variance, highBand, mediumBand float64) fraud.Severity {
	switch {
	case variance > highBand:
		return fraud.SeverityHigh
	case variance > mediumBand:
		return fraud.SeverityMedium
	default:
		return fraud.SeverityLow
	}
}
