// Package fraud implements independent billing-anomaly heuristics.
//
// Each heuristic is a pure function over one invoice, optionally its
// matched purchase order and the full invoice population, and emits at
// most one alert. Detection never filters by confidence; that is the
// caller's decision.
package fraud

import (
	"fmt"
	"math"
	"time"

	"github.com/apflow/invoice-match-backend/internal/erp"
)

// Pattern identifies one heuristic.
type Pattern string

const (
	PatternDuplicateInvoice     Pattern = "DUPLICATE_INVOICE"
	PatternSplitInvoice         Pattern = "SPLIT_INVOICE"
	PatternRoundNumber          Pattern = "ROUND_NUMBER"
	PatternWeekendSubmission    Pattern = "WEEKEND_SUBMISSION"
	PatternNewVendor            Pattern = "NEW_VENDOR"
	PatternPriceManipulation    Pattern = "PRICE_MANIPULATION"
	PatternQuantityManipulation Pattern = "QUANTITY_MANIPULATION"
	PatternInvoiceAging         Pattern = "INVOICE_AGING"
)

// AllPatterns lists every heuristic, in detection order.
func AllPatterns() []Pattern {
	return []Pattern{
		PatternDuplicateInvoice,
		PatternSplitInvoice,
		PatternRoundNumber,
		PatternWeekendSubmission,
		PatternNewVendor,
		PatternPriceManipulation,
		PatternQuantityManipulation,
		PatternInvoiceAging,
	}
}

// Severity classifies how serious an alert is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is one triggered heuristic.
type Alert struct {
	Pattern     Pattern           `json:"pattern"`
	Severity    Severity          `json:"severity"`
	Confidence  float64           `json:"confidence"` // 0-100
	Description string            `json:"description"`
	Evidence    map[string]string `json:"evidence,omitempty"`
	TriggeredAt time.Time         `json:"triggered_at"`
}

// Thresholds holds the tunable constants behind the heuristics.
// Historically these were hardcoded; they are configuration now so
// tenants can tighten or loosen individual patterns.
type Thresholds struct {
	// DuplicateWindowDays is how close two identical-amount invoices
	// must be to count as duplicates.
	DuplicateWindowDays int
	// SplitApprovalThreshold is the approval limit that split invoices
	// are suspected of dodging.
	SplitApprovalThreshold float64
	// Round-number detection: amounts divisible by MajorFactor at or
	// above MajorMinimum, or by MinorFactor at or above MinorMinimum.
	RoundMajorFactor  float64
	RoundMajorMinimum float64
	RoundMinorFactor  float64
	RoundMinorMinimum float64
	// Off-hours submission bounds: before NightEndHour or at/after
	// NightStartHour counts as off-hours.
	NightStartHour int
	NightEndHour   int
	// New-vendor window: vendors younger than NewVendorAgeDays with
	// fewer than NewVendorMinInvoices invoices.
	NewVendorAgeDays     int
	NewVendorMinInvoices int
	// Aging: invoice dated more than AgingMaxDays after PO delivery,
	// escalating at AgingSevereDays.
	AgingMaxDays    int
	AgingSevereDays int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DuplicateWindowDays:    30,
		SplitApprovalThreshold: 10000,
		RoundMajorFactor:       1000,
		RoundMajorMinimum:      10000,
		RoundMinorFactor:       500,
		RoundMinorMinimum:      5000,
		NightStartHour:         22,
		NightEndHour:           6,
		NewVendorAgeDays:       90,
		NewVendorMinInvoices:   5,
		AgingMaxDays:           90,
		AgingSevereDays:        180,
	}
}

// Detector runs fraud heuristics with a fixed set of thresholds.
type Detector struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewDetector creates a detector. Zero-valued threshold fields fall
// back to their defaults.
func NewDetector(t Thresholds) *Detector {
	d := DefaultThresholds()
	if t.DuplicateWindowDays > 0 {
		d.DuplicateWindowDays = t.DuplicateWindowDays
	}
	if t.SplitApprovalThreshold > 0 {
		d.SplitApprovalThreshold = t.SplitApprovalThreshold
	}
	if t.RoundMajorFactor > 0 {
		d.RoundMajorFactor = t.RoundMajorFactor
	}
	if t.RoundMajorMinimum > 0 {
		d.RoundMajorMinimum = t.RoundMajorMinimum
	}
	if t.RoundMinorFactor > 0 {
		d.RoundMinorFactor = t.RoundMinorFactor
	}
	if t.RoundMinorMinimum > 0 {
		d.RoundMinorMinimum = t.RoundMinorMinimum
	}
	if t.NightStartHour > 0 {
		d.NightStartHour = t.NightStartHour
	}
	if t.NightEndHour > 0 {
		d.NightEndHour = t.NightEndHour
	}
	if t.NewVendorAgeDays > 0 {
		d.NewVendorAgeDays = t.NewVendorAgeDays
	}
	if t.NewVendorMinInvoices > 0 {
		d.NewVendorMinInvoices = t.NewVendorMinInvoices
	}
	if t.AgingMaxDays > 0 {
		d.AgingMaxDays = t.AgingMaxDays
	}
	if t.AgingSevereDays > 0 {
		d.AgingSevereDays = t.AgingSevereDays
	}
	return &Detector{thresholds: d, now: time.Now}
}

// Thresholds returns the detector's effective thresholds.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// DetectAll runs the enabled subset of heuristics and concatenates
// their alerts. PO-dependent heuristics are skipped when po is nil.
// Alerts are not filtered by confidence.
func (d *Detector) DetectAll(inv erp.SupplierInvoice, po *erp.PurchaseOrder, population []erp.SupplierInvoice, enabled []Pattern) []Alert {
	var alerts []Alert

	for _, pattern := range enabled {
		var alert *Alert
		switch pattern {
		case PatternDuplicateInvoice:
			alert = d.DetectDuplicateInvoice(inv, population)
		case PatternSplitInvoice:
			alert = d.DetectSplitInvoice(inv, population)
		case PatternRoundNumber:
			alert = d.DetectRoundNumber(inv)
		case PatternWeekendSubmission:
			alert = d.DetectWeekendSubmission(inv)
		case PatternNewVendor:
			alert = d.DetectNewVendor(inv, population)
		case PatternPriceManipulation:
			if po != nil {
				alert = d.DetectPriceManipulation(inv, *po)
			}
		case PatternQuantityManipulation:
			if po != nil {
				alert = d.DetectQuantityManipulation(inv, *po)
			}
		case PatternInvoiceAging:
			if po != nil {
				alert = d.DetectInvoiceAging(inv, *po)
			}
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	return alerts
}

// DetectDuplicateInvoice flags another invoice from the same vendor
// with the identical amount dated within the duplicate window.
func (d *Detector) DetectDuplicateInvoice(inv erp.SupplierInvoice, population []erp.SupplierInvoice) *Alert {
	window := time.Duration(d.thresholds.DuplicateWindowDays) * 24 * time.Hour

	for _, other := range population {
		if other.InvoiceNumber == inv.InvoiceNumber {
			continue
		}
		if other.VendorID != inv.VendorID {
			continue
		}
		if other.TotalAmount != inv.TotalAmount {
			continue
		}
		gap := inv.InvoiceDate.Sub(other.InvoiceDate)
		if gap < 0 {
			gap = -gap
		}
		if gap > window {
			continue
		}

		return &Alert{
			Pattern:     PatternDuplicateInvoice,
			Severity:    SeverityHigh,
			Confidence:  85,
			Description: fmt.Sprintf("invoice %s duplicates amount %.2f of invoice %s from vendor %s", inv.InvoiceNumber, inv.TotalAmount, other.InvoiceNumber, inv.VendorID),
			Evidence: map[string]string{
				"duplicateInvoiceNumber": other.InvoiceNumber,
				"amount":                 formatAmount(inv.TotalAmount),
				"daysApart":              fmt.Sprintf("%d", int(gap.Hours()/24)),
			},
			TriggeredAt: d.now(),
		}
	}
	return nil
}

// DetectSplitInvoice flags two or more same-vendor, same-day invoices
// that each stay below the approval threshold but sum to at least it.
func (d *Detector) DetectSplitInvoice(inv erp.SupplierInvoice, population []erp.SupplierInvoice) *Alert {
	threshold := d.thresholds.SplitApprovalThreshold
	if inv.TotalAmount >= threshold {
		return nil
	}

	day := calendarDay(inv.InvoiceDate)
	count := 0
	total := 0.0
	for _, other := range population {
		if other.VendorID != inv.VendorID {
			continue
		}
		if calendarDay(other.InvoiceDate) != day {
			continue
		}
		if other.TotalAmount >= threshold {
			continue
		}
		count++
		total += other.TotalAmount
	}

	if count < 2 || total < threshold {
		return nil
	}

	return &Alert{
		Pattern:     PatternSplitInvoice,
		Severity:    SeverityCritical,
		Confidence:  90,
		Description: fmt.Sprintf("%d invoices from vendor %s on %s sum to %.2f, above the %.2f approval threshold", count, inv.VendorID, day, total, threshold),
		Evidence: map[string]string{
			"invoiceCount":      fmt.Sprintf("%d", count),
			"totalAmount":       formatAmount(total),
			"approvalThreshold": formatAmount(threshold),
			"invoiceDate":       day,
		},
		TriggeredAt: d.now(),
	}
}

// DetectRoundNumber flags suspiciously round invoice totals. The major
// factor check takes precedence; the two checks are mutually exclusive.
func (d *Detector) DetectRoundNumber(inv erp.SupplierInvoice) *Alert {
	t := d.thresholds
	amount := inv.TotalAmount

	if amount >= t.RoundMajorMinimum && math.Mod(amount, t.RoundMajorFactor) == 0 {
		return &Alert{
			Pattern:     PatternRoundNumber,
			Severity:    SeverityMedium,
			Confidence:  60,
			Description: fmt.Sprintf("invoice total %.2f is a round multiple of %.0f", amount, t.RoundMajorFactor),
			Evidence: map[string]string{
				"amount":         formatAmount(amount),
				"roundingFactor": fmt.Sprintf("%.0f", t.RoundMajorFactor),
			},
			TriggeredAt: d.now(),
		}
	}

	if amount >= t.RoundMinorMinimum && math.Mod(amount, t.RoundMinorFactor) == 0 {
		return &Alert{
			Pattern:     PatternRoundNumber,
			Severity:    SeverityLow,
			Confidence:  40,
			Description: fmt.Sprintf("invoice total %.2f is a round multiple of %.0f", amount, t.RoundMinorFactor),
			Evidence: map[string]string{
				"amount":         formatAmount(amount),
				"roundingFactor": fmt.Sprintf("%.0f", t.RoundMinorFactor),
			},
			TriggeredAt: d.now(),
		}
	}

	return nil
}

// DetectWeekendSubmission flags submissions on Saturday/Sunday, or
// outside business hours on weekdays. Invoices without a recorded
// submission timestamp are skipped.
func (d *Detector) DetectWeekendSubmission(inv erp.SupplierInvoice) *Alert {
	if inv.SubmittedAt == nil {
		return nil
	}
	submitted := *inv.SubmittedAt

	switch submitted.Weekday() {
	case time.Saturday, time.Sunday:
		return &Alert{
			Pattern:     PatternWeekendSubmission,
			Severity:    SeverityMedium,
			Confidence:  65,
			Description: fmt.Sprintf("invoice %s submitted on a %s", inv.InvoiceNumber, submitted.Weekday()),
			Evidence: map[string]string{
				"submittedAt": submitted.Format(time.RFC3339),
				"weekday":     submitted.Weekday().String(),
			},
			TriggeredAt: d.now(),
		}
	}

	hour := submitted.Hour()
	if hour < d.thresholds.NightEndHour || hour >= d.thresholds.NightStartHour {
		return &Alert{
			Pattern:     PatternWeekendSubmission,
			Severity:    SeverityLow,
			Confidence:  50,
			Description: fmt.Sprintf("invoice %s submitted off-hours at %02d:00", inv.InvoiceNumber, hour),
			Evidence: map[string]string{
				"submittedAt": submitted.Format(time.RFC3339),
				"hour":        fmt.Sprintf("%d", hour),
			},
			TriggeredAt: d.now(),
		}
	}

	return nil
}

// DetectNewVendor flags a vendor's first-ever invoice, or a vendor whose
// history is both short-lived and thin.
func (d *Detector) DetectNewVendor(inv erp.SupplierInvoice, population []erp.SupplierInvoice) *Alert {
	count := 0
	var earliest time.Time
	for _, other := range population {
		if other.VendorID != inv.VendorID {
			continue
		}
		count++
		if earliest.IsZero() || other.InvoiceDate.Before(earliest) {
			earliest = other.InvoiceDate
		}
	}

	// The invoice under inspection may or may not be part of the
	// population snapshot; anything at or below one means no history.
	if count <= 1 {
		return &Alert{
			Pattern:     PatternNewVendor,
			Severity:    SeverityMedium,
			Confidence:  70,
			Description: fmt.Sprintf("first invoice from vendor %s", inv.VendorID),
			Evidence: map[string]string{
				"vendorId":     inv.VendorID,
				"invoiceCount": fmt.Sprintf("%d", count),
			},
			TriggeredAt: d.now(),
		}
	}

	vendorAge := inv.InvoiceDate.Sub(earliest)
	maxAge := time.Duration(d.thresholds.NewVendorAgeDays) * 24 * time.Hour
	if vendorAge < maxAge && count < d.thresholds.NewVendorMinInvoices {
		return &Alert{
			Pattern:     PatternNewVendor,
			Severity:    SeverityLow,
			Confidence:  55,
			Description: fmt.Sprintf("vendor %s has only %d invoices over %d days", inv.VendorID, count, int(vendorAge.Hours()/24)),
			Evidence: map[string]string{
				"vendorId":      inv.VendorID,
				"invoiceCount":  fmt.Sprintf("%d", count),
				"vendorAgeDays": fmt.Sprintf("%d", int(vendorAge.Hours()/24)),
			},
			TriggeredAt: d.now(),
		}
	}

	return nil
}

// DetectPriceManipulation flags invoice unit prices diverging 15% or
// more from the PO unit price. Severity escalates with the variance;
// confidence is min(50+variance, 95).
func (d *Detector) DetectPriceManipulation(inv erp.SupplierInvoice, po erp.PurchaseOrder) *Alert {
	variance := percentVariance(po.UnitPrice, inv.UnitPrice())
	if variance < 15 {
		return nil
	}

	severity := SeverityMedium
	switch {
	case variance >= 30:
		severity = SeverityCritical
	case variance >= 20:
		severity = SeverityHigh
	}

	return &Alert{
		Pattern:     PatternPriceManipulation,
		Severity:    severity,
		Confidence:  math.Min(50+variance, 95),
		Description: fmt.Sprintf("invoice unit price %.2f deviates %.1f%% from PO unit price %.2f", inv.UnitPrice(), variance, po.UnitPrice),
		Evidence: map[string]string{
			"poUnitPrice":      formatAmount(po.UnitPrice),
			"invoiceUnitPrice": formatAmount(inv.UnitPrice()),
			"variancePercent":  fmt.Sprintf("%.1f", variance),
		},
		TriggeredAt: d.now(),
	}
}

// DetectQuantityManipulation flags invoiced quantities diverging 10% or
// more from the ordered quantity.
func (d *Detector) DetectQuantityManipulation(inv erp.SupplierInvoice, po erp.PurchaseOrder) *Alert {
	variance := percentVariance(po.OrderedQuantity, inv.InvoicedQuantity)
	if variance < 10 {
		return nil
	}

	severity := SeverityMedium
	switch {
	case variance >= 25:
		severity = SeverityCritical
	case variance >= 15:
		severity = SeverityHigh
	}

	return &Alert{
		Pattern:     PatternQuantityManipulation,
		Severity:    severity,
		Confidence:  math.Min(50+variance, 95),
		Description: fmt.Sprintf("invoiced quantity %.2f deviates %.1f%% from ordered quantity %.2f", inv.InvoicedQuantity, variance, po.OrderedQuantity),
		Evidence: map[string]string{
			"orderedQuantity":  fmt.Sprintf("%.2f", po.OrderedQuantity),
			"invoicedQuantity": fmt.Sprintf("%.2f", inv.InvoicedQuantity),
			"variancePercent":  fmt.Sprintf("%.1f", variance),
		},
		TriggeredAt: d.now(),
	}
}

// DetectInvoiceAging flags invoices dated long after the PO delivery
// date, escalating past the severe window.
func (d *Detector) DetectInvoiceAging(inv erp.SupplierInvoice, po erp.PurchaseOrder) *Alert {
	if po.DeliveryDate.IsZero() || inv.InvoiceDate.IsZero() {
		return nil
	}

	age := inv.InvoiceDate.Sub(po.DeliveryDate)
	ageDays := int(age.Hours() / 24)
	if ageDays <= d.thresholds.AgingMaxDays {
		return nil
	}

	severity := SeverityMedium
	if ageDays > d.thresholds.AgingSevereDays {
		severity = SeverityHigh
	}

	return &Alert{
		Pattern:     PatternInvoiceAging,
		Severity:    severity,
		Confidence:  75,
		Description: fmt.Sprintf("invoice dated %d days after PO delivery date", ageDays),
		Evidence: map[string]string{
			"poDeliveryDate": po.DeliveryDate.Format("2006-01-02"),
			"invoiceDate":    inv.InvoiceDate.Format("2006-01-02"),
			"ageDays":        fmt.Sprintf("%d", ageDays),
		},
		TriggeredAt: d.now(),
	}
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

func calendarDay(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
