package match

import (
	"time"

	"github.com/apflow/invoice-match-backend/internal/domain/fraud"
	"github.com/apflow/invoice-match-backend/internal/domain/tolerance"
)

// Status is the terminal outcome of matching one invoice line.
type Status string

const (
	StatusFullyMatched      Status = "FULLY_MATCHED"
	StatusPartiallyMatched  Status = "PARTIALLY_MATCHED"
	StatusToleranceExceeded Status = "TOLERANCE_EXCEEDED"
	StatusNotMatched        Status = "NOT_MATCHED"
	StatusBlocked           Status = "BLOCKED"
)

// Type says which documents participated in the match.
type Type string

const (
	TypeThreeWay Type = "THREE_WAY"
	TypeTwoWay   Type = "TWO_WAY"
	TypeNoMatch  Type = "NO_MATCH"
)

// DiscrepancyType classifies a field-level mismatch.
type DiscrepancyType string

const (
	DiscrepancyQuantity DiscrepancyType = "QUANTITY"
	DiscrepancyPrice    DiscrepancyType = "PRICE"
	DiscrepancyTax      DiscrepancyType = "TAX"
	DiscrepancyVendor   DiscrepancyType = "VENDOR"
	DiscrepancyMaterial DiscrepancyType = "MATERIAL"
	DiscrepancyDate     DiscrepancyType = "DATE"
	DiscrepancyCurrency DiscrepancyType = "CURRENCY"
)

// Discrepancy is one detected field mismatch between the invoice and
// its reference documents. Generated fresh per match attempt.
type Discrepancy struct {
	Type            DiscrepancyType `json:"type"`
	Severity        fraud.Severity  `json:"severity"`
	Field           string          `json:"field"`
	Expected        string          `json:"expected"`
	Actual          string          `json:"actual"`
	VariancePercent float64         `json:"variance_percent,omitempty"`
	Description     string          `json:"description"`
}

// Result is the outcome of matching one invoice line. Immutable once
// returned; re-running with identical inputs and configuration yields
// an identical result apart from the timestamps.
type Result struct {
	InvoiceNumber string `json:"invoice_number"`
	InvoiceItem   string `json:"invoice_item"`
	PONumber      string `json:"po_number,omitempty"`
	POItem        string `json:"po_item,omitempty"`
	GRNumber      string `json:"gr_number,omitempty"`
	GRItem        string `json:"gr_item,omitempty"`

	Status              Status                `json:"status"`
	Type                Type                  `json:"type"`
	Discrepancies       []Discrepancy         `json:"discrepancies,omitempty"`
	ToleranceViolations []tolerance.Violation `json:"tolerance_violations,omitempty"`
	FraudAlerts         []fraud.Alert         `json:"fraud_alerts,omitempty"`
	RiskScore           int                   `json:"risk_score"`
	ApprovalRequired    bool                  `json:"approval_required"`
	MatchedAt           time.Time             `json:"matched_at"`
}

// Risk score composition caps. Each bucket contributes independently
// and the sum is clamped to [0,100].
const (
	discrepancyScoreCap = 40
	violationScoreCap   = 30
	violationScoreEach  = 15
	fraudScoreCap       = 30
)

// severityDiscrepancyWeight maps a discrepancy severity to its risk
// score contribution.
func severityDiscrepancyWeight(s fraud.Severity) int {
	switch s {
	case fraud.SeverityCritical:
		return 40
	case fraud.SeverityHigh:
		return 20
	case fraud.SeverityMedium:
		return 10
	default:
		return 0
	}
}

// severityFraudWeight maps a fraud alert severity to its risk score
// contribution.
func severityFraudWeight(s fraud.Severity) int {
	switch s {
	case fraud.SeverityCritical:
		return 30
	case fraud.SeverityHigh:
		return 20
	case fraud.SeverityMedium:
		return 10
	case fraud.SeverityLow:
		return 5
	default:
		return 0
	}
}
