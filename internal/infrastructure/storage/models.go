package storage

import (
	"encoding/json"
	"time"
)

// Run lifecycle states
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// MatchRun is one persisted analysis run with its aggregate counters.
type MatchRun struct {
	RunID             string    `json:"run_id"`
	TenantID          string    `json:"tenant_id"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
	Status            string    `json:"status"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	TotalInvoices     int       `json:"total_invoices"`
	FullyMatched      int       `json:"fully_matched"`
	PartiallyMatched  int       `json:"partially_matched"`
	ToleranceExceeded int       `json:"tolerance_exceeded"`
	NotMatched        int       `json:"not_matched"`
	Blocked           int       `json:"blocked"`
	ApprovalRequired  int       `json:"approval_required"`
	FraudAlerts       int       `json:"fraud_alerts"`
	Discrepancies     int       `json:"discrepancies"`
}

// MatchRecord is one persisted per-invoice match result. The
// discrepancy, violation and alert payloads are stored as JSON detail
// so the schema stays stable as the domain types evolve.
type MatchRecord struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	TenantID         string    `json:"tenant_id"`
	InvoiceNumber    string    `json:"invoice_number"`
	InvoiceItem      string    `json:"invoice_item"`
	PONumber         string    `json:"po_number,omitempty"`
	POItem           string    `json:"po_item,omitempty"`
	GRNumber         string    `json:"gr_number,omitempty"`
	GRItem           string    `json:"gr_item,omitempty"`
	Status           string    `json:"status"`
	MatchType        string    `json:"match_type"`
	RiskScore        int       `json:"risk_score"`
	ApprovalRequired bool      `json:"approval_required"`
	MatchedAt        time.Time `json:"matched_at"`

	DiscrepancyCount int `json:"discrepancy_count"`
	ViolationCount   int `json:"violation_count"`
	AlertCount       int `json:"alert_count"`

	// DetailJSON carries the serialized discrepancies, tolerance
	// violations and fraud alerts.
	DetailJSON string `json:"-"`
}

// SetDetail serializes the detail payload to JSON for storage.
func (r *MatchRecord) SetDetail(detail interface{}) error {
	if detail == nil {
		r.DetailJSON = ""
		return nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	r.DetailJSON = string(data)
	return nil
}

// Detail deserializes the stored detail payload into out.
func (r *MatchRecord) Detail(out interface{}) error {
	if r.DetailJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(r.DetailJSON), out)
}

// Stats contains aggregate statistics over all persisted runs.
type Stats struct {
	TotalRuns        int            `json:"total_runs"`
	TotalMatches     int            `json:"total_matches"`
	ApprovalRequired int            `json:"approval_required"`
	AverageRiskScore float64        `json:"average_risk_score"`
	StatusCounts     map[string]int `json:"status_counts"`
	TenantCounts     map[string]int `json:"tenant_counts"`
}
