package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessageResponse carries a plain informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// RunResponse represents a persisted analysis run in API responses.
type RunResponse struct {
	RunID             string `json:"run_id"`
	TenantID          string `json:"tenant_id"`
	StartedAt         string `json:"started_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
	Status            string `json:"status"`
	ErrorMessage      string `json:"error_message,omitempty"`
	TotalInvoices     int    `json:"total_invoices"`
	FullyMatched      int    `json:"fully_matched"`
	PartiallyMatched  int    `json:"partially_matched"`
	ToleranceExceeded int    `json:"tolerance_exceeded"`
	NotMatched        int    `json:"not_matched"`
	Blocked           int    `json:"blocked"`
	ApprovalRequired  int    `json:"approval_required"`
	FraudAlerts       int    `json:"fraud_alerts"`
	Discrepancies     int    `json:"discrepancies"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// MatchRecordResponse represents one persisted match record.
type MatchRecordResponse struct {
	RunID            string      `json:"run_id"`
	InvoiceNumber    string      `json:"invoice_number"`
	InvoiceItem      string      `json:"invoice_item"`
	PONumber         string      `json:"po_number,omitempty"`
	POItem           string      `json:"po_item,omitempty"`
	GRNumber         string      `json:"gr_number,omitempty"`
	GRItem           string      `json:"gr_item,omitempty"`
	Status           string      `json:"status"`
	MatchType        string      `json:"match_type"`
	RiskScore        int         `json:"risk_score"`
	ApprovalRequired bool        `json:"approval_required"`
	MatchedAt        string      `json:"matched_at"`
	DiscrepancyCount int         `json:"discrepancy_count"`
	ViolationCount   int         `json:"violation_count"`
	AlertCount       int         `json:"alert_count"`
	Detail           interface{} `json:"detail,omitempty"`
}

// MatchListResponse is returned when listing match records.
type MatchListResponse struct {
	Matches []MatchRecordResponse `json:"matches"`
	Count   int                   `json:"count"`
}

// AnalysisJobResponse represents an analysis job in API responses.
type AnalysisJobResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Error       string `json:"error,omitempty"`

	// Statistics of the completed run, if any.
	Statistics interface{} `json:"statistics,omitempty"`
}

// StartAnalysisResponse acknowledges a started analysis job.
type StartAnalysisResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// AnalysisJobListResponse is returned when listing analysis jobs.
type AnalysisJobListResponse struct {
	Jobs  []AnalysisJobResponse `json:"jobs"`
	Count int                   `json:"count"`
}

// VendorPatternResponse represents one vendor's payment pattern.
type VendorPatternResponse struct {
	VendorID           string  `json:"vendor_id"`
	VendorName         string  `json:"vendor_name"`
	InvoiceCount       int     `json:"invoice_count"`
	TotalAmount        float64 `json:"total_amount"`
	AverageAmount      float64 `json:"average_amount"`
	AveragePaymentDays float64 `json:"average_payment_days"`
	DuplicateCount     int     `json:"duplicate_count"`
	RiskScore          int     `json:"risk_score"`
}

// VendorPatternListResponse is returned when listing vendor patterns.
type VendorPatternListResponse struct {
	Vendors []VendorPatternResponse `json:"vendors"`
	Count   int                     `json:"count"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalRuns        int            `json:"total_runs"`
	TotalMatches     int            `json:"total_matches"`
	ApprovalRequired int            `json:"approval_required"`
	AverageRiskScore float64        `json:"average_risk_score"`
	StatusCounts     map[string]int `json:"status_counts"`
	TenantCounts     map[string]int `json:"tenant_counts"`
}
