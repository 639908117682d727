package dto

// StartAnalysisRequest starts a new analysis run.
type StartAnalysisRequest struct {
	VendorIDs []string `json:"vendor_ids,omitempty"`
	Statuses  []string `json:"statuses,omitempty"`
	FromDate  string   `json:"from_date,omitempty"` // YYYY-MM-DD
	ToDate    string   `json:"to_date,omitempty"`   // YYYY-MM-DD
}
