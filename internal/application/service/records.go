package service

import (
	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/domain/match"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// matchDetail is the JSON payload stored alongside each match record.
type matchDetail struct {
	Discrepancies       interface{} `json:"discrepancies,omitempty"`
	ToleranceViolations interface{} `json:"tolerance_violations,omitempty"`
	FraudAlerts         interface{} `json:"fraud_alerts,omitempty"`
}

// RecordsFromResult converts an analysis result into its persistence
// shape: one run row plus one record per matched invoice line.
func RecordsFromResult(result *engine.AnalysisResult) (*storage.MatchRun, []*storage.MatchRecord) {
	run := &storage.MatchRun{
		RunID:             result.RunID,
		TenantID:          result.TenantID,
		StartedAt:         result.StartedAt,
		CompletedAt:       result.CompletedAt,
		Status:            storage.RunStatusCompleted,
		TotalInvoices:     result.Statistics.TotalInvoices,
		FullyMatched:      result.Statistics.FullyMatched,
		PartiallyMatched:  result.Statistics.PartiallyMatched,
		ToleranceExceeded: result.Statistics.ToleranceExceeded,
		NotMatched:        result.Statistics.NotMatched,
		Blocked:           result.Statistics.Blocked,
		ApprovalRequired:  result.Statistics.ApprovalRequired,
		FraudAlerts:       result.Statistics.FraudAlerts,
		Discrepancies:     result.Statistics.Discrepancies,
	}

	records := make([]*storage.MatchRecord, 0, len(result.Matches))
	for i := range result.Matches {
		records = append(records, recordFromMatch(result.RunID, result.TenantID, &result.Matches[i]))
	}
	return run, records
}

func recordFromMatch(runID, tenantID string, m *match.Result) *storage.MatchRecord {
	record := &storage.MatchRecord{
		RunID:            runID,
		TenantID:         tenantID,
		InvoiceNumber:    m.InvoiceNumber,
		InvoiceItem:      m.InvoiceItem,
		PONumber:         m.PONumber,
		POItem:           m.POItem,
		GRNumber:         m.GRNumber,
		GRItem:           m.GRItem,
		Status:           string(m.Status),
		MatchType:        string(m.Type),
		RiskScore:        m.RiskScore,
		ApprovalRequired: m.ApprovalRequired,
		MatchedAt:        m.MatchedAt,
		DiscrepancyCount: len(m.Discrepancies),
		ViolationCount:   len(m.ToleranceViolations),
		AlertCount:       len(m.FraudAlerts),
	}

	if len(m.Discrepancies) > 0 || len(m.ToleranceViolations) > 0 || len(m.FraudAlerts) > 0 {
		detail := matchDetail{}
		if len(m.Discrepancies) > 0 {
			detail.Discrepancies = m.Discrepancies
		}
		if len(m.ToleranceViolations) > 0 {
			detail.ToleranceViolations = m.ToleranceViolations
		}
		if len(m.FraudAlerts) > 0 {
			detail.FraudAlerts = m.FraudAlerts
		}
		// Serialization of plain structs cannot fail
		_ = record.SetDetail(detail)
	}

	return record
}
