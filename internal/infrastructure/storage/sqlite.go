package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for match runs and records.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRun saves or updates an analysis run
func (s *Storage) SaveRun(run *MatchRun) error {
	query := `
	INSERT OR REPLACE INTO match_runs
	(run_id, tenant_id, started_at, completed_at, status, error_message,
	 total_invoices, fully_matched, partially_matched, tolerance_exceeded,
	 not_matched, blocked, approval_required, fraud_alerts, discrepancies)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID,
		run.TenantID,
		run.StartedAt,
		run.CompletedAt,
		run.Status,
		run.ErrorMessage,
		run.TotalInvoices,
		run.FullyMatched,
		run.PartiallyMatched,
		run.ToleranceExceeded,
		run.NotMatched,
		run.Blocked,
		run.ApprovalRequired,
		run.FraudAlerts,
		run.Discrepancies,
	)

	return err
}

// GetRun retrieves a run by its ID, nil if absent
func (s *Storage) GetRun(runID string) (*MatchRun, error) {
	query := `
	SELECT run_id, tenant_id, started_at, completed_at, status, error_message,
	       total_invoices, fully_matched, partially_matched, tolerance_exceeded,
	       not_matched, blocked, approval_required, fraud_alerts, discrepancies
	FROM match_runs WHERE run_id = ?
	`

	run := &MatchRun{}
	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.TenantID,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Status,
		&run.ErrorMessage,
		&run.TotalInvoices,
		&run.FullyMatched,
		&run.PartiallyMatched,
		&run.ToleranceExceeded,
		&run.NotMatched,
		&run.Blocked,
		&run.ApprovalRequired,
		&run.FraudAlerts,
		&run.Discrepancies,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]MatchRun, error) {
	query := `
	SELECT run_id, tenant_id, started_at, completed_at, status, error_message,
	       total_invoices, fully_matched, partially_matched, tolerance_exceeded,
	       not_matched, blocked, approval_required, fraud_alerts, discrepancies
	FROM match_runs ORDER BY started_at DESC LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []MatchRun
	for rows.Next() {
		var run MatchRun
		err := rows.Scan(
			&run.RunID,
			&run.TenantID,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Status,
			&run.ErrorMessage,
			&run.TotalInvoices,
			&run.FullyMatched,
			&run.PartiallyMatched,
			&run.ToleranceExceeded,
			&run.NotMatched,
			&run.Blocked,
			&run.ApprovalRequired,
			&run.FraudAlerts,
			&run.Discrepancies,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveMatches saves the match records of one run in a single transaction
func (s *Storage) SaveMatches(records []*MatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	query := `
	INSERT INTO match_records
	(run_id, tenant_id, invoice_number, invoice_item, po_number, po_item,
	 gr_number, gr_item, status, match_type, risk_score, approval_required,
	 matched_at, discrepancy_count, violation_count, alert_count, detail_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		_, err := stmt.Exec(
			record.RunID,
			record.TenantID,
			record.InvoiceNumber,
			record.InvoiceItem,
			record.PONumber,
			record.POItem,
			record.GRNumber,
			record.GRItem,
			record.Status,
			record.MatchType,
			record.RiskScore,
			record.ApprovalRequired,
			record.MatchedAt,
			record.DiscrepancyCount,
			record.ViolationCount,
			record.AlertCount,
			record.DetailJSON,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save match for invoice %s: %w", record.InvoiceNumber, err)
		}
	}

	return tx.Commit()
}

// ListMatches returns all match records of a run
func (s *Storage) ListMatches(runID string) ([]MatchRecord, error) {
	return s.queryMatches(`run_id = ?`, runID)
}

// GetMatchesByInvoice returns the match history of one invoice number
func (s *Storage) GetMatchesByInvoice(invoiceNumber string) ([]MatchRecord, error) {
	return s.queryMatches(`invoice_number = ?`, invoiceNumber)
}

func (s *Storage) queryMatches(where string, arg interface{}) ([]MatchRecord, error) {
	query := `
	SELECT id, run_id, tenant_id, invoice_number, invoice_item, po_number,
	       po_item, gr_number, gr_item, status, match_type, risk_score,
	       approval_required, matched_at, discrepancy_count, violation_count,
	       alert_count, detail_json
	FROM match_records WHERE ` + where + ` ORDER BY matched_at DESC, id DESC`

	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []MatchRecord
	for rows.Next() {
		var record MatchRecord
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.TenantID,
			&record.InvoiceNumber,
			&record.InvoiceItem,
			&record.PONumber,
			&record.POItem,
			&record.GRNumber,
			&record.GRItem,
			&record.Status,
			&record.MatchType,
			&record.RiskScore,
			&record.ApprovalRequired,
			&record.MatchedAt,
			&record.DiscrepancyCount,
			&record.ViolationCount,
			&record.AlertCount,
			&record.DetailJSON,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetStats returns aggregate statistics over all runs and records
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{
		StatusCounts: make(map[string]int),
		TenantCounts: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM match_runs`).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN approval_required THEN 1 ELSE 0 END), 0),
	       COALESCE(AVG(risk_score), 0)
	FROM match_records
	`).Scan(&stats.TotalMatches, &stats.ApprovalRequired, &stats.AverageRiskScore)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM match_records GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tenantRows, err := s.db.Query(`SELECT tenant_id, COUNT(*) FROM match_records GROUP BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tenantRows.Close() }()

	for tenantRows.Next() {
		var tenant string
		var count int
		if err := tenantRows.Scan(&tenant, &count); err != nil {
			return nil, err
		}
		stats.TenantCounts[tenant] = count
	}
	return stats, tenantRows.Err()
}
