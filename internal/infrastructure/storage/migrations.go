package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_record_indexes",
		Up:      migration002AddMatchRecordIndexes,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS match_runs (
		run_id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL,
		error_message TEXT DEFAULT '',
		total_invoices INTEGER DEFAULT 0,
		fully_matched INTEGER DEFAULT 0,
		partially_matched INTEGER DEFAULT 0,
		tolerance_exceeded INTEGER DEFAULT 0,
		not_matched INTEGER DEFAULT 0,
		blocked INTEGER DEFAULT 0,
		approval_required INTEGER DEFAULT 0,
		fraud_alerts INTEGER DEFAULT 0,
		discrepancies INTEGER DEFAULT 0
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE TABLE IF NOT EXISTS match_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		invoice_number TEXT NOT NULL,
		invoice_item TEXT NOT NULL,
		po_number TEXT DEFAULT '',
		po_item TEXT DEFAULT '',
		gr_number TEXT DEFAULT '',
		gr_item TEXT DEFAULT '',
		status TEXT NOT NULL,
		match_type TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		approval_required INTEGER NOT NULL,
		matched_at DATETIME NOT NULL,
		discrepancy_count INTEGER DEFAULT 0,
		violation_count INTEGER DEFAULT 0,
		alert_count INTEGER DEFAULT 0,
		detail_json TEXT DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES match_runs(run_id)
	)`)
	return err
}

func migration002AddMatchRecordIndexes(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_match_records_run ON match_records(run_id)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_match_records_invoice ON match_records(invoice_number)`); err != nil {
		return err
	}
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_match_runs_tenant ON match_runs(tenant_id)`)
	return err
}
