package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	RunRepository
	MatchRepository
	Close() error
}

// RunRepository handles analysis run records
type RunRepository interface {
	// SaveRun saves or updates an analysis run
	SaveRun(run *MatchRun) error

	// GetRun retrieves a run by its ID, nil if absent
	GetRun(runID string) (*MatchRun, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]MatchRun, error)
}

// MatchRepository handles per-invoice match records
type MatchRepository interface {
	// SaveMatches saves the match records of one run
	SaveMatches(records []*MatchRecord) error

	// ListMatches returns all match records of a run
	ListMatches(runID string) ([]MatchRecord, error)

	// GetMatchesByInvoice returns the match history of one invoice number
	GetMatchesByInvoice(invoiceNumber string) ([]MatchRecord, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}
