package storage

import "sort"

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	runs    map[string]*MatchRun
	matches map[string][]*MatchRecord // Keyed by run_id
	nextID  int64

	// Hooks for test assertions
	SaveRunCalled     bool
	LastSavedRun      *MatchRun
	SaveMatchesCalled bool
	LastSavedMatches  []*MatchRecord
	GetRunCalled      bool
	GetStatsCalled    bool

	// Error injection for testing error paths
	SaveRunErr     error
	GetRunErr      error
	ListRunsErr    error
	SaveMatchesErr error
	ListMatchesErr error
	GetStatsErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:    make(map[string]*MatchRun),
		matches: make(map[string][]*MatchRecord),
		nextID:  1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveRun saves a run to the in-memory map
func (m *MockRepository) SaveRun(run *MatchRun) error {
	m.SaveRunCalled = true
	m.LastSavedRun = run
	if m.SaveRunErr != nil {
		return m.SaveRunErr
	}
	// Deep copy to avoid test mutations
	copied := *run
	m.runs[run.RunID] = &copied
	return nil
}

// GetRun retrieves a run by its ID, nil if absent
func (m *MockRepository) GetRun(runID string) (*MatchRun, error) {
	m.GetRunCalled = true
	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns the most recent runs, newest first
func (m *MockRepository) ListRuns(limit int) ([]MatchRun, error) {
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	runs := make([]MatchRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SaveMatches saves match records to the in-memory map
func (m *MockRepository) SaveMatches(records []*MatchRecord) error {
	m.SaveMatchesCalled = true
	m.LastSavedMatches = records
	if m.SaveMatchesErr != nil {
		return m.SaveMatchesErr
	}
	for _, record := range records {
		copied := *record
		copied.ID = m.nextID
		m.nextID++
		m.matches[record.RunID] = append(m.matches[record.RunID], &copied)
	}
	return nil
}

// ListMatches returns all match records of a run
func (m *MockRepository) ListMatches(runID string) ([]MatchRecord, error) {
	if m.ListMatchesErr != nil {
		return nil, m.ListMatchesErr
	}
	var records []MatchRecord
	for _, record := range m.matches[runID] {
		records = append(records, *record)
	}
	return records, nil
}

// GetMatchesByInvoice returns the match history of one invoice number
func (m *MockRepository) GetMatchesByInvoice(invoiceNumber string) ([]MatchRecord, error) {
	if m.ListMatchesErr != nil {
		return nil, m.ListMatchesErr
	}
	var records []MatchRecord
	for _, runRecords := range m.matches {
		for _, record := range runRecords {
			if record.InvoiceNumber == invoiceNumber {
				records = append(records, *record)
			}
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].MatchedAt.After(records[j].MatchedAt)
	})
	return records, nil
}

// GetStats returns aggregate statistics over the in-memory data
func (m *MockRepository) GetStats() (*Stats, error) {
	m.GetStatsCalled = true
	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}
	stats := &Stats{
		TotalRuns:    len(m.runs),
		StatusCounts: make(map[string]int),
		TenantCounts: make(map[string]int),
	}
	var riskSum int
	for _, runRecords := range m.matches {
		for _, record := range runRecords {
			stats.TotalMatches++
			riskSum += record.RiskScore
			if record.ApprovalRequired {
				stats.ApprovalRequired++
			}
			stats.StatusCounts[record.Status]++
			stats.TenantCounts[record.TenantID]++
		}
	}
	if stats.TotalMatches > 0 {
		stats.AverageRiskScore = float64(riskSum) / float64(stats.TotalMatches)
	}
	return stats, nil
}
