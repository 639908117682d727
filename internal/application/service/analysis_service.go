// Package service manages asynchronous analysis jobs on top of the
// matching engine and persists their outcomes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/erp"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// JobStatus represents the current state of an analysis job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// AnalysisRequest holds parameters for starting an analysis run.
type AnalysisRequest struct {
	VendorIDs []string
	Statuses  []string
	FromDate  *time.Time
	ToDate    *time.Time
}

// AnalysisJob represents a running or completed analysis job.
type AnalysisJob struct {
	ID          string
	Status      JobStatus
	Request     AnalysisRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *engine.AnalysisResult
	Error       error
	cancelFunc  context.CancelFunc
}

// AnalysisService manages analysis jobs. One analysis runs at a time;
// a second start request while one is in flight is rejected rather
// than queued.
type AnalysisService struct {
	engine  *engine.Engine
	storage storage.Repository
	logger  *slog.Logger

	jobs      map[string]*AnalysisJob
	jobsMutex sync.RWMutex

	// Only one analysis may run concurrently against the ERP.
	runLock sync.Mutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(eng *engine.Engine, store storage.Repository, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		engine:  eng,
		storage: store,
		logger:  logger,
		jobs:    make(map[string]*AnalysisJob),
	}
}

// StartAnalysis starts a new analysis job asynchronously.
// Note: The passed context is NOT used as the parent for the background
// job. Jobs run under context.Background() so they survive the HTTP
// request that started them; use CancelAnalysis to stop a running job.
func (s *AnalysisService) StartAnalysis(_ context.Context, req AnalysisRequest) (string, error) {
	if !s.runLock.TryLock() {
		return "", fmt.Errorf("an analysis is already running")
	}

	jobID := fmt.Sprintf("analysis-%d", time.Now().UnixNano())
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &AnalysisJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runAnalysisJob(jobCtx, job)

	s.logger.Info("analysis job started",
		"job_id", jobID,
		"vendors", len(req.VendorIDs),
		"statuses", req.Statuses,
	)

	return jobID, nil
}

// GetAnalysisJob retrieves a job by ID.
func (s *AnalysisService) GetAnalysisJob(jobID string) (*AnalysisJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListAnalysisJobs returns all known jobs.
func (s *AnalysisService) ListAnalysisJobs() []*AnalysisJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*AnalysisJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelAnalysis cancels a pending or running analysis job.
func (s *AnalysisService) CancelAnalysis(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now

	s.logger.Info("analysis job cancelled", "job_id", jobID)
	return nil
}

// runAnalysisJob executes the analysis in a background goroutine.
func (s *AnalysisService) runAnalysisJob(ctx context.Context, job *AnalysisJob) {
	defer s.runLock.Unlock()

	s.setJobStatus(job.ID, StatusRunning)

	result, err := s.engine.RunAnalysis(ctx, requestFilter(job.Request))
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelAnalysis
			return
		}
		s.failJob(job.ID, err)
		return
	}

	if err := s.persistResult(result); err != nil {
		// The analysis itself succeeded; surface the persistence
		// failure without discarding the in-memory result.
		s.logger.Error("failed to persist analysis result", "run_id", result.RunID, "error", err)
	}

	s.completeJob(job.ID, result)
}

// persistResult writes the run and its per-invoice records.
func (s *AnalysisService) persistResult(result *engine.AnalysisResult) error {
	if s.storage == nil {
		return nil
	}

	run, records := RecordsFromResult(result)
	if err := s.storage.SaveRun(run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := s.storage.SaveMatches(records); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}
	return nil
}

func (s *AnalysisService) setJobStatus(jobID string, status JobStatus) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
	}
}

func (s *AnalysisService) completeJob(jobID string, result *engine.AnalysisResult) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		s.logger.Info("analysis job completed",
			"job_id", jobID,
			"run_id", result.RunID,
			"total", result.Statistics.TotalInvoices,
			"fully_matched", result.Statistics.FullyMatched,
			"blocked", result.Statistics.Blocked,
		)
	}
}

func (s *AnalysisService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		s.logger.Error("analysis job failed", "job_id", jobID, "error", err)
	}
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *AnalysisService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		switch job.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old analysis jobs", "removed", removed)
	}
	return removed
}

// StartBackgroundCleanup periodically removes old finished jobs. Call
// StopBackgroundCleanup to stop it.
func (s *AnalysisService) StartBackgroundCleanup(checkInterval, maxAge time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				s.CleanupOldJobs(maxAge)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and blocks until it
// has exited.
func (s *AnalysisService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}

func requestFilter(req AnalysisRequest) erp.InvoiceFilter {
	statuses := make([]erp.InvoiceStatus, 0, len(req.Statuses))
	for _, st := range req.Statuses {
		statuses = append(statuses, erp.InvoiceStatus(st))
	}
	return erp.InvoiceFilter{
		VendorIDs: req.VendorIDs,
		Statuses:  statuses,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
	}
}
