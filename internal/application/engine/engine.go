// Package engine orchestrates invoice matching runs: it fetches
// canonical records through the data-access contract, fans invoice
// lines out to the matcher and aggregates the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apflow/invoice-match-backend/internal/domain/match"
	"github.com/apflow/invoice-match-backend/internal/erp"
)

// ErrInvoiceNotFound is returned when a single-invoice match names an
// invoice the ERP does not know.
var ErrInvoiceNotFound = errors.New("invoice not found")

const defaultWorkers = 8

// Config wires an engine instance.
type Config struct {
	TenantID string
	// Workers bounds matching concurrency. Zero means the default (8).
	Workers  int
	Matching match.Config
}

// Statistics aggregates the outcomes of one analysis run.
type Statistics struct {
	TotalInvoices     int `json:"total_invoices"`
	FullyMatched      int `json:"fully_matched"`
	PartiallyMatched  int `json:"partially_matched"`
	ToleranceExceeded int `json:"tolerance_exceeded"`
	NotMatched        int `json:"not_matched"`
	Blocked           int `json:"blocked"`
	ApprovalRequired  int `json:"approval_required"`
	FraudAlerts       int `json:"fraud_alerts"`
	Discrepancies     int `json:"discrepancies"`
}

// AnalysisResult is the full outcome of one analysis run.
type AnalysisResult struct {
	RunID       string         `json:"run_id"`
	TenantID    string         `json:"tenant_id"`
	Matches     []match.Result `json:"matches"`
	Statistics  Statistics     `json:"statistics"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// VendorPaymentPattern summarizes one vendor's invoice history.
type VendorPaymentPattern struct {
	VendorID           string  `json:"vendor_id"`
	VendorName         string  `json:"vendor_name"`
	InvoiceCount       int     `json:"invoice_count"`
	TotalAmount        float64 `json:"total_amount"`
	AverageAmount      float64 `json:"average_amount"`
	AveragePaymentDays float64 `json:"average_payment_days"`
	DuplicateCount     int     `json:"duplicate_count"`
	RiskScore          int     `json:"risk_score"`
}

// Engine runs matching analyses against one tenant's ERP data.
type Engine struct {
	data     erp.DataAccess
	matcher  *match.Matcher
	logger   *slog.Logger
	tenantID string
	workers  int
}

// New creates an engine.
func New(data erp.DataAccess, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Engine{
		data:     data,
		matcher:  match.NewMatcher(cfg.Matching),
		logger:   logger,
		tenantID: cfg.TenantID,
		workers:  workers,
	}
}

// RunAnalysis fetches invoices matching the filter, correlates their
// reference documents and matches every line. An empty status filter
// defaults to PENDING invoices only.
func (e *Engine) RunAnalysis(ctx context.Context, filter erp.InvoiceFilter) (*AnalysisResult, error) {
	startedAt := time.Now()
	runID := uuid.NewString()

	if len(filter.Statuses) == 0 {
		filter.Statuses = []erp.InvoiceStatus{erp.InvoiceStatusPending}
	}

	invoices, err := e.data.GetSupplierInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}

	e.logger.Info("analysis started",
		"run_id", runID,
		"tenant_id", e.tenantID,
		"invoices", len(invoices))

	pos, grs, err := e.fetchReferences(ctx, invoices)
	if err != nil {
		return nil, err
	}

	poIndex := make(map[string]erp.PurchaseOrder, len(pos))
	for _, po := range pos {
		poIndex[po.Key()] = po
	}
	grIndex := make(map[string]erp.GoodsReceipt, len(grs))
	for _, gr := range grs {
		grIndex[gr.Key()] = gr
	}

	matches := e.matchBatch(invoices, poIndex, grIndex)
	stats := aggregate(matches)

	result := &AnalysisResult{
		RunID:       runID,
		TenantID:    e.tenantID,
		Matches:     matches,
		Statistics:  stats,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}

	e.logger.Info("analysis completed",
		"run_id", runID,
		"total", stats.TotalInvoices,
		"fully_matched", stats.FullyMatched,
		"blocked", stats.Blocked,
		"fraud_alerts", stats.FraudAlerts,
		"duration", result.CompletedAt.Sub(startedAt).String())

	return result, nil
}

// MatchSingleInvoice matches one invoice by number, using the vendor's
// full invoice population for the history-dependent fraud heuristics.
func (e *Engine) MatchSingleInvoice(ctx context.Context, invoiceNumber string) (*match.Result, error) {
	invoices, err := e.data.GetSupplierInvoices(ctx, erp.InvoiceFilter{
		InvoiceNumbers: []string{invoiceNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", invoiceNumber, err)
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, invoiceNumber)
	}
	inv := invoices[0]

	population, err := e.data.GetSupplierInvoices(ctx, erp.InvoiceFilter{
		VendorIDs: []string{inv.VendorID},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch vendor %s invoices: %w", inv.VendorID, err)
	}

	pos, grs, err := e.fetchReferences(ctx, []erp.SupplierInvoice{inv})
	if err != nil {
		return nil, err
	}

	poIndex := make(map[string]erp.PurchaseOrder, len(pos))
	for _, po := range pos {
		poIndex[po.Key()] = po
	}
	grIndex := make(map[string]erp.GoodsReceipt, len(grs))
	for _, gr := range grs {
		grIndex[gr.Key()] = gr
	}

	po, gr := match.Correlate(inv, poIndex, grIndex)
	result := e.matcher.MatchInvoice(inv, po, gr, population)
	return &result, nil
}

// AnalyzeVendorPatterns aggregates the invoice population per vendor
// and scores each vendor's payment behavior. Patterns come back sorted
// by risk, highest first, with ties broken by vendor ID.
func (e *Engine) AnalyzeVendorPatterns(ctx context.Context, filter erp.InvoiceFilter) ([]VendorPaymentPattern, error) {
	invoices, err := e.data.GetSupplierInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}

	byVendor := make(map[string][]erp.SupplierInvoice)
	for _, inv := range invoices {
		byVendor[inv.VendorID] = append(byVendor[inv.VendorID], inv)
	}

	patterns := make([]VendorPaymentPattern, 0, len(byVendor))
	for _, vendorInvoices := range byVendor {
		patterns = append(patterns, buildVendorPattern(vendorInvoices))
	}

	sortVendorPatterns(patterns)
	return patterns, nil
}

// fetchReferences loads the PO and GR lines the invoice batch refers
// to, deduplicated by document number.
func (e *Engine) fetchReferences(ctx context.Context, invoices []erp.SupplierInvoice) ([]erp.PurchaseOrder, []erp.GoodsReceipt, error) {
	var poNumbers, grNumbers []string
	for _, inv := range invoices {
		if inv.HasPOReference() {
			poNumbers = append(poNumbers, inv.PONumber)
		}
		if inv.HasGRReference() {
			grNumbers = append(grNumbers, inv.GRNumber)
		}
	}
	poNumbers = distinct(poNumbers)
	grNumbers = distinct(grNumbers)

	var pos []erp.PurchaseOrder
	if len(poNumbers) > 0 {
		var err error
		pos, err = e.data.GetPurchaseOrders(ctx, erp.POFilter{PONumbers: poNumbers})
		if err != nil {
			return nil, nil, fmt.Errorf("fetch purchase orders: %w", err)
		}
	}

	var grs []erp.GoodsReceipt
	if len(grNumbers) > 0 {
		var err error
		grs, err = e.data.GetGoodsReceipts(ctx, erp.GRFilter{GRNumbers: grNumbers})
		if err != nil {
			return nil, nil, fmt.Errorf("fetch goods receipts: %w", err)
		}
	}

	return pos, grs, nil
}

// matchBatch matches every invoice line, fanning out across the worker
// pool. Results land at the invoice's own index, so output order always
// mirrors input order regardless of worker scheduling.
func (e *Engine) matchBatch(invoices []erp.SupplierInvoice, poIndex map[string]erp.PurchaseOrder, grIndex map[string]erp.GoodsReceipt) []match.Result {
	results := make([]match.Result, len(invoices))

	if e.workers <= 1 || len(invoices) < 2 {
		for i, inv := range invoices {
			po, gr := match.Correlate(inv, poIndex, grIndex)
			results[i] = e.matcher.MatchInvoice(inv, po, gr, invoices)
		}
		return results
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				inv := invoices[i]
				po, gr := match.Correlate(inv, poIndex, grIndex)
				results[i] = e.matcher.MatchInvoice(inv, po, gr, invoices)
			}
		}()
	}
	for i := range invoices {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

func aggregate(matches []match.Result) Statistics {
	stats := Statistics{TotalInvoices: len(matches)}
	for _, m := range matches {
		switch m.Status {
		case match.StatusFullyMatched:
			stats.FullyMatched++
		case match.StatusPartiallyMatched:
			stats.PartiallyMatched++
		case match.StatusToleranceExceeded:
			stats.ToleranceExceeded++
		case match.StatusNotMatched:
			stats.NotMatched++
		case match.StatusBlocked:
			stats.Blocked++
		}
		if m.ApprovalRequired {
			stats.ApprovalRequired++
		}
		stats.FraudAlerts += len(m.FraudAlerts)
		stats.Discrepancies += len(m.Discrepancies)
	}
	return stats
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
