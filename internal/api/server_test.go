package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/application/service"
	"github.com/apflow/invoice-match-backend/internal/domain/match"
	"github.com/apflow/invoice-match-backend/internal/erp"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

func newTestServer(t *testing.T, data *erp.MockDataAccess, repo storage.Repository) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var eng *engine.Engine
	var analysis *service.AnalysisService
	if data != nil {
		eng = engine.New(data, engine.Config{
			TenantID: "acme",
			Matching: match.DefaultConfig(),
		}, logger)
		analysis = service.NewAnalysisService(eng, repo, logger)
	}

	return NewServer(DefaultConfig(), repo, eng, analysis, logger)
}

func doRequest(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func seedERP(data *erp.MockDataAccess) {
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	data.PurchaseOrders = []erp.PurchaseOrder{{
		PONumber:        "PO-1",
		POItem:          "10",
		VendorID:        "V-1",
		OrderedQuantity: 10,
		OrderedValue:    1000,
		UnitPrice:       100,
		Currency:        "USD",
		CreatedAt:       day.AddDate(0, 0, -5),
	}}
	data.Invoices = []erp.SupplierInvoice{
		{
			InvoiceNumber:    "INV-1",
			InvoiceItem:      "10",
			VendorID:         "V-1",
			PONumber:         "PO-1",
			POItem:           "10",
			InvoicedQuantity: 10,
			InvoicedAmount:   1000,
			TotalAmount:      1000,
			Currency:         "USD",
			InvoiceDate:      day,
			Status:           erp.InvoiceStatusPending,
		},
		{
			InvoiceNumber: "INV-OLD",
			InvoiceItem:   "10",
			VendorID:      "V-1",
			TotalAmount:   4321,
			InvoiceDate:   day.AddDate(-1, 0, 0),
			Status:        erp.InvoiceStatusPaid,
		},
	}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestServer_RunsRoutes(t *testing.T) {
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveRun(&storage.MatchRun{
		RunID:     "run-1",
		TenantID:  "acme",
		StartedAt: time.Now(),
		Status:    storage.RunStatusCompleted,
	}))
	srv := newTestServer(t, nil, repo)

	rec := doRequest(srv, http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/runs/run-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/runs/run-1/matches")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Stats(t *testing.T) {
	srv := newTestServer(t, nil, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodGet, "/api/stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Zero(t, response.TotalRuns)
}

func TestServer_LiveRoutesAbsentWithoutEngine(t *testing.T) {
	srv := newTestServer(t, nil, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodPost, "/api/invoices/INV-1/match")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/analysis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MatchSingleInvoice(t *testing.T) {
	data := erp.NewMockDataAccess()
	seedERP(data)
	srv := newTestServer(t, data, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodPost, "/api/invoices/INV-1/match")

	assert.Equal(t, http.StatusOK, rec.Code)
	var result match.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "INV-1", result.InvoiceNumber)
	assert.Equal(t, match.StatusFullyMatched, result.Status)
}

func TestServer_MatchSingleInvoice_NotFound(t *testing.T) {
	data := erp.NewMockDataAccess()
	seedERP(data)
	srv := newTestServer(t, data, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodPost, "/api/invoices/INV-404/match")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_VendorPatterns(t *testing.T) {
	data := erp.NewMockDataAccess()
	seedERP(data)
	srv := newTestServer(t, data, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodGet, "/api/vendors/patterns?vendor_id=V-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.VendorPatternListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "V-1", response.Vendors[0].VendorID)
	assert.Equal(t, 2, response.Vendors[0].InvoiceCount)
}

func TestServer_AnalysisLifecycle(t *testing.T) {
	data := erp.NewMockDataAccess()
	seedERP(data)
	srv := newTestServer(t, data, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodPost, "/api/analysis")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started dto.StartAnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.JobID)

	// Poll until the background job finishes
	var job dto.AnalysisJobResponse
	require.Eventually(t, func() bool {
		rec := doRequest(srv, http.MethodGet, "/api/analysis/"+started.JobID)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			return false
		}
		return job.Status == "completed" || job.Status == "failed"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "completed", job.Status)
	assert.NotEmpty(t, job.RunID)

	rec = doRequest(srv, http.MethodGet, "/api/analysis")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A finished job can no longer be cancelled
	rec = doRequest(srv, http.MethodDelete, "/api/analysis/"+started.JobID)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_AnalysisUnknownJob(t *testing.T) {
	data := erp.NewMockDataAccess()
	seedERP(data)
	srv := newTestServer(t, data, storage.NewMockRepository())

	rec := doRequest(srv, http.MethodGet, "/api/analysis/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
