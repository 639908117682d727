package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apflow/invoice-match-backend/internal/api/dto"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// requestWithParam builds a request carrying a chi URL parameter, so
// handlers can be exercised without mounting a full router.
func requestWithParam(method, target, name, value string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seedRun(t *testing.T, repo *storage.MockRepository, runID string) {
	t.Helper()
	require.NoError(t, repo.SaveRun(&storage.MatchRun{
		RunID:         runID,
		TenantID:      "acme",
		StartedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt:   time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
		Status:        storage.RunStatusCompleted,
		TotalInvoices: 3,
		FullyMatched:  2,
		Blocked:       1,
	}))
}

func TestRunsHandler_List(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRun(t, repo, "run-1")
	seedRun(t, repo, "run-2")
	handler := NewRunsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.RunListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
	assert.Len(t, response.Runs, 2)
}

func TestRunsHandler_List_RepositoryError(t *testing.T) {
	repo := storage.NewMockRepository()
	repo.ListRunsErr = errors.New("db closed")
	handler := NewRunsHandler(repo)

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeInternalError, apiErr.Code)
}

func TestRunsHandler_Get(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRun(t, repo, "run-1")
	handler := NewRunsHandler(repo)

	req := requestWithParam(http.MethodGet, "/api/runs/run-1", "runId", "run-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "run-1", response.RunID)
	assert.Equal(t, "acme", response.TenantID)
	assert.Equal(t, "2026-03-01T10:00:00Z", response.StartedAt)
	assert.Equal(t, "2026-03-01T10:05:00Z", response.CompletedAt)
	assert.Equal(t, 3, response.TotalInvoices)
}

func TestRunsHandler_Get_NotFound(t *testing.T) {
	handler := NewRunsHandler(storage.NewMockRepository())

	req := requestWithParam(http.MethodGet, "/api/runs/nope", "runId", "nope")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, dto.ErrCodeNotFound, apiErr.Code)
}

func TestRunsHandler_ListMatches(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRun(t, repo, "run-1")
	record := &storage.MatchRecord{
		RunID:         "run-1",
		TenantID:      "acme",
		InvoiceNumber: "INV-1",
		InvoiceItem:   "10",
		Status:        "BLOCKED",
		MatchType:     "THREE_WAY",
		RiskScore:     80,
		MatchedAt:     time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC),
	}
	require.NoError(t, record.SetDetail(map[string]string{"reason": "vendor mismatch"}))
	require.NoError(t, repo.SaveMatches([]*storage.MatchRecord{record}))
	handler := NewRunsHandler(repo)

	req := requestWithParam(http.MethodGet, "/api/runs/run-1/matches", "runId", "run-1")
	rec := httptest.NewRecorder()

	handler.ListMatches(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response dto.MatchListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	got := response.Matches[0]
	assert.Equal(t, "INV-1", got.InvoiceNumber)
	assert.Equal(t, "BLOCKED", got.Status)
	assert.Equal(t, 80, got.RiskScore)
	// Stored detail payload is inlined, not double-encoded
	detail, ok := got.Detail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "vendor mismatch", detail["reason"])
}

func TestRunsHandler_ListMatches_UnknownRun(t *testing.T) {
	handler := NewRunsHandler(storage.NewMockRepository())

	req := requestWithParam(http.MethodGet, "/api/runs/nope/matches", "runId", "nope")
	rec := httptest.NewRecorder()

	handler.ListMatches(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil)
	assert.Equal(t, 5, ParseIntParam(req, "limit", 20))

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	assert.Equal(t, 20, ParseIntParam(req, "limit", 20))

	req = httptest.NewRequest(http.MethodGet, "/api/runs?limit=abc", nil)
	assert.Equal(t, 20, ParseIntParam(req, "limit", 20))
}
