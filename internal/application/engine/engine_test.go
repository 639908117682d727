package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apflow/invoice-match-backend/internal/domain/match"
	"github.com/apflow/invoice-match-backend/internal/erp"
)

func testEngine(data erp.DataAccess) *Engine {
	return New(data, Config{
		TenantID: "acme",
		Matching: match.DefaultConfig(),
	}, nil)
}

func seedMock() *erp.MockDataAccess {
	mock := erp.NewMockDataAccess()
	mock.PurchaseOrders = []erp.PurchaseOrder{
		{
			PONumber:        "PO-1",
			POItem:          "10",
			VendorID:        "V-1",
			OrderedQuantity: 10,
			OrderedValue:    1000,
			UnitPrice:       100,
			TaxAmount:       80,
			Currency:        "USD",
			CreatedAt:       time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			DeliveryDate:    time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		},
	}
	mock.GoodsReceipts = []erp.GoodsReceipt{
		{
			GRNumber:         "GR-1",
			GRItem:           "10",
			PONumber:         "PO-1",
			POItem:           "10",
			ReceivedQuantity: 10,
			Currency:         "USD",
		},
	}
	mock.Invoices = []erp.SupplierInvoice{
		{
			InvoiceNumber:    "INV-1",
			InvoiceItem:      "10",
			VendorID:         "V-1",
			PONumber:         "PO-1",
			POItem:           "10",
			GRNumber:         "GR-1",
			GRItem:           "10",
			InvoicedQuantity: 10,
			InvoicedAmount:   1000,
			TaxAmount:        80,
			TotalAmount:      1080,
			Currency:         "USD",
			InvoiceDate:      time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC),
			Status:           erp.InvoiceStatusPending,
		},
		{
			InvoiceNumber:    "INV-2",
			InvoiceItem:      "10",
			VendorID:         "V-2",
			InvoicedQuantity: 5,
			InvoicedAmount:   500,
			TotalAmount:      540,
			Currency:         "USD",
			InvoiceDate:      time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC),
			Status:           erp.InvoiceStatusPending,
		},
	}
	return mock
}

func TestRunAnalysis_MatchesAllPendingInvoices(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	result, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "acme", result.TenantID)
	require.Len(t, result.Matches, 2)

	// INV-1 correlates three-way; INV-2 has no PO reference
	assert.Equal(t, match.TypeThreeWay, result.Matches[0].Type)
	assert.Equal(t, match.StatusNotMatched, result.Matches[1].Status)
	assert.Equal(t, 100, result.Matches[1].RiskScore)

	assert.Equal(t, 2, result.Statistics.TotalInvoices)
	assert.Equal(t, 1, result.Statistics.NotMatched)
	assert.False(t, result.StartedAt.IsZero())
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
}

func TestRunAnalysis_DefaultsToPendingStatus(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	_, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, mock.LastInvoiceFilter.Statuses, 1)
	assert.Equal(t, erp.InvoiceStatusPending, mock.LastInvoiceFilter.Statuses[0])
}

func TestRunAnalysis_FetchesOnlyReferencedDocuments(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	_, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	assert.True(t, mock.GetPOsCalled)
	assert.Equal(t, []string{"PO-1"}, mock.LastPOFilter.PONumbers)
	assert.Equal(t, []string{"GR-1"}, mock.LastGRFilter.GRNumbers)
}

func TestRunAnalysis_NoReferencesSkipsFetch(t *testing.T) {
	mock := erp.NewMockDataAccess()
	mock.Invoices = []erp.SupplierInvoice{
		{InvoiceNumber: "INV-1", InvoiceItem: "10", VendorID: "V-1", Status: erp.InvoiceStatusPending},
	}
	eng := testEngine(mock)

	result, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	assert.False(t, mock.GetPOsCalled)
	assert.False(t, mock.GetGRsCalled)
	assert.Equal(t, 1, result.Statistics.NotMatched)
}

func TestRunAnalysis_FetchErrorPropagates(t *testing.T) {
	mock := seedMock()
	mock.GetInvoicesErr = errors.New("gateway timeout")
	eng := testEngine(mock)

	_, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway timeout")
}

func TestRunAnalysis_OrderPreservedUnderConcurrency(t *testing.T) {
	mock := erp.NewMockDataAccess()
	for i := 0; i < 50; i++ {
		mock.Invoices = append(mock.Invoices, erp.SupplierInvoice{
			InvoiceNumber: fmt.Sprintf("INV-%03d", i),
			InvoiceItem:   "10",
			VendorID:      "V-1",
			Status:        erp.InvoiceStatusPending,
		})
	}
	eng := New(mock, Config{TenantID: "acme", Workers: 4, Matching: match.DefaultConfig()}, nil)

	result, err := eng.RunAnalysis(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, result.Matches, 50)
	for i, m := range result.Matches {
		assert.Equal(t, mock.Invoices[i].InvoiceNumber, m.InvoiceNumber)
	}
}

func TestMatchSingleInvoice_Found(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	result, err := eng.MatchSingleInvoice(context.Background(), "INV-1")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "INV-1", result.InvoiceNumber)
	assert.Equal(t, match.TypeThreeWay, result.Type)
}

func TestMatchSingleInvoice_NotFound(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	_, err := eng.MatchSingleInvoice(context.Background(), "INV-MISSING")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestMatchSingleInvoice_UsesVendorPopulation(t *testing.T) {
	mock := seedMock()
	eng := testEngine(mock)

	_, err := eng.MatchSingleInvoice(context.Background(), "INV-1")

	require.NoError(t, err)
	// Second invoice fetch narrows to the vendor for fraud history
	assert.Equal(t, []string{"V-1"}, mock.LastInvoiceFilter.VendorIDs)
}

func TestAnalyzeVendorPatterns_GroupsAndSorts(t *testing.T) {
	mock := erp.NewMockDataAccess()
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.Invoices = []erp.SupplierInvoice{
		// V-1: two distinct invoices, modest amounts
		{InvoiceNumber: "A-1", VendorID: "V-1", VendorName: "Acme Steel", TotalAmount: 1000, InvoiceDate: date},
		{InvoiceNumber: "A-2", VendorID: "V-1", VendorName: "Acme Steel", TotalAmount: 2000, InvoiceDate: date.AddDate(0, 0, 5)},
		// V-2: duplicate-looking pair
		{InvoiceNumber: "B-1", VendorID: "V-2", VendorName: "Globex", TotalAmount: 500, InvoiceDate: date},
		{InvoiceNumber: "B-2", VendorID: "V-2", VendorName: "Globex", TotalAmount: 500, InvoiceDate: date},
		// V-3: single use
		{InvoiceNumber: "C-1", VendorID: "V-3", VendorName: "Initech", TotalAmount: 300, InvoiceDate: date},
	}
	eng := testEngine(mock)

	patterns, err := eng.AnalyzeVendorPatterns(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, patterns, 3)

	// V-2 has a duplicate (+30), V-3 is single use (+20), V-1 is clean
	assert.Equal(t, "V-2", patterns[0].VendorID)
	assert.Equal(t, 30, patterns[0].RiskScore)
	assert.Equal(t, 1, patterns[0].DuplicateCount)
	assert.Equal(t, "V-3", patterns[1].VendorID)
	assert.Equal(t, 20, patterns[1].RiskScore)
	assert.Equal(t, "V-1", patterns[2].VendorID)
	assert.Equal(t, 0, patterns[2].RiskScore)
	assert.InDelta(t, 1500.0, patterns[2].AverageAmount, 0.001)
}

func TestAnalyzeVendorPatterns_AveragePaymentDays(t *testing.T) {
	mock := erp.NewMockDataAccess()
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.Invoices = []erp.SupplierInvoice{
		{InvoiceNumber: "A-1", VendorID: "V-1", TotalAmount: 100, InvoiceDate: date, DueDate: date.AddDate(0, 0, 30), Status: erp.InvoiceStatusPaid},
		{InvoiceNumber: "A-2", VendorID: "V-1", TotalAmount: 200, InvoiceDate: date, DueDate: date.AddDate(0, 0, 60), Status: erp.InvoiceStatusPaid},
		// Pending invoice does not count toward payment days
		{InvoiceNumber: "A-3", VendorID: "V-1", TotalAmount: 300, InvoiceDate: date, DueDate: date.AddDate(0, 0, 90), Status: erp.InvoiceStatusPending},
	}
	eng := testEngine(mock)

	patterns, err := eng.AnalyzeVendorPatterns(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.InDelta(t, 45.0, patterns[0].AveragePaymentDays, 0.001)
}

func TestAnalyzeVendorPatterns_TieBrokenByVendorID(t *testing.T) {
	mock := erp.NewMockDataAccess()
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.Invoices = []erp.SupplierInvoice{
		{InvoiceNumber: "B-1", VendorID: "V-B", TotalAmount: 100, InvoiceDate: date},
		{InvoiceNumber: "A-1", VendorID: "V-A", TotalAmount: 100, InvoiceDate: date},
	}
	eng := testEngine(mock)

	patterns, err := eng.AnalyzeVendorPatterns(context.Background(), erp.InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "V-A", patterns[0].VendorID)
	assert.Equal(t, "V-B", patterns[1].VendorID)
}
