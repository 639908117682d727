package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		APIKey:   "secret",
		TenantID: "acme",
		RetryMax: 1,
	}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(ClientConfig{TenantID: "acme"}, nil)
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "http://localhost"}, nil)
	assert.Error(t, err)
}

func TestGetSupplierInvoices_DecodesWireFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/supplier-invoices", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "acme", r.Header.Get("X-Tenant-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"invoiceNumber": "INV-100",
			"invoiceItem": "10",
			"vendorId": "V-1",
			"vendorName": "Initech",
			"poNumber": "PO-100",
			"poItem": "10",
			"invoicedQuantity": "12",
			"invoicedAmount": "1188.00",
			"taxAmount": "95.04",
			"totalAmount": "1283.04",
			"currency": "USD",
			"invoiceDate": "2026-02-10",
			"submittedAt": "2026-02-10T14:30:00Z",
			"submittedBy": "jdoe",
			"status": "PENDING"
		}]`))
	})

	invoices, err := client.GetSupplierInvoices(context.Background(), InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "INV-100", inv.InvoiceNumber)
	assert.Equal(t, "V-1", inv.VendorID)
	assert.Equal(t, 12.0, inv.InvoicedQuantity)
	assert.Equal(t, 1188.0, inv.InvoicedAmount)
	assert.Equal(t, 95.04, inv.TaxAmount)
	assert.Equal(t, 1283.04, inv.TotalAmount)
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), inv.InvoiceDate)
	require.NotNil(t, inv.SubmittedAt)
	assert.Equal(t, 14, inv.SubmittedAt.Hour())
	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.True(t, inv.HasPOReference())
	assert.False(t, inv.HasGRReference())
}

func TestGetSupplierInvoices_FilterQueryParams(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var gotQuery map[string][]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.GetSupplierInvoices(context.Background(), InvoiceFilter{
		InvoiceNumbers: []string{"INV-1", "INV-2"},
		VendorIDs:      []string{"V-1"},
		Statuses:       []InvoiceStatus{InvoiceStatusPending, InvoiceStatusBlocked},
		FromDate:       &from,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"INV-1,INV-2"}, gotQuery["invoiceNumbers"])
	assert.Equal(t, []string{"V-1"}, gotQuery["vendorIds"])
	assert.Equal(t, []string{"PENDING,BLOCKED"}, gotQuery["status"])
	assert.Equal(t, []string{"2026-01-01"}, gotQuery["fromDate"])
}

func TestGetPurchaseOrders_DecodesWireFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/purchase-orders", r.URL.Path)
		assert.Equal(t, "PO-100", r.URL.Query().Get("poNumbers"))

		_, _ = w.Write([]byte(`[{
			"poNumber": "PO-100",
			"poItem": "10",
			"vendorId": "V-1",
			"materialId": "MAT-7",
			"orderedQuantity": "12",
			"orderedValue": "1188.00",
			"unitPrice": "99.00",
			"currency": "USD",
			"createdAt": "2026-02-01T09:00:00Z",
			"status": "RELEASED"
		}]`))
	})

	orders, err := client.GetPurchaseOrders(context.Background(), POFilter{
		PONumbers: []string{"PO-100"},
	})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	po := orders[0]
	assert.Equal(t, "PO-100/10", po.Key())
	assert.Equal(t, 12.0, po.OrderedQuantity)
	assert.Equal(t, 99.0, po.UnitPrice)
	assert.Equal(t, 2026, po.CreatedAt.Year())
}

func TestGetGoodsReceipts_DecodesWireFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/goods-receipts", r.URL.Path)

		_, _ = w.Write([]byte(`[{
			"grNumber": "GR-100",
			"grItem": "1",
			"poNumber": "PO-100",
			"poItem": "10",
			"receivedQuantity": "12",
			"receivedValue": "1188.00",
			"currency": "USD",
			"receiptDate": "2026-02-05",
			"plant": "1000"
		}]`))
	})

	receipts, err := client.GetGoodsReceipts(context.Background(), GRFilter{})

	require.NoError(t, err)
	require.Len(t, receipts, 1)
	gr := receipts[0]
	assert.Equal(t, "GR-100/1/PO-100", gr.Key())
	assert.Equal(t, 12.0, gr.ReceivedQuantity)
	assert.Equal(t, "1000", gr.Plant)
}

func TestGet_NonOKStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetPurchaseOrders(context.Background(), POFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGet_InvalidAmountRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"invoiceNumber": "INV-1", "totalAmount": "not-a-number"}]`))
	})

	_, err := client.GetSupplierInvoices(context.Background(), InvoiceFilter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "totalAmount")
}

func TestGet_EmptyAmountsDecodeToZero(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"invoiceNumber": "INV-1", "invoiceItem": "10", "status": "PENDING"}]`))
	})

	invoices, err := client.GetSupplierInvoices(context.Background(), InvoiceFilter{})

	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Zero(t, invoices[0].TotalAmount)
	assert.True(t, invoices[0].InvoiceDate.IsZero())
	assert.Nil(t, invoices[0].SubmittedAt)
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.GetPurchaseOrders(context.Background(), POFilter{})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
