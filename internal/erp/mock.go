package erp

import "context"

// MockDataAccess is an in-memory implementation of DataAccess for testing.
// It applies filters the way the real gateway does, so engine tests can
// exercise the fetch-then-correlate flow without a network.
type MockDataAccess struct {
	PurchaseOrders []PurchaseOrder
	GoodsReceipts  []GoodsReceipt
	Invoices       []SupplierInvoice

	// Hooks for test assertions
	GetPOsCalled      bool
	GetGRsCalled      bool
	GetInvoicesCalled bool
	LastPOFilter      POFilter
	LastGRFilter      GRFilter
	LastInvoiceFilter InvoiceFilter

	// Error injection for testing error paths
	GetPOsErr      error
	GetGRsErr      error
	GetInvoicesErr error
}

// Compile-time check that MockDataAccess implements DataAccess
var _ DataAccess = (*MockDataAccess)(nil)

// NewMockDataAccess creates an empty mock data access.
func NewMockDataAccess() *MockDataAccess {
	return &MockDataAccess{}
}

// GetPurchaseOrders returns stored POs matching the filter.
func (m *MockDataAccess) GetPurchaseOrders(_ context.Context, filter POFilter) ([]PurchaseOrder, error) {
	m.GetPOsCalled = true
	m.LastPOFilter = filter
	if m.GetPOsErr != nil {
		return nil, m.GetPOsErr
	}

	var out []PurchaseOrder
	for _, po := range m.PurchaseOrders {
		if len(filter.PONumbers) > 0 && !contains(filter.PONumbers, po.PONumber) {
			continue
		}
		if len(filter.VendorIDs) > 0 && !contains(filter.VendorIDs, po.VendorID) {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

// GetGoodsReceipts returns stored GRs matching the filter.
func (m *MockDataAccess) GetGoodsReceipts(_ context.Context, filter GRFilter) ([]GoodsReceipt, error) {
	m.GetGRsCalled = true
	m.LastGRFilter = filter
	if m.GetGRsErr != nil {
		return nil, m.GetGRsErr
	}

	var out []GoodsReceipt
	for _, gr := range m.GoodsReceipts {
		if len(filter.PONumbers) > 0 && !contains(filter.PONumbers, gr.PONumber) {
			continue
		}
		if len(filter.GRNumbers) > 0 && !contains(filter.GRNumbers, gr.GRNumber) {
			continue
		}
		out = append(out, gr)
	}
	return out, nil
}

// GetSupplierInvoices returns stored invoices matching the filter.
func (m *MockDataAccess) GetSupplierInvoices(_ context.Context, filter InvoiceFilter) ([]SupplierInvoice, error) {
	m.GetInvoicesCalled = true
	m.LastInvoiceFilter = filter
	if m.GetInvoicesErr != nil {
		return nil, m.GetInvoicesErr
	}

	var out []SupplierInvoice
	for _, inv := range m.Invoices {
		if len(filter.InvoiceNumbers) > 0 && !contains(filter.InvoiceNumbers, inv.InvoiceNumber) {
			continue
		}
		if len(filter.VendorIDs) > 0 && !contains(filter.VendorIDs, inv.VendorID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, inv.Status) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func containsStatus(values []InvoiceStatus, v InvoiceStatus) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
