// Package erp defines the canonical record shapes exchanged with ERP
// systems and the data-access contract the matching engine consumes.
//
// The engine never talks to an ERP directly; it sees purchase orders,
// goods receipts and supplier invoices only in these canonical shapes,
// fetched through the DataAccess interface. Adapters (see client.go)
// are responsible for translating a live ERP connection into them.
package erp

import (
	"context"
	"time"
)

// InvoiceStatus is the lifecycle state of a supplier invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "PENDING"
	InvoiceStatusApproved InvoiceStatus = "APPROVED"
	InvoiceStatusRejected InvoiceStatus = "REJECTED"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusBlocked  InvoiceStatus = "BLOCKED"
)

// POStatus is the lifecycle state of a purchase order line.
type POStatus string

const (
	POStatusOpen      POStatus = "OPEN"
	POStatusDelivered POStatus = "DELIVERED"
	POStatusClosed    POStatus = "CLOSED"
	POStatusCancelled POStatus = "CANCELLED"
)

// PurchaseOrder is one purchase order line. A line is uniquely
// identified by (PONumber, POItem).
type PurchaseOrder struct {
	PONumber            string    `json:"po_number"`
	POItem              string    `json:"po_item"`
	VendorID            string    `json:"vendor_id"`
	VendorName          string    `json:"vendor_name"`
	MaterialID          string    `json:"material_id"`
	MaterialDescription string    `json:"material_description"`
	OrderedQuantity     float64   `json:"ordered_quantity"`
	OrderedValue        float64   `json:"ordered_value"`
	UnitPrice           float64   `json:"unit_price"`
	TaxAmount           float64   `json:"tax_amount"`
	Currency            string    `json:"currency"`
	DeliveryDate        time.Time `json:"delivery_date"`
	CreatedAt           time.Time `json:"created_at"`
	CreatedBy           string    `json:"created_by"`
	Status              POStatus  `json:"status"`
}

// Key returns the unique line identifier (PONumber, POItem).
func (po PurchaseOrder) Key() string {
	return po.PONumber + "/" + po.POItem
}

// GrossValue returns the ordered value including tax. OrderedValue is
// net; invoice totals are tax inclusive, so gross-level comparisons go
// through this.
func (po PurchaseOrder) GrossValue() float64 {
	return po.OrderedValue + po.TaxAmount
}

// GoodsReceipt records physical receipt of goods against a PO line.
type GoodsReceipt struct {
	GRNumber         string    `json:"gr_number"`
	GRItem           string    `json:"gr_item"`
	PONumber         string    `json:"po_number"`
	POItem           string    `json:"po_item"`
	ReceivedQuantity float64   `json:"received_quantity"`
	ReceivedValue    float64   `json:"received_value"`
	Currency         string    `json:"currency"`
	ReceiptDate      time.Time `json:"receipt_date"`
	Plant            string    `json:"plant"`
	StorageLocation  string    `json:"storage_location"`
}

// Key returns the unique receipt line identifier bound to its PO line.
func (gr GoodsReceipt) Key() string {
	return gr.GRNumber + "/" + gr.GRItem + "/" + gr.PONumber
}

// SupplierInvoice is one supplier invoice line. PO and GR references are
// optional; an empty PONumber means the invoice arrived without a
// purchase order reference.
type SupplierInvoice struct {
	InvoiceNumber    string        `json:"invoice_number"`
	InvoiceItem      string        `json:"invoice_item"`
	VendorID         string        `json:"vendor_id"`
	VendorName       string        `json:"vendor_name"`
	PONumber         string        `json:"po_number,omitempty"`
	POItem           string        `json:"po_item,omitempty"`
	GRNumber         string        `json:"gr_number,omitempty"`
	GRItem           string        `json:"gr_item,omitempty"`
	MaterialID       string        `json:"material_id,omitempty"`
	InvoicedQuantity float64       `json:"invoiced_quantity"`
	InvoicedAmount   float64       `json:"invoiced_amount"`
	TaxAmount        float64       `json:"tax_amount"`
	TotalAmount      float64       `json:"total_amount"`
	Currency         string        `json:"currency"`
	InvoiceDate      time.Time     `json:"invoice_date"`
	PostingDate      time.Time     `json:"posting_date"`
	DueDate          time.Time     `json:"due_date"`
	PaymentTerms     string        `json:"payment_terms"`
	Status           InvoiceStatus `json:"status"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	SubmittedBy      string        `json:"submitted_by,omitempty"`
}

// HasPOReference reports whether the invoice names a purchase order line.
func (inv SupplierInvoice) HasPOReference() bool {
	return inv.PONumber != ""
}

// HasGRReference reports whether the invoice names a goods receipt line.
func (inv SupplierInvoice) HasGRReference() bool {
	return inv.GRNumber != ""
}

// UnitPrice derives the invoiced unit price. Returns 0 when the
// invoiced quantity is zero.
func (inv SupplierInvoice) UnitPrice() float64 {
	if inv.InvoicedQuantity == 0 {
		return 0
	}
	return inv.InvoicedAmount / inv.InvoicedQuantity
}

// POFilter narrows a purchase order fetch. Zero-value fields are ignored.
type POFilter struct {
	PONumbers []string
	VendorIDs []string
	FromDate  *time.Time
	ToDate    *time.Time
}

// GRFilter narrows a goods receipt fetch. Zero-value fields are ignored.
type GRFilter struct {
	PONumbers []string
	GRNumbers []string
	FromDate  *time.Time
	ToDate    *time.Time
}

// InvoiceFilter narrows a supplier invoice fetch. Zero-value fields are
// ignored.
type InvoiceFilter struct {
	InvoiceNumbers []string
	VendorIDs      []string
	Statuses       []InvoiceStatus
	FromDate       *time.Time
	ToDate         *time.Time
}

// DataAccess is the contract through which the engine fetches canonical
// records. Implementations own retries, timeouts and authentication;
// errors they return propagate to the engine's caller unmodified.
type DataAccess interface {
	// GetPurchaseOrders returns purchase order lines matching the filter.
	GetPurchaseOrders(ctx context.Context, filter POFilter) ([]PurchaseOrder, error)

	// GetGoodsReceipts returns goods receipt lines matching the filter.
	GetGoodsReceipts(ctx context.Context, filter GRFilter) ([]GoodsReceipt, error)

	// GetSupplierInvoices returns supplier invoice lines matching the filter.
	GetSupplierInvoices(ctx context.Context, filter InvoiceFilter) ([]SupplierInvoice, error)
}
