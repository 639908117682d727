package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

// ClientConfig holds connection settings for the ERP gateway.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	TenantID string
	Timeout  time.Duration
	// RetryMax bounds transient-failure retries. Zero means the default (3).
	RetryMax int
}

// Client fetches canonical records from an ERP gateway over HTTP.
// It implements DataAccess. Transient failures are retried with
// exponential backoff; whatever error survives the retries is returned
// to the caller as-is, wrapped only with the operation name.
type Client struct {
	cfg    ClientConfig
	http   *retryablehttp.Client
	logger *slog.Logger
}

// Compile-time check that Client implements DataAccess
var _ DataAccess = (*Client)(nil)

// NewClient creates an ERP gateway client.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("erp: base URL is required")
	}
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("erp: tenant ID is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil // retry noise goes through our logger instead
	if cfg.RetryMax > 0 {
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		cfg:    cfg,
		http:   rc,
		logger: logger,
	}, nil
}

// Wire shapes: the gateway serializes monetary fields as decimal strings
// to avoid float drift in transit. They are parsed with shopspring/decimal
// and converted once, at this boundary.

type poWire struct {
	PONumber            string `json:"poNumber"`
	POItem              string `json:"poItem"`
	VendorID            string `json:"vendorId"`
	VendorName          string `json:"vendorName"`
	MaterialID          string `json:"materialId"`
	MaterialDescription string `json:"materialDescription"`
	OrderedQuantity     string `json:"orderedQuantity"`
	OrderedValue        string `json:"orderedValue"`
	UnitPrice           string `json:"unitPrice"`
	TaxAmount           string `json:"taxAmount"`
	Currency            string `json:"currency"`
	DeliveryDate        string `json:"deliveryDate"`
	CreatedAt           string `json:"createdAt"`
	CreatedBy           string `json:"createdBy"`
	Status              string `json:"status"`
}

type grWire struct {
	GRNumber         string `json:"grNumber"`
	GRItem           string `json:"grItem"`
	PONumber         string `json:"poNumber"`
	POItem           string `json:"poItem"`
	ReceivedQuantity string `json:"receivedQuantity"`
	ReceivedValue    string `json:"receivedValue"`
	Currency         string `json:"currency"`
	ReceiptDate      string `json:"receiptDate"`
	Plant            string `json:"plant"`
	StorageLocation  string `json:"storageLocation"`
}

type invoiceWire struct {
	InvoiceNumber    string `json:"invoiceNumber"`
	InvoiceItem      string `json:"invoiceItem"`
	VendorID         string `json:"vendorId"`
	VendorName       string `json:"vendorName"`
	PONumber         string `json:"poNumber"`
	POItem           string `json:"poItem"`
	GRNumber         string `json:"grNumber"`
	GRItem           string `json:"grItem"`
	MaterialID       string `json:"materialId"`
	InvoicedQuantity string `json:"invoicedQuantity"`
	InvoicedAmount   string `json:"invoicedAmount"`
	TaxAmount        string `json:"taxAmount"`
	TotalAmount      string `json:"totalAmount"`
	Currency         string `json:"currency"`
	InvoiceDate      string `json:"invoiceDate"`
	PostingDate      string `json:"postingDate"`
	DueDate          string `json:"dueDate"`
	PaymentTerms     string `json:"paymentTerms"`
	Status           string `json:"status"`
	SubmittedAt      string `json:"submittedAt"`
	SubmittedBy      string `json:"submittedBy"`
}

// GetPurchaseOrders fetches purchase order lines matching the filter.
func (c *Client) GetPurchaseOrders(ctx context.Context, filter POFilter) ([]PurchaseOrder, error) {
	q := url.Values{}
	addListParam(q, "poNumbers", filter.PONumbers)
	addListParam(q, "vendorIds", filter.VendorIDs)
	addDateParam(q, "fromDate", filter.FromDate)
	addDateParam(q, "toDate", filter.ToDate)

	var wire []poWire
	if err := c.get(ctx, "/purchase-orders", q, &wire); err != nil {
		return nil, fmt.Errorf("get purchase orders: %w", err)
	}

	orders := make([]PurchaseOrder, 0, len(wire))
	for _, w := range wire {
		po, err := decodePO(w)
		if err != nil {
			return nil, fmt.Errorf("decode purchase order %s/%s: %w", w.PONumber, w.POItem, err)
		}
		orders = append(orders, po)
	}
	return orders, nil
}

// GetGoodsReceipts fetches goods receipt lines matching the filter.
func (c *Client) GetGoodsReceipts(ctx context.Context, filter GRFilter) ([]GoodsReceipt, error) {
	q := url.Values{}
	addListParam(q, "poNumbers", filter.PONumbers)
	addListParam(q, "grNumbers", filter.GRNumbers)
	addDateParam(q, "fromDate", filter.FromDate)
	addDateParam(q, "toDate", filter.ToDate)

	var wire []grWire
	if err := c.get(ctx, "/goods-receipts", q, &wire); err != nil {
		return nil, fmt.Errorf("get goods receipts: %w", err)
	}

	receipts := make([]GoodsReceipt, 0, len(wire))
	for _, w := range wire {
		gr, err := decodeGR(w)
		if err != nil {
			return nil, fmt.Errorf("decode goods receipt %s/%s: %w", w.GRNumber, w.GRItem, err)
		}
		receipts = append(receipts, gr)
	}
	return receipts, nil
}

// GetSupplierInvoices fetches supplier invoice lines matching the filter.
func (c *Client) GetSupplierInvoices(ctx context.Context, filter InvoiceFilter) ([]SupplierInvoice, error) {
	q := url.Values{}
	addListParam(q, "invoiceNumbers", filter.InvoiceNumbers)
	addListParam(q, "vendorIds", filter.VendorIDs)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q.Set("status", strings.Join(statuses, ","))
	}
	addDateParam(q, "fromDate", filter.FromDate)
	addDateParam(q, "toDate", filter.ToDate)

	var wire []invoiceWire
	if err := c.get(ctx, "/supplier-invoices", q, &wire); err != nil {
		return nil, fmt.Errorf("get supplier invoices: %w", err)
	}

	invoices := make([]SupplierInvoice, 0, len(wire))
	for _, w := range wire {
		inv, err := decodeInvoice(w)
		if err != nil {
			return nil, fmt.Errorf("decode invoice %s/%s: %w", w.InvoiceNumber, w.InvoiceItem, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// get performs a GET against the gateway and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-ID", c.cfg.TenantID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("erp gateway call",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("erp gateway returned status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func addListParam(q url.Values, name string, values []string) {
	if len(values) > 0 {
		q.Set(name, strings.Join(values, ","))
	}
}

func addDateParam(q url.Values, name string, t *time.Time) {
	if t != nil {
		q.Set(name, t.Format("2006-01-02"))
	}
}

// parseAmount parses a decimal-string monetary field. Empty strings
// decode to zero, which the gateway uses for absent optional amounts.
func parseAmount(field, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d.InexactFloat64(), nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	// Gateway emits either full RFC 3339 timestamps or bare dates.
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", field, raw)
	}
	return t, nil
}

func decodePO(w poWire) (PurchaseOrder, error) {
	po := PurchaseOrder{
		PONumber:            w.PONumber,
		POItem:              w.POItem,
		VendorID:            w.VendorID,
		VendorName:          w.VendorName,
		MaterialID:          w.MaterialID,
		MaterialDescription: w.MaterialDescription,
		Currency:            w.Currency,
		CreatedBy:           w.CreatedBy,
		Status:              POStatus(w.Status),
	}

	var err error
	if po.OrderedQuantity, err = parseAmount("orderedQuantity", w.OrderedQuantity); err != nil {
		return po, err
	}
	if po.OrderedValue, err = parseAmount("orderedValue", w.OrderedValue); err != nil {
		return po, err
	}
	if po.UnitPrice, err = parseAmount("unitPrice", w.UnitPrice); err != nil {
		return po, err
	}
	if po.TaxAmount, err = parseAmount("taxAmount", w.TaxAmount); err != nil {
		return po, err
	}
	if po.DeliveryDate, err = parseDate("deliveryDate", w.DeliveryDate); err != nil {
		return po, err
	}
	if po.CreatedAt, err = parseDate("createdAt", w.CreatedAt); err != nil {
		return po, err
	}
	return po, nil
}

func decodeGR(w grWire) (GoodsReceipt, error) {
	gr := GoodsReceipt{
		GRNumber:        w.GRNumber,
		GRItem:          w.GRItem,
		PONumber:        w.PONumber,
		POItem:          w.POItem,
		Currency:        w.Currency,
		Plant:           w.Plant,
		StorageLocation: w.StorageLocation,
	}

	var err error
	if gr.ReceivedQuantity, err = parseAmount("receivedQuantity", w.ReceivedQuantity); err != nil {
		return gr, err
	}
	if gr.ReceivedValue, err = parseAmount("receivedValue", w.ReceivedValue); err != nil {
		return gr, err
	}
	if gr.ReceiptDate, err = parseDate("receiptDate", w.ReceiptDate); err != nil {
		return gr, err
	}
	return gr, nil
}

func decodeInvoice(w invoiceWire) (SupplierInvoice, error) {
	inv := SupplierInvoice{
		InvoiceNumber: w.InvoiceNumber,
		InvoiceItem:   w.InvoiceItem,
		VendorID:      w.VendorID,
		VendorName:    w.VendorName,
		PONumber:      w.PONumber,
		POItem:        w.POItem,
		GRNumber:      w.GRNumber,
		GRItem:        w.GRItem,
		MaterialID:    w.MaterialID,
		Currency:      w.Currency,
		PaymentTerms:  w.PaymentTerms,
		Status:        InvoiceStatus(w.Status),
		SubmittedBy:   w.SubmittedBy,
	}

	var err error
	if inv.InvoicedQuantity, err = parseAmount("invoicedQuantity", w.InvoicedQuantity); err != nil {
		return inv, err
	}
	if inv.InvoicedAmount, err = parseAmount("invoicedAmount", w.InvoicedAmount); err != nil {
		return inv, err
	}
	if inv.TaxAmount, err = parseAmount("taxAmount", w.TaxAmount); err != nil {
		return inv, err
	}
	if inv.TotalAmount, err = parseAmount("totalAmount", w.TotalAmount); err != nil {
		return inv, err
	}
	if inv.InvoiceDate, err = parseDate("invoiceDate", w.InvoiceDate); err != nil {
		return inv, err
	}
	if inv.PostingDate, err = parseDate("postingDate", w.PostingDate); err != nil {
		return inv, err
	}
	if inv.DueDate, err = parseDate("dueDate", w.DueDate); err != nil {
		return inv, err
	}
	if w.SubmittedAt != "" {
		t, err := parseDate("submittedAt", w.SubmittedAt)
		if err != nil {
			return inv, err
		}
		inv.SubmittedAt = &t
	}
	return inv, nil
}
