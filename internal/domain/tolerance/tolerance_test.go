package tolerance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apflow/invoice-match-backend/internal/erp"
)

func percentageRule(threshold float64) Rule {
	return Rule{
		ID:             "pct",
		Name:           "percentage rule",
		Field:          FieldPrice,
		ThresholdType:  ThresholdPercentage,
		ThresholdValue: threshold,
		Enabled:        true,
	}
}

func absoluteRule(threshold float64) Rule {
	return Rule{
		ID:             "abs",
		Name:           "absolute rule",
		Field:          FieldTotal,
		ThresholdType:  ThresholdAbsolute,
		ThresholdValue: threshold,
		Enabled:        true,
	}
}

func TestCheck_PercentageWithinThreshold(t *testing.T) {
	result := Check(100, 104, percentageRule(5))

	assert.False(t, result.Exceeded)
	assert.InDelta(t, 4.0, result.Variance, 0.001)
	assert.Equal(t, 0.0, result.ExceededBy)
}

func TestCheck_PercentageExceeded(t *testing.T) {
	result := Check(100, 110, percentageRule(5))

	assert.True(t, result.Exceeded)
	assert.InDelta(t, 10.0, result.Variance, 0.001)
	assert.InDelta(t, 5.0, result.ExceededBy, 0.001)
}

func TestCheck_PercentageExactlyAtThreshold(t *testing.T) {
	// Variance equal to the threshold does not exceed it
	result := Check(100, 105, percentageRule(5))

	assert.False(t, result.Exceeded)
	assert.InDelta(t, 5.0, result.Variance, 0.001)
}

func TestCheck_PercentageZeroExpected(t *testing.T) {
	// Zero baseline with a nonzero actual always exceeds
	result := Check(0, 50, percentageRule(5))

	assert.True(t, result.Exceeded)
	assert.Equal(t, 100.0, result.Variance)
	assert.Equal(t, 100.0, result.ExceededBy)
}

func TestCheck_PercentageBothZero(t *testing.T) {
	result := Check(0, 0, percentageRule(5))

	assert.False(t, result.Exceeded)
	assert.Equal(t, 0.0, result.Variance)
}

func TestCheck_PercentageNegativeDirection(t *testing.T) {
	// Undercharges count like overcharges
	result := Check(100, 90, percentageRule(5))

	assert.True(t, result.Exceeded)
	assert.InDelta(t, 10.0, result.Variance, 0.001)
}

func TestCheck_AbsoluteWithinThreshold(t *testing.T) {
	result := Check(10000, 10400, absoluteRule(500))

	assert.False(t, result.Exceeded)
	assert.InDelta(t, 400.0, result.Variance, 0.001)
}

func TestCheck_AbsoluteExceeded(t *testing.T) {
	result := Check(10000, 10750, absoluteRule(500))

	assert.True(t, result.Exceeded)
	assert.InDelta(t, 750.0, result.Variance, 0.001)
	assert.InDelta(t, 250.0, result.ExceededBy, 0.001)
}

func TestRule_Validate(t *testing.T) {
	valid := percentageRule(5)
	require.NoError(t, valid.Validate())

	unknownField := valid
	unknownField.Field = "WEIGHT"
	assert.Error(t, unknownField.Validate())

	unknownType := valid
	unknownType.ThresholdType = "RELATIVE"
	assert.Error(t, unknownType.Validate())

	negative := valid
	negative.ThresholdValue = -1
	assert.Error(t, negative.Validate())
}

func testPO() erp.PurchaseOrder {
	return erp.PurchaseOrder{
		PONumber:        "PO-100",
		POItem:          "10",
		VendorID:        "V-1",
		OrderedQuantity: 100,
		OrderedValue:    10000,
		UnitPrice:       100,
		TaxAmount:       800,
		Currency:        "USD",
		CreatedAt:       time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func testInvoice() erp.SupplierInvoice {
	return erp.SupplierInvoice{
		InvoiceNumber:    "INV-100",
		InvoiceItem:      "10",
		VendorID:         "V-1",
		PONumber:         "PO-100",
		POItem:           "10",
		InvoicedQuantity: 100,
		InvoicedAmount:   10000,
		TaxAmount:        800,
		TotalAmount:      10800,
		Currency:         "USD",
		InvoiceDate:      time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateAll_CleanInvoice(t *testing.T) {
	po := testPO()
	inv := testInvoice()

	violations := ValidateAll(po, inv, StandardRules())

	assert.Empty(t, violations)
}

func TestValidateAll_TotalComparesGrossValues(t *testing.T) {
	// The invoice total is tax inclusive, so it is measured against the
	// PO's ordered value plus tax, not the net ordered value alone.
	po := testPO() // 10000 net + 800 tax
	inv := testInvoice()
	rules := []Rule{absoluteRule(500)}

	assert.Empty(t, ValidateAll(po, inv, rules))

	inv.TotalAmount = 11400 // 600 over the 10800 gross value

	violations := ValidateAll(po, inv, rules)

	require.Len(t, violations, 1)
	assert.Equal(t, FieldTotal, violations[0].Rule.Field)
	assert.InDelta(t, 600.0, violations[0].Variance, 0.001)
	assert.InDelta(t, 100.0, violations[0].ExceededBy, 0.001)
}

func TestValidateAll_PriceViolation(t *testing.T) {
	po := testPO()
	inv := testInvoice()
	// 10% unit price increase against a 5% threshold
	inv.InvoicedAmount = 11000

	violations := ValidateAll(po, inv, StandardRules())

	require.Len(t, violations, 1)
	assert.Equal(t, FieldPrice, violations[0].Rule.Field)
	assert.InDelta(t, 10.0, violations[0].Variance, 0.001)
	assert.InDelta(t, 5.0, violations[0].ExceededBy, 0.001)
}

func TestValidateAll_NoShortCircuit(t *testing.T) {
	po := testPO()
	inv := testInvoice()
	// Price off by 20%, total off by 2000: both rules fire
	inv.InvoicedAmount = 12000
	inv.TotalAmount = 12800

	violations := ValidateAll(po, inv, StandardRules())

	require.Len(t, violations, 2)
	fields := []Field{violations[0].Rule.Field, violations[1].Rule.Field}
	assert.Contains(t, fields, FieldPrice)
	assert.Contains(t, fields, FieldTotal)
}

func TestValidateAll_DisabledRuleSkipped(t *testing.T) {
	po := testPO()
	inv := testInvoice()
	inv.InvoicedAmount = 12000

	rules := StandardRules()
	for i := range rules {
		rules[i].Enabled = false
	}

	violations := ValidateAll(po, inv, rules)

	assert.Empty(t, violations)
}

func TestValidateAll_QuantityAndTax(t *testing.T) {
	po := testPO()
	inv := testInvoice()
	inv.InvoicedQuantity = 115 // 15% over a 10% threshold
	inv.InvoicedAmount = 11500 // keeps unit price at 100
	inv.TaxAmount = 830        // 3.75% over a 2% threshold

	violations := ValidateAll(po, inv, StandardRules())

	require.Len(t, violations, 2)
	fields := []Field{violations[0].Rule.Field, violations[1].Rule.Field}
	assert.Contains(t, fields, FieldQuantity)
	assert.Contains(t, fields, FieldTax)
}

func TestProfile_Selection(t *testing.T) {
	assert.Equal(t, StrictRules(), Profile("strict"))
	assert.Equal(t, RelaxedRules(), Profile("relaxed"))
	assert.Equal(t, StandardRules(), Profile("standard"))
	assert.Equal(t, StandardRules(), Profile(""))
	assert.Equal(t, StandardRules(), Profile("bogus"))
}
