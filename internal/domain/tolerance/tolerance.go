// Package tolerance evaluates configured variance rules between expected
// purchase order values and actual invoice values.
//
// A rule is either percentage-based or absolute. Every enabled rule is
// evaluated independently; there is no short-circuit, so one mismatched
// field can trigger several violations from different thresholds.
package tolerance

import (
	"fmt"
	"math"

	"github.com/apflow/invoice-match-backend/internal/erp"
)

// Field selects which invoice value a rule compares.
type Field string

const (
	FieldPrice    Field = "PRICE"
	FieldQuantity Field = "QUANTITY"
	FieldTax      Field = "TAX"
	FieldTotal    Field = "TOTAL"
)

// ThresholdType selects how a rule's threshold is interpreted.
type ThresholdType string

const (
	ThresholdPercentage ThresholdType = "PERCENTAGE"
	ThresholdAbsolute   ThresholdType = "ABSOLUTE"
)

// Rule is one configured tolerance check.
type Rule struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Field            Field         `json:"field"`
	ThresholdType    ThresholdType `json:"threshold_type"`
	ThresholdValue   float64       `json:"threshold_value"`
	RequiresApproval bool          `json:"requires_approval"`
	Enabled          bool          `json:"enabled"`
}

// Validate rejects rules with unknown fields, unknown threshold types or
// negative thresholds. Called eagerly at configuration time.
func (r Rule) Validate() error {
	switch r.Field {
	case FieldPrice, FieldQuantity, FieldTax, FieldTotal:
	default:
		return fmt.Errorf("rule %s: unknown field %q", r.ID, r.Field)
	}
	switch r.ThresholdType {
	case ThresholdPercentage, ThresholdAbsolute:
	default:
		return fmt.Errorf("rule %s: unknown threshold type %q", r.ID, r.ThresholdType)
	}
	if r.ThresholdValue < 0 {
		return fmt.Errorf("rule %s: threshold value must not be negative, got %v", r.ID, r.ThresholdValue)
	}
	return nil
}

// CheckResult is the outcome of evaluating one rule against one
// expected/actual pair.
type CheckResult struct {
	Exceeded   bool    `json:"exceeded"`
	Variance   float64 `json:"variance"`
	ExceededBy float64 `json:"exceeded_by"`
}

// Violation is a rule that failed, carrying the measured variance and
// the amount by which the threshold was exceeded.
type Violation struct {
	Rule       Rule    `json:"rule"`
	Variance   float64 `json:"variance"`
	ExceededBy float64 `json:"exceeded_by"`
}

// Check evaluates one rule against an expected/actual pair.
//
// Percentage rules measure |actual-expected|/expected*100; an expected
// value of zero with any nonzero actual counts as exceeded rather than
// raising a division error. Absolute rules measure |actual-expected|.
func Check(expected, actual float64, rule Rule) CheckResult {
	switch rule.ThresholdType {
	case ThresholdPercentage:
		if expected == 0 {
			if actual == 0 {
				return CheckResult{}
			}
			// Undefined variance against a zero baseline: always exceeded.
			return CheckResult{Exceeded: true, Variance: 100, ExceededBy: 100}
		}
		variance := math.Abs(actual-expected) / math.Abs(expected) * 100
		if variance > rule.ThresholdValue {
			return CheckResult{Exceeded: true, Variance: variance, ExceededBy: variance - rule.ThresholdValue}
		}
		return CheckResult{Variance: variance}

	default: // ThresholdAbsolute
		variance := math.Abs(actual - expected)
		if variance > rule.ThresholdValue {
			return CheckResult{Exceeded: true, Variance: variance, ExceededBy: variance - rule.ThresholdValue}
		}
		return CheckResult{Variance: variance}
	}
}

// ValidateAll runs every enabled rule against the matching PO/invoice
// field pair and returns the full violation list. Disabled rules are
// skipped; nothing else is.
//
// Field pairings:
//   - PRICE: derived invoice unit price vs PO unit price
//   - QUANTITY: invoiced quantity vs ordered quantity
//   - TAX: invoice tax amount vs PO tax amount
//   - TOTAL: tax-inclusive invoice total vs PO gross value
//     (ordered value plus tax), so a tax-carrying invoice that matches
//     its PO exactly has zero total variance
func ValidateAll(po erp.PurchaseOrder, inv erp.SupplierInvoice, rules []Rule) []Violation {
	var violations []Violation

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		var expected, actual float64
		switch rule.Field {
		case FieldPrice:
			expected, actual = po.UnitPrice, inv.UnitPrice()
		case FieldQuantity:
			expected, actual = po.OrderedQuantity, inv.InvoicedQuantity
		case FieldTax:
			expected, actual = po.TaxAmount, inv.TaxAmount
		case FieldTotal:
			expected, actual = po.GrossValue(), inv.TotalAmount
		default:
			continue
		}

		result := Check(expected, actual, rule)
		if result.Exceeded {
			violations = append(violations, Violation{
				Rule:       rule,
				Variance:   result.Variance,
				ExceededBy: result.ExceededBy,
			})
		}
	}

	return violations
}
