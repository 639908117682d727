package tolerance

// Named rule sets. Standard is the default profile; Strict halves the
// thresholds and requires approval on every violation; Relaxed roughly
// doubles them for low-risk vendors.

// StandardRules returns the default tolerance profile.
func StandardRules() []Rule {
	return []Rule{
		{ID: "std-price-pct", Name: "Unit price variance", Field: FieldPrice, ThresholdType: ThresholdPercentage, ThresholdValue: 5, RequiresApproval: true, Enabled: true},
		{ID: "std-qty-pct", Name: "Quantity variance", Field: FieldQuantity, ThresholdType: ThresholdPercentage, ThresholdValue: 10, RequiresApproval: true, Enabled: true},
		{ID: "std-tax-pct", Name: "Tax variance", Field: FieldTax, ThresholdType: ThresholdPercentage, ThresholdValue: 2, RequiresApproval: false, Enabled: true},
		{ID: "std-total-abs", Name: "Invoice total variance", Field: FieldTotal, ThresholdType: ThresholdAbsolute, ThresholdValue: 500, RequiresApproval: true, Enabled: true},
	}
}

// StrictRules returns the tightened profile used for high-risk vendors.
func StrictRules() []Rule {
	return []Rule{
		{ID: "strict-price-pct", Name: "Unit price variance", Field: FieldPrice, ThresholdType: ThresholdPercentage, ThresholdValue: 2, RequiresApproval: true, Enabled: true},
		{ID: "strict-qty-pct", Name: "Quantity variance", Field: FieldQuantity, ThresholdType: ThresholdPercentage, ThresholdValue: 5, RequiresApproval: true, Enabled: true},
		{ID: "strict-tax-pct", Name: "Tax variance", Field: FieldTax, ThresholdType: ThresholdPercentage, ThresholdValue: 1, RequiresApproval: true, Enabled: true},
		{ID: "strict-total-abs", Name: "Invoice total variance", Field: FieldTotal, ThresholdType: ThresholdAbsolute, ThresholdValue: 100, RequiresApproval: true, Enabled: true},
	}
}

// RelaxedRules returns the loosened profile used for trusted vendors.
func RelaxedRules() []Rule {
	return []Rule{
		{ID: "relaxed-price-pct", Name: "Unit price variance", Field: FieldPrice, ThresholdType: ThresholdPercentage, ThresholdValue: 10, RequiresApproval: true, Enabled: true},
		{ID: "relaxed-qty-pct", Name: "Quantity variance", Field: FieldQuantity, ThresholdType: ThresholdPercentage, ThresholdValue: 20, RequiresApproval: false, Enabled: true},
		{ID: "relaxed-tax-pct", Name: "Tax variance", Field: FieldTax, ThresholdType: ThresholdPercentage, ThresholdValue: 5, RequiresApproval: false, Enabled: true},
		{ID: "relaxed-total-abs", Name: "Invoice total variance", Field: FieldTotal, ThresholdType: ThresholdAbsolute, ThresholdValue: 2000, RequiresApproval: true, Enabled: true},
	}
}

// Profile returns the named rule set, defaulting to Standard when the
// name is unknown or empty.
func Profile(name string) []Rule {
	switch name {
	case "strict":
		return StrictRules()
	case "relaxed":
		return RelaxedRules()
	default:
		return StandardRules()
	}
}
