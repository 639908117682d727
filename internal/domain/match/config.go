package match

import (
	"fmt"

	"github.com/apflow/invoice-match-backend/internal/domain/fraud"
	"github.com/apflow/invoice-match-backend/internal/domain/tolerance"
)

// FraudConfig controls fraud detection within matching.
type FraudConfig struct {
	Enabled bool
	// Patterns is the enabled heuristic subset. Empty means all.
	Patterns []fraud.Pattern
	// MinimumConfidence drops alerts below this confidence [0,100].
	MinimumConfidence float64
	// Thresholds tunes the individual heuristics.
	Thresholds fraud.Thresholds
}

// Policy holds the matching decision flags.
type Policy struct {
	// RequireGoodsReceipt demotes PO-only matches to NO_MATCH.
	RequireGoodsReceipt bool
	// AutoApproveWithinTolerance clears the approval flag on fully
	// matched invoices.
	AutoApproveWithinTolerance bool
	// BlockOnFraudAlert escalates CRITICAL fraud alerts to BLOCKED.
	BlockOnFraudAlert bool
}

// Config is the immutable matcher configuration, validated once at
// construction. Changing configuration means building a new matcher,
// never mutating a live one.
type Config struct {
	rules    []tolerance.Rule
	fraud    FraudConfig
	policy   Policy
	detector *fraud.Detector
}

// NewConfig validates and freezes a matcher configuration. Invalid
// tolerance rules and out-of-range confidence bounds are rejected
// eagerly rather than surfacing mid-run.
func NewConfig(rules []tolerance.Rule, fraudCfg FraudConfig, policy Policy) (Config, error) {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return Config{}, fmt.Errorf("tolerance rule: %w", err)
		}
	}
	if fraudCfg.MinimumConfidence < 0 || fraudCfg.MinimumConfidence > 100 {
		return Config{}, fmt.Errorf("fraud minimum confidence must be within [0,100], got %v", fraudCfg.MinimumConfidence)
	}
	if len(fraudCfg.Patterns) == 0 {
		fraudCfg.Patterns = fraud.AllPatterns()
	}

	frozen := make([]tolerance.Rule, len(rules))
	copy(frozen, rules)

	return Config{
		rules:    frozen,
		fraud:    fraudCfg,
		policy:   policy,
		detector: fraud.NewDetector(fraudCfg.Thresholds),
	}, nil
}

// DefaultConfig returns a config with the standard tolerance profile,
// all fraud patterns enabled at 50 minimum confidence, and a two-way
// friendly policy.
func DefaultConfig() Config {
	cfg, err := NewConfig(
		tolerance.StandardRules(),
		FraudConfig{
			Enabled:           true,
			MinimumConfidence: 50,
			Thresholds:        fraud.DefaultThresholds(),
		},
		Policy{
			RequireGoodsReceipt:        false,
			AutoApproveWithinTolerance: true,
			BlockOnFraudAlert:          true,
		},
	)
	if err != nil {
		// Static inputs; cannot fail.
		panic(err)
	}
	return cfg
}

// Rules returns a copy of the tolerance rules.
func (c Config) Rules() []tolerance.Rule {
	out := make([]tolerance.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Fraud returns the fraud settings.
func (c Config) Fraud() FraudConfig { return c.fraud }

// Policy returns the matching policy flags.
func (c Config) Policy() Policy { return c.policy }
