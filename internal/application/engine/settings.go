package engine

import (
	"fmt"

	"github.com/apflow/invoice-match-backend/internal/domain/fraud"
	"github.com/apflow/invoice-match-backend/internal/domain/match"
	"github.com/apflow/invoice-match-backend/internal/domain/tolerance"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/config"
)

// MatchConfigFromSettings builds a validated matcher configuration from
// the application settings. Unknown fraud pattern names are rejected
// here rather than silently dropped.
func MatchConfigFromSettings(cfg *config.Config) (match.Config, error) {
	patterns := make([]fraud.Pattern, 0, len(cfg.Fraud.Patterns))
	known := make(map[fraud.Pattern]bool)
	for _, p := range fraud.AllPatterns() {
		known[p] = true
	}
	for _, name := range cfg.Fraud.Patterns {
		p := fraud.Pattern(name)
		if !known[p] {
			return match.Config{}, fmt.Errorf("unknown fraud pattern %q", name)
		}
		patterns = append(patterns, p)
	}

	return match.NewConfig(
		tolerance.Profile(cfg.Matching.ToleranceProfile),
		match.FraudConfig{
			Enabled:           cfg.Fraud.Enabled,
			Patterns:          patterns,
			MinimumConfidence: cfg.Fraud.MinimumConfidence,
			Thresholds: fraud.Thresholds{
				SplitApprovalThreshold: cfg.Fraud.SplitApprovalThreshold,
				DuplicateWindowDays:    cfg.Fraud.DuplicateWindowDays,
				AgingMaxDays:           cfg.Fraud.AgingMaxDays,
			},
		},
		match.Policy{
			RequireGoodsReceipt:        cfg.Matching.RequireGoodsReceipt,
			AutoApproveWithinTolerance: cfg.Matching.AutoApproveWithinTolerance,
			BlockOnFraudAlert:          cfg.Matching.BlockOnFraudAlert,
		},
	)
}
