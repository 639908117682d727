// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	gatewayURL := cfg.ERP.BaseURL
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	ERP           ERPConfig           `yaml:"erp"`
	Matching      MatchingConfig      `yaml:"matching"`
	Fraud         FraudConfig         `yaml:"fraud"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ERPConfig holds ERP gateway connection settings
type ERPConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TenantID       string `yaml:"tenant_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryMax       int    `yaml:"retry_max"`
}

// MatchingConfig holds matching policy settings
type MatchingConfig struct {
	// ToleranceProfile selects a named rule set: standard, strict, relaxed
	ToleranceProfile           string `yaml:"tolerance_profile"`
	RequireGoodsReceipt        bool   `yaml:"require_goods_receipt"`
	AutoApproveWithinTolerance bool   `yaml:"auto_approve_within_tolerance"`
	BlockOnFraudAlert          bool   `yaml:"block_on_fraud_alert"`
}

// FraudConfig holds fraud detection settings
type FraudConfig struct {
	Enabled           bool     `yaml:"enabled"`
	MinimumConfidence float64  `yaml:"minimum_confidence"`
	Patterns          []string `yaml:"patterns"` // empty = all

	// Threshold overrides (zero = default)
	SplitApprovalThreshold float64 `yaml:"split_approval_threshold"`
	DuplicateWindowDays    int     `yaml:"duplicate_window_days"`
	AgingMaxDays           int     `yaml:"aging_max_days"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${ERP_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		ERP: ERPConfig{
			BaseURL:        os.Getenv("ERP_BASE_URL"),
			APIKey:         os.Getenv("ERP_API_KEY"),
			TenantID:       getEnv("ERP_TENANT_ID", "default"),
			TimeoutSeconds: getEnvInt("ERP_TIMEOUT_SECONDS", 30),
			RetryMax:       getEnvInt("ERP_RETRY_MAX", 3),
		},
		Matching: MatchingConfig{
			ToleranceProfile:           getEnv("MATCHING_TOLERANCE_PROFILE", "standard"),
			RequireGoodsReceipt:        getEnvBool("MATCHING_REQUIRE_GR", false),
			AutoApproveWithinTolerance: getEnvBool("MATCHING_AUTO_APPROVE", true),
			BlockOnFraudAlert:          getEnvBool("MATCHING_BLOCK_ON_FRAUD", true),
		},
		Fraud: FraudConfig{
			Enabled:           getEnvBool("FRAUD_ENABLED", true),
			MinimumConfidence: float64(getEnvInt("FRAUD_MIN_CONFIDENCE", 50)),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("MATCH_DB_PATH", "invoice_match.db"),
		},
		API: APIConfig{
			Port:           getEnvInt("API_PORT", 8080),
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
