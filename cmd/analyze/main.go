package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/application/service"
	"github.com/apflow/invoice-match-backend/internal/erp"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/config"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/logging"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		invoice    = flag.String("invoice", "", "Match a single invoice by number instead of a full run")
		vendors    = flag.String("vendors", "", "Comma-separated vendor IDs to restrict the run to")
		patterns   = flag.Bool("vendor-patterns", false, "Analyze vendor payment patterns instead of matching")
		noPersist  = flag.Bool("no-persist", false, "Skip writing results to the database")
		asJSON     = flag.Bool("json", false, "Print the full result as JSON")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "analyze")

	erpClient, err := erp.NewClient(erp.ClientConfig{
		BaseURL:  cfg.ERP.BaseURL,
		APIKey:   cfg.ERP.APIKey,
		TenantID: cfg.ERP.TenantID,
		Timeout:  time.Duration(cfg.ERP.TimeoutSeconds) * time.Second,
		RetryMax: cfg.ERP.RetryMax,
	}, logger)
	if err != nil {
		logger.Error("failed to create ERP client", "error", err)
		os.Exit(1)
	}

	matchCfg, err := engine.MatchConfigFromSettings(cfg)
	if err != nil {
		logger.Error("invalid matching configuration", "error", err)
		os.Exit(1)
	}

	eng := engine.New(erpClient, engine.Config{
		TenantID: cfg.ERP.TenantID,
		Matching: matchCfg,
	}, logger)

	ctx := context.Background()

	switch {
	case *invoice != "":
		result, err := eng.MatchSingleInvoice(ctx, *invoice)
		if err != nil {
			logger.Error("match failed", "invoice", *invoice, "error", err)
			os.Exit(1)
		}
		if *asJSON {
			printJSON(result)
			return
		}
		fmt.Printf("invoice %s/%s: %s (%s), risk %d, approval required: %v\n",
			result.InvoiceNumber, result.InvoiceItem, result.Status, result.Type,
			result.RiskScore, result.ApprovalRequired)
		for _, d := range result.Discrepancies {
			fmt.Printf("  discrepancy [%s/%s] %s\n", d.Type, d.Severity, d.Description)
		}
		for _, v := range result.ToleranceViolations {
			fmt.Printf("  violation   [%s] variance %.2f exceeds by %.2f\n", v.Rule.Name, v.Variance, v.ExceededBy)
		}
		for _, a := range result.FraudAlerts {
			fmt.Printf("  fraud       [%s/%s] %.0f%% %s\n", a.Pattern, a.Severity, a.Confidence, a.Description)
		}

	case *patterns:
		filter := erp.InvoiceFilter{}
		if *vendors != "" {
			filter.VendorIDs = strings.Split(*vendors, ",")
		}
		vendorPatterns, err := eng.AnalyzeVendorPatterns(ctx, filter)
		if err != nil {
			logger.Error("vendor analysis failed", "error", err)
			os.Exit(1)
		}
		if *asJSON {
			printJSON(vendorPatterns)
			return
		}
		for _, p := range vendorPatterns {
			fmt.Printf("vendor %s (%s): %d invoices, total %.2f, avg %.2f, risk %d\n",
				p.VendorID, p.VendorName, p.InvoiceCount, p.TotalAmount, p.AverageAmount, p.RiskScore)
		}

	default:
		filter := erp.InvoiceFilter{}
		if *vendors != "" {
			filter.VendorIDs = strings.Split(*vendors, ",")
		}
		result, err := eng.RunAnalysis(ctx, filter)
		if err != nil {
			logger.Error("analysis failed", "error", err)
			os.Exit(1)
		}

		if !*noPersist {
			store, err := storage.NewStorage(cfg.Storage.DatabasePath)
			if err != nil {
				logger.Error("failed to initialize storage", "error", err)
				os.Exit(1)
			}
			defer func() { _ = store.Close() }()

			run, records := service.RecordsFromResult(result)
			if err := store.SaveRun(run); err != nil {
				logger.Error("failed to save run", "error", err)
				os.Exit(1)
			}
			if err := store.SaveMatches(records); err != nil {
				logger.Error("failed to save matches", "error", err)
				os.Exit(1)
			}
		}

		if *asJSON {
			printJSON(result)
			return
		}
		stats := result.Statistics
		fmt.Printf("run %s: %d invoices\n", result.RunID, stats.TotalInvoices)
		fmt.Printf("  fully matched:      %d\n", stats.FullyMatched)
		fmt.Printf("  partially matched:  %d\n", stats.PartiallyMatched)
		fmt.Printf("  tolerance exceeded: %d\n", stats.ToleranceExceeded)
		fmt.Printf("  not matched:        %d\n", stats.NotMatched)
		fmt.Printf("  blocked:            %d\n", stats.Blocked)
		fmt.Printf("  approval required:  %d\n", stats.ApprovalRequired)
		fmt.Printf("  fraud alerts:       %d\n", stats.FraudAlerts)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
