package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apflow/invoice-match-backend/internal/api"
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
		port       = flag.Int("port", 0, "HTTP port (overrides config)")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	erpClient, err := erp.NewClient(erp.ClientConfig{
		BaseURL:  cfg.ERP.BaseURL,
		APIKey:   cfg.ERP.APIKey,
		TenantID: cfg.ERP.TenantID,
		Timeout:  time.Duration(cfg.ERP.TimeoutSeconds) * time.Second,
		RetryMax: cfg.ERP.RetryMax,
	}, logging.NewLoggerWithSystem(cfg.Observability.Logging, "erp"))
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
	}, logging.NewLoggerWithSystem(cfg.Observability.Logging, "engine"))

	analysis := service.NewAnalysisService(eng, store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "analysis"))
	analysis.StartBackgroundCleanup(10*time.Minute, 24*time.Hour)
	defer analysis.StopBackgroundCleanup()

	apiCfg := api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}
	if *port > 0 {
		apiCfg.Port = *port
	}

	server := api.NewServer(apiCfg, store, eng, analysis, logger)

	// Serve until interrupted, then drain in-flight requests
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
