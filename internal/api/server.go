// Package api exposes the matching backend over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apflow/invoice-match-backend/internal/api/handlers"
	"github.com/apflow/invoice-match-backend/internal/api/middleware"
	"github.com/apflow/invoice-match-backend/internal/application/engine"
	"github.com/apflow/invoice-match-backend/internal/application/service"
	"github.com/apflow/invoice-match-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	engine     *engine.Engine
	analysis   *service.AnalysisService
}

// NewServer creates a new API server. If analysis is nil, the analysis
// job endpoints are not registered; if eng is nil, the live single
// invoice and vendor endpoints are not.
func NewServer(cfg Config, repo storage.Repository, eng *engine.Engine, analysis *service.AnalysisService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		repo:     repo,
		engine:   eng,
		analysis: analysis,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Persisted runs and their match records
		runsHandler := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{runId}", runsHandler.Get)
		r.Get("/runs/{runId}/matches", runsHandler.ListMatches)

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		// Live endpoints against the ERP
		if s.engine != nil {
			invoicesHandler := handlers.NewInvoicesHandler(s.repo, s.engine)
			r.Post("/invoices/{invoiceNumber}/match", invoicesHandler.Match)
			r.Get("/invoices/{invoiceNumber}/matches", invoicesHandler.History)

			vendorsHandler := handlers.NewVendorsHandler(s.engine)
			r.Get("/vendors/patterns", vendorsHandler.Patterns)
		}

		// Analysis jobs
		if s.analysis != nil {
			analysisHandler := handlers.NewAnalysisHandler(s.analysis)
			r.Post("/analysis", analysisHandler.Start)
			r.Get("/analysis", analysisHandler.List)
			r.Get("/analysis/{jobId}", analysisHandler.Get)
			r.Delete("/analysis/{jobId}", analysisHandler.Cancel)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
