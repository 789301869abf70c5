// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/api/chat"
	"github.com/good-yellow-bee/compliops/internal/api/health"
	"github.com/good-yellow-bee/compliops/internal/api/reports"
	"github.com/good-yellow-bee/compliops/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address           string
	JWTSecret         []byte
	TokenTTL          time.Duration
	RateLimitPerIP    int    // Requests per minute on login and chat
	Version           string // Reported by /health
	GatewayConfigured bool   // Reported by /health as api_key_configured and mode
	Verbose           bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 30
	}
	if c.Version == "" {
		c.Version = "dev"
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	runner        reports.Submitter
	advisor       chat.Asker
	logger        *zap.Logger
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, runner reports.Submitter, advisor chat.Asker, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("report runner is required")
	}
	if advisor == nil {
		return nil, fmt.Errorf("chat advisor is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		storage:       store,
		runner:        runner,
		advisor:       advisor,
		logger:        logger.Named("api"),
		healthHandler: health.NewHandler(cfg.Version, cfg.GatewayConfigured),
	}

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP API listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
