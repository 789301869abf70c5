package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const indexPage = `<html><head><title>CompliOps Metrics</title></head><body>
<h1>CompliOps Metrics</h1>
<p>Watchtower poll and report pipeline metrics for compliops-server.</p>
<p><a href="/metrics">/metrics</a></p>
</body></html>`

// Server serves Prometheus metrics on its own listener, outside the REST
// API's middleware chain.
type Server struct {
	server *http.Server
	addr   string
	logger *zap.Logger
}

// NewServer creates a new metrics server.
func NewServer(addr string, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(indexPage))
	})

	return &Server{
		addr:   addr,
		logger: logger.Named("metrics"),
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start starts the metrics server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("metrics server listening", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.server.Shutdown(ctx)
}

// Handler returns the metrics HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
