package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/compliops/internal/api/alerts"
	"github.com/good-yellow-bee/compliops/internal/api/auth"
	"github.com/good-yellow-bee/compliops/internal/api/chat"
	"github.com/good-yellow-bee/compliops/internal/api/middleware"
	"github.com/good-yellow-bee/compliops/internal/api/reports"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.TokenTTL)
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger, s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, ErrMethodNotAllowed)
	})

	r.Route("/api/v1", func(r chi.Router) {
		authHandler := auth.NewHandler(jwtService, s.logger)
		chatHandler := chat.NewHandler(s.advisor, s.logger)

		// Public routes with IP rate limiting
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ipLimiter))
			r.Post("/login", authHandler.Login)
			r.Post("/chat", chatHandler.Ask)
		})

		r.Route("/alerts", func(r chi.Router) {
			alertHandler := alerts.NewHandler(s.storage.Alerts(), s.logger)
			r.Get("/", alertHandler.List)
			r.Get("/{id}", alertHandler.GetByID)
		})

		r.Route("/reports", func(r chi.Router) {
			reportHandler := reports.NewHandler(s.storage.Alerts(), s.storage.Reports(), s.runner, s.logger)
			r.Post("/generate", reportHandler.Generate)
			r.Get("/", reportHandler.List)
			r.Get("/{id}", reportHandler.GetByID)
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
