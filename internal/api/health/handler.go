// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/compliops/internal/intel"
)

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler manages health check endpoints.
type Handler struct {
	version           string
	gatewayConfigured bool
	now               func() time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a new health handler. gatewayConfigured selects the
// reported mode: "Production" with a gateway, "Mock" without.
func NewHandler(version string, gatewayConfigured bool) *Handler {
	return &Handler{
		version:           version,
		gatewayConfigured: gatewayConfigured,
		now:               time.Now,
		checkers:          make([]Checker, 0),
	}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	APIKeyConfigured bool      `json:"api_key_configured"`
	Mode             string    `json:"mode"`
	Version          string    `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports process health and whether the intelligence gateway is configured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Timestamp:        h.now().UTC(),
		APIKeyConfigured: h.gatewayConfigured,
		Mode:             intel.ModeName(h.gatewayConfigured),
		Version:          h.version,
	})
}

// Live returns liveness status.
// Returns 200 if the process is running.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ReadyResponse{Status: "live"})
}

// Ready returns readiness status.
// Checks all registered dependencies and returns 200 only if all are healthy.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]string)
	allHealthy := true

	for _, checker := range checkers {
		if err := checker.Check(ctx); err != nil {
			results[checker.Name()] = err.Error()
			allHealthy = false
		} else {
			results[checker.Name()] = "ok"
		}
	}

	if !allHealthy {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: results})
		return
	}
	writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
