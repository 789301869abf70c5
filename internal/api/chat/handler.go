// Package chat serves the compliance Q&A endpoint.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	compliance "github.com/good-yellow-bee/compliops/internal/chat"
)

// Asker answers compliance questions. It never fails.
type Asker interface {
	Ask(ctx context.Context, query string) compliance.Answer
}

// Request is the chat payload.
type Request struct {
	Query string `json:"query"`
}

// Handler handles chat endpoints.
type Handler struct {
	advisor Asker
	logger  *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(advisor Asker, logger *zap.Logger) *Handler {
	return &Handler{advisor: advisor, logger: logger.Named("chat")}
}

// Ask answers one question.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		h.write(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "invalid request body"},
		})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.write(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "VALIDATION_FAILED", "message": "query is required"},
		})
		return
	}

	answer := h.advisor.Ask(r.Context(), req.Query)
	h.write(w, http.StatusOK, map[string]any{"data": answer})
}

func (h *Handler) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}
