// Package alerts serves the compliance alerts raised by the watchtower.
package alerts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/models"
	"github.com/good-yellow-bee/compliops/internal/storage"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ListResponse is a page of alerts.
type ListResponse struct {
	Items []*models.Alert `json:"items"`
	Total int64           `json:"total"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

// Handler handles alert endpoints.
type Handler struct {
	alerts storage.AlertRepository
	logger *zap.Logger
}

// NewHandler creates an alerts handler.
func NewHandler(alerts storage.AlertRepository, logger *zap.Logger) *Handler {
	return &Handler{alerts: alerts, logger: logger.Named("alerts")}
}

func (h *Handler) jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

func (h *Handler) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

// List returns a page of alerts, oldest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, msg := parsePage(r)
	if msg != "" {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, msg)
		return
	}

	ctx := r.Context()
	items, err := h.alerts.List(ctx, skip, limit)
	if err != nil {
		h.logger.Error("list alerts", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch alerts")
		return
	}
	total, err := h.alerts.Count(ctx)
	if err != nil {
		h.logger.Error("count alerts", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch alerts")
		return
	}

	if items == nil {
		items = []*models.Alert{}
	}
	h.jsonOK(w, ListResponse{Items: items, Total: total, Skip: skip, Limit: limit})
}

// GetByID returns one alert.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.alerts.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}
	if err != nil {
		h.logger.Error("get alert", zap.String("id", id), zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch alert")
		return
	}
	h.jsonOK(w, alert)
}

// parsePage reads skip and limit. It returns a non-empty message on invalid input.
func parsePage(r *http.Request) (skip, limit int, msg string) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, "skip must be a non-negative integer"
		}
		skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, "limit must be between 1 and 100"
		}
		limit = n
	}
	return skip, limit, ""
}
