// Package reports triggers report generation and serves generated reports.
package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/executor"
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
	errCodeUnavailable   = "UNAVAILABLE"
	errCodeInternalError = "INTERNAL_ERROR"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Submitter schedules report generation in the background.
type Submitter interface {
	Submit(reportID, alertID string) (*executor.Task, error)
}

// GenerateResponse is returned when generation starts.
type GenerateResponse struct {
	ReportID string              `json:"report_id"`
	Status   models.ReportStatus `json:"status"`
}

// ListResponse is a page of reports.
type ListResponse struct {
	Items []*models.Report `json:"items"`
	Skip  int              `json:"skip"`
	Limit int              `json:"limit"`
}

// Handler handles report endpoints.
type Handler struct {
	alerts  storage.AlertRepository
	reports storage.ReportRepository
	runner  Submitter
	logger  *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(alerts storage.AlertRepository, reports storage.ReportRepository, runner Submitter, logger *zap.Logger) *Handler {
	return &Handler{
		alerts:  alerts,
		reports: reports,
		runner:  runner,
		logger:  logger.Named("reports"),
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

func (h *Handler) jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		h.logger.Warn("json encode error", zap.Error(err))
	}
}

// Generate creates an in_progress report for the alert and starts the
// executor. Callers poll GetByID for the terminal status.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	alertID := r.URL.Query().Get("alert_id")
	if alertID == "" {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alert_id is required")
		return
	}

	ctx := r.Context()
	if _, err := h.alerts.GetByID(ctx, alertID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
			return
		}
		h.logger.Error("get alert", zap.String("alert_id", alertID), zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to initiate report generation")
		return
	}

	report := models.NewReport(alertID, models.ReportInProgress)
	if err := h.reports.Create(ctx, report); err != nil {
		h.logger.Error("create report", zap.String("alert_id", alertID), zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to initiate report generation")
		return
	}

	if _, err := h.runner.Submit(report.ID, alertID); err != nil {
		h.logger.Warn("submit report task", zap.String("report_id", report.ID), zap.Error(err))
		if uerr := h.reports.UpdateStatus(ctx, report.ID, models.ReportFailed, ""); uerr != nil {
			h.logger.Error("mark report failed", zap.String("report_id", report.ID), zap.Error(uerr))
		}
		h.jsonError(w, http.StatusServiceUnavailable, errCodeUnavailable, "report generation is not accepting work")
		return
	}

	h.logger.Info("report generation started",
		zap.String("alert_id", alertID),
		zap.String("report_id", report.ID))
	h.jsonStatus(w, http.StatusAccepted, GenerateResponse{ReportID: report.ID, Status: report.Status})
}

// List returns a page of reports, oldest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, msg := parsePage(r)
	if msg != "" {
		h.jsonError(w, http.StatusBadRequest, errCodeBadRequest, msg)
		return
	}

	items, err := h.reports.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error("list reports", zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch reports")
		return
	}
	if items == nil {
		items = []*models.Report{}
	}
	h.jsonStatus(w, http.StatusOK, ListResponse{Items: items, Skip: skip, Limit: limit})
}

// GetByID returns one report, including its current status.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.reports.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		h.jsonError(w, http.StatusNotFound, errCodeNotFound, "report not found")
		return
	}
	if err != nil {
		h.logger.Error("get report", zap.String("id", id), zap.Error(err))
		h.jsonError(w, http.StatusInternalServerError, errCodeInternalError, "failed to fetch report")
		return
	}
	h.jsonStatus(w, http.StatusOK, report)
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
