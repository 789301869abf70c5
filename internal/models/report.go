package models

import (
	"fmt"
	"time"
)

// ReportStatus is the lifecycle state of a generated report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in_progress"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

// CanTransitionTo reports whether moving from s to next goes forward.
// Status only moves pending -> in_progress -> {completed, failed}.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportPending:
		return next == ReportInProgress || next.IsTerminal()
	case ReportInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

// ParseReportStatus converts a string to ReportStatus.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch ReportStatus(s) {
	case ReportPending, ReportInProgress, ReportCompleted, ReportFailed:
		return ReportStatus(s), nil
	default:
		return "", fmt.Errorf("unknown report status %q", s)
	}
}

// Report is a generated compliance document tied to an alert.
type Report struct {
	ID        string       `json:"id"`
	AlertID   string       `json:"alert_id"`
	Status    ReportStatus `json:"status"`
	Title     string       `json:"title"`
	Content   string       `json:"content_markdown"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewReport creates a report for an alert in the given initial status.
func NewReport(alertID string, status ReportStatus) *Report {
	now := time.Now().UTC()
	return &Report{
		AlertID:   alertID,
		Status:    status,
		Title:     ReportTitle(alertID),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ReportTitle returns the title used for reports about an alert.
func ReportTitle(alertID string) string {
	return fmt.Sprintf("Compliance Report for Alert #%s", alertID)
}
