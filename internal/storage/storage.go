// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/compliops/internal/models"
)

var (
	// ErrNotFound is returned when a referenced alert or report does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a report status update would move
	// the report backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid report status transition")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Alerts() AlertRepository
	Reports() ReportRepository
}

// AlertRepository defines operations for compliance alerts. Alerts are
// append-only, so there is no update or delete.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	List(ctx context.Context, offset, limit int) ([]*models.Alert, error)
	Count(ctx context.Context) (int64, error)
}

// ReportRepository defines operations for generated reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, offset, limit int) ([]*models.Report, error)
	ListByAlert(ctx context.Context, alertID string) ([]*models.Report, error)
	// UpdateStatus moves a report forward in its lifecycle and replaces its
	// content. It returns ErrInvalidTransition if the move is not forward and
	// ErrNotFound if the report does not exist.
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, content string) error
}
