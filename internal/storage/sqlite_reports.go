package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/compliops/internal/models"
)

const reportColumns = `id, alert_id, status, title, content_markdown, created_at, updated_at`

var allStatuses = []models.ReportStatus{
	models.ReportPending,
	models.ReportInProgress,
	models.ReportCompleted,
	models.ReportFailed,
}

type sqliteReportRepo struct {
	db *sql.DB
}

// Create inserts a report, assigning an id if it has none.
func (r *sqliteReportRepo) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.UpdatedAt.IsZero() {
		report.UpdatedAt = report.CreatedAt
	}

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.AlertID, string(report.Status), report.Title, report.Content,
		report.CreatedAt.UTC(), report.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *sqliteReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return report, err
}

func (r *sqliteReportRepo) List(ctx context.Context, offset, limit int) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports ORDER BY created_at, id LIMIT ? OFFSET ?
	`
	return r.queryReports(ctx, query, limit, offset)
}

func (r *sqliteReportRepo) ListByAlert(ctx context.Context, alertID string) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports WHERE alert_id = ? ORDER BY created_at, id
	`
	return r.queryReports(ctx, query, alertID)
}

// UpdateStatus applies a forward-only status change in a single conditional
// UPDATE so two writers can never both move the same report.
func (r *sqliteReportRepo) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, content string) error {
	var from []any
	for _, s := range allStatuses {
		if s.CanTransitionTo(status) {
			from = append(from, string(s))
		}
	}
	if len(from) == 0 {
		return fmt.Errorf("report %s to %s: %w", id, status, ErrInvalidTransition)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	query := `
		UPDATE reports SET status = ?, content_markdown = ?, updated_at = ?
		WHERE id = ? AND status IN (` + placeholders + `)
	`
	args := append([]any{string(status), content, time.Now().UTC(), id}, from...)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	// Nothing matched: either the report is missing or the move is backwards.
	var current string
	err = r.db.QueryRowContext(ctx, "SELECT status FROM reports WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read report status: %w", err)
	}
	return fmt.Errorf("report %s from %s to %s: %w", id, current, status, ErrInvalidTransition)
}

func (r *sqliteReportRepo) queryReports(ctx context.Context, query string, args ...any) ([]*models.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row scanner) (*models.Report, error) {
	report := &models.Report{}
	var status string

	err := row.Scan(
		&report.ID, &report.AlertID, &status, &report.Title, &report.Content,
		&report.CreatedAt, &report.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}

	report.Status, err = models.ParseReportStatus(status)
	if err != nil {
		return nil, fmt.Errorf("scan report %s: %w", report.ID, err)
	}
	return report, nil
}
