package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/compliops/internal/models"
)

const alertColumns = `id, source, summary, impact_level, action_required, actions_json, created_at`

type sqliteAlertRepo struct {
	db *sql.DB
}

// Create inserts an alert, assigning an id if it has none.
func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	actions := alert.Impact.Actions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		alert.ID, string(alert.Source), alert.Summary, string(alert.Impact.Level),
		boolToInt(alert.Impact.ActionRequired), string(actionsJSON), alert.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return alert, err
}

func (r *sqliteAlertRepo) List(ctx context.Context, offset, limit int) ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts ORDER BY created_at, id LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqliteAlertRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var source, level, actionsJSON string
	var actionRequired int

	err := row.Scan(
		&alert.ID, &source, &alert.Summary, &level,
		&actionRequired, &actionsJSON, &alert.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.Source = models.AlertSource(source)
	alert.Impact.Level = models.ImpactLevel(level)
	alert.Impact.ActionRequired = actionRequired != 0

	if err := json.Unmarshal([]byte(actionsJSON), &alert.Impact.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}

	return alert, nil
}
