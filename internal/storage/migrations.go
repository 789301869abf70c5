package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Compliance alerts raised by the watchtower
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL,
				summary TEXT NOT NULL,
				impact_level TEXT NOT NULL,
				action_required INTEGER NOT NULL DEFAULT 1,
				actions_json TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);

			-- Generated reports
			CREATE TABLE IF NOT EXISTS reports (
				id TEXT PRIMARY KEY,
				alert_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				title TEXT NOT NULL,
				content_markdown TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
		`,
	},
	{
		Version: 2,
		Name:    "listing_indexes",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
			CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
			CREATE INDEX IF NOT EXISTS idx_reports_alert_id ON reports(alert_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UTC(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
