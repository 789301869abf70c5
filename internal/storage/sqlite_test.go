package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-yellow-bee/compliops/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, store.Open(), "open database")
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(), "migrate database")
	return store
}

func newTestAlert(summary string, createdAt time.Time) *models.Alert {
	return &models.Alert{
		Source:  models.AlertSourceWatchtower,
		Summary: summary,
		Impact: models.Impact{
			Level:          models.ImpactHigh,
			ActionRequired: true,
			Actions:        []string{"Review compliance documentation", "Update internal policies"},
		},
		CreatedAt: createdAt,
	}
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"alerts", "reports", "schema_migrations"} {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		assert.NoError(t, err, "table %s should exist", table)
	}

	// Running migrations again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStorage_OpenRequiresPath(t *testing.T) {
	assert.Error(t, NewSQLiteStorage("").Open())
}

func TestAlertRepository_CreateGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	alert := newTestAlert("CBUAE released new AML screening procedures", time.Now().UTC())
	require.NoError(t, store.Alerts().Create(ctx, alert))
	require.NotEmpty(t, alert.ID, "create should assign an id")

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.Summary, got.Summary)
	assert.Equal(t, models.ImpactHigh, got.Impact.Level)
	assert.True(t, got.Impact.ActionRequired)
	assert.Equal(t, []string{"Review compliance documentation", "Update internal policies"}, got.Impact.Actions)
	assert.Equal(t, models.AlertSourceWatchtower, got.Source)
	assert.True(t, got.CreatedAt.Equal(alert.CreatedAt), "created_at = %v, want %v", got.CreatedAt, alert.CreatedAt)

	_, err = store.Alerts().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlertRepository_ListPagination(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := newTestAlert(fmt.Sprintf("alert %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, store.Alerts().Create(ctx, a))
	}

	page, err := store.Alerts().List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alert 1", page[0].Summary)
	assert.Equal(t, "alert 2", page[1].Summary)

	count, err := store.Alerts().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	empty, err := store.Alerts().List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReportRepository_Lifecycle(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	report := models.NewReport("alert-1", models.ReportInProgress)
	require.NoError(t, store.Reports().Create(ctx, report))

	got, err := store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportInProgress, got.Status)
	assert.Empty(t, got.Content)

	require.NoError(t, store.Reports().UpdateStatus(ctx, report.ID, models.ReportCompleted, "# Report"))

	got, err = store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
	assert.Equal(t, "# Report", got.Content)

	// Terminal reports never move again.
	err = store.Reports().UpdateStatus(ctx, report.ID, models.ReportFailed, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = store.Reports().UpdateStatus(ctx, report.ID, models.ReportInProgress, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err = store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportCompleted, got.Status)
	assert.Equal(t, "# Report", got.Content)
}

func TestReportRepository_UpdateStatusErrors(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	err := store.Reports().UpdateStatus(ctx, "missing", models.ReportCompleted, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Reports().UpdateStatus(ctx, "missing", models.ReportPending, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = store.Reports().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportRepository_UnknownStoredStatus(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	report := models.NewReport("alert-1", models.ReportInProgress)
	require.NoError(t, store.Reports().Create(ctx, report))
	_, err := store.db.ExecContext(ctx, "UPDATE reports SET status = 'done' WHERE id = ?", report.ID)
	require.NoError(t, err)

	_, err = store.Reports().GetByID(ctx, report.ID)
	assert.ErrorContains(t, err, `unknown report status "done"`)

	_, err = store.Reports().List(ctx, 0, 10)
	assert.Error(t, err)
}

func TestReportRepository_SingleWriterWins(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	report := models.NewReport("alert-1", models.ReportInProgress)
	require.NoError(t, store.Reports().Create(ctx, report))

	var wg sync.WaitGroup
	results := make([]error, 2)
	statuses := []models.ReportStatus{models.ReportCompleted, models.ReportFailed}
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Reports().UpdateStatus(ctx, report.ID, statuses[i], string(statuses[i]))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded, "exactly one writer must succeed")
}

func TestReportRepository_ListByAlert(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, alertID := range []string{"a", "b", "a"} {
		require.NoError(t, store.Reports().Create(ctx, models.NewReport(alertID, models.ReportPending)))
	}

	reports, err := store.Reports().ListByAlert(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	all, err := store.Reports().List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
