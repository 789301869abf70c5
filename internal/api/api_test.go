package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/analyzer"
	"github.com/good-yellow-bee/compliops/internal/api/health"
	"github.com/good-yellow-bee/compliops/internal/chat"
	"github.com/good-yellow-bee/compliops/internal/executor"
	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
	"github.com/good-yellow-bee/compliops/internal/storage"
)

type testEnv struct {
	srv    *Server
	store  *storage.SQLiteStorage
	runner *executor.Runner
}

// testServer creates a server in mock mode backed by a temp SQLite database.
func testServer(t testing.TB) *testEnv {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "compliops-test.db"))
	require.NoError(t, store.Open(), "open storage")
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(), "migrate storage")

	logger := zap.NewNop()
	exec := executor.New(store.Alerts(), store.Reports(), analyzer.New(nil, logger), nil, nil, executor.Config{}, logger)
	runner := executor.NewRunner(exec, 0, logger)

	cfg := &Config{
		Address:        ":0",
		JWTSecret:      []byte("test-jwt-secret-32-bytes-long!!"),
		TokenTTL:       15 * time.Minute,
		RateLimitPerIP: 10000,
		Version:        "1.0.0",
	}

	srv, err := New(cfg, store, runner, chat.NewAdvisor(nil, nil, logger), logger)
	require.NoError(t, err, "create server")
	srv.RegisterHealthChecker(health.NewSQLiteChecker(store.DB()))

	// Registered after the store cleanup so tasks drain before the store closes.
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		runner.Wait(ctx)
	})

	return &testEnv{srv: srv, store: store, runner: runner}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createAlert(t *testing.T, summary string) *models.Alert {
	t.Helper()
	alert := models.NewAlert(models.AlertSourceWatchtower, models.Classification{
		Summary:        summary,
		Impact:         models.ImpactHigh,
		ActionRequired: true,
		Actions:        []string{"Review compliance documentation"},
	})
	require.NoError(t, e.store.Alerts().Create(context.Background(), alert))
	return alert
}

func (e *testEnv) waitForTasks(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.runner.Wait(ctx), "wait for report tasks")
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	wrapper := struct {
		Data any `json:"data"`
	}{Data: v}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&wrapper), "body: %s", rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)

	rec := env.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp health.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Mock", resp.Mode)
	assert.False(t, resp.APIKeyConfigured)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestReadyEndpoint(t *testing.T) {
	env := testServer(t)

	rec := env.do("GET", "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogin_AnyCredentials(t *testing.T) {
	env := testServer(t)

	rec := env.do("POST", "/api/v1/login", `{"email":"ops@startup.io","password":"whatever"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestGenerateReport_MockMode(t *testing.T) {
	env := testServer(t)
	alert := env.createAlert(t, "CBUAE released new AML screening procedures")
	accepted := metrics.ReportTriggersTotal.WithLabelValues("accepted")
	before := testutil.ToFloat64(accepted)

	rec := env.do("POST", "/api/v1/reports/generate?alert_id="+alert.ID, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(accepted))

	var started struct {
		ReportID string `json:"report_id"`
		Status   string `json:"status"`
	}
	decodeData(t, rec, &started)
	require.NotEmpty(t, started.ReportID)
	assert.Equal(t, string(models.ReportInProgress), started.Status)

	env.waitForTasks(t)

	rec = env.do("GET", "/api/v1/reports/"+started.ReportID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.Report
	decodeData(t, rec, &report)

	require.Equal(t, models.ReportCompleted, report.Status)
	assert.Contains(t, report.Content, alert.Summary)
	for _, h := range executor.MockSections {
		assert.Contains(t, report.Content, h)
	}
	assert.Equal(t, models.ReportTitle(alert.ID), report.Title)
}

func TestGenerateReport_ConcurrentAlerts(t *testing.T) {
	env := testServer(t)
	a1 := env.createAlert(t, "SAMA updated consumer protection guidelines on microfinance lending.")
	a2 := env.createAlert(t, "CBUAE released new AML screening procedures for fintech operators.")

	ids := map[string]*models.Alert{}
	for _, a := range []*models.Alert{a1, a2} {
		rec := env.do("POST", "/api/v1/reports/generate?alert_id="+a.ID, "")
		require.Equal(t, http.StatusAccepted, rec.Code)
		var started struct {
			ReportID string `json:"report_id"`
		}
		decodeData(t, rec, &started)
		ids[started.ReportID] = a
	}

	env.waitForTasks(t)

	for reportID, alert := range ids {
		report, err := env.store.Reports().GetByID(context.Background(), reportID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportCompleted, report.Status)
		assert.Equal(t, alert.ID, report.AlertID)
		assert.Contains(t, report.Content, alert.Summary)
		for _, other := range ids {
			if other.ID != alert.ID {
				assert.NotContains(t, report.Content, other.Summary, "report %s contains another alert's summary", reportID)
			}
		}
	}
}

func TestGenerateReport_Errors(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing alert id", "/api/v1/reports/generate", http.StatusBadRequest},
		{"unknown alert", "/api/v1/reports/generate?alert_id=nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.do("POST", tt.target, "").Code)
		})
	}

	reports, err := env.store.Reports().List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, reports, "no report should be created on error")
}

func TestGenerateReport_RunnerClosed(t *testing.T) {
	env := testServer(t)
	alert := env.createAlert(t, "late alert")
	env.waitForTasks(t)
	unavailable := metrics.ReportTriggersTotal.WithLabelValues("unavailable")
	before := testutil.ToFloat64(unavailable)

	rec := env.do("POST", "/api/v1/reports/generate?alert_id="+alert.ID, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(unavailable))

	reports, err := env.store.Reports().ListByAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, models.ReportFailed, reports[0].Status)
}

func TestAlerts_ListAndGet(t *testing.T) {
	env := testServer(t)
	for _, s := range []string{"first", "second", "third"} {
		env.createAlert(t, s)
	}

	rec := env.do("GET", "/api/v1/alerts?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []*models.Alert `json:"items"`
		Total int64           `json:"total"`
	}
	decodeData(t, rec, &page)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)

	rec = env.do("GET", "/api/v1/alerts/"+page.Items[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alert models.Alert
	decodeData(t, rec, &alert)
	assert.Equal(t, models.ImpactHigh, alert.Impact.Level)

	assert.Equal(t, http.StatusNotFound, env.do("GET", "/api/v1/alerts/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/v1/alerts?limit=1000", "").Code)
}

func TestReports_List(t *testing.T) {
	env := testServer(t)

	rec := env.do("GET", "/api/v1/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []*models.Report `json:"items"`
	}
	decodeData(t, rec, &page)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	assert.Equal(t, http.StatusNotFound, env.do("GET", "/api/v1/reports/missing", "").Code)
}

func TestChat_MockAnswer(t *testing.T) {
	env := testServer(t)

	rec := env.do("POST", "/api/v1/chat", `{"query":"What does data residency require?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var answer chat.Answer
	decodeData(t, rec, &answer)
	assert.Equal(t, "Mock: DATA RESIDENCY", answer.Source)

	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/api/v1/chat", `{"query":"  "}`).Code)
}

func TestUnknownRoute(t *testing.T) {
	env := testServer(t)

	rec := env.do("GET", "/api/v1/nothing-here", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestNew_Validation(t *testing.T) {
	env := testServer(t)
	logger := zap.NewNop()
	advisor := chat.NewAdvisor(nil, nil, logger)

	_, err := New(nil, env.store, env.runner, advisor, logger)
	assert.Error(t, err, "nil config")
	_, err = New(&Config{}, env.store, env.runner, advisor, logger)
	assert.Error(t, err, "missing JWT secret")
}
