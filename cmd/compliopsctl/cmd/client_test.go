package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alertJSON = `{"id":"a-1","source":"watchtower","summary":"CBUAE released new AML screening procedures",` +
	`"impact":{"level":"High","action_required":true,"actions":["Review compliance documentation"]},` +
	`"created_at":"2026-01-02T03:04:05Z"}`

func fakeServer(t *testing.T, polls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","api_key_configured":false,"mode":"Mock","version":"dev"}`))
	})
	mux.HandleFunc("GET /api/v1/alerts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":{"items":[` + alertJSON + `],"total":1,"skip":0,"limit":5}}`))
	})
	mux.HandleFunc("GET /api/v1/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "a-1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"alert not found"}}`))
			return
		}
		w.Write([]byte(`{"data":` + alertJSON + `}`))
	})
	mux.HandleFunc("POST /api/v1/reports/generate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a-1", r.URL.Query().Get("alert_id"))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"data":{"report_id":"r-1","status":"in_progress"}}`))
	})
	mux.HandleFunc("GET /api/v1/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		status := "in_progress"
		content := ""
		if polls.Add(1) >= 3 {
			status = "completed"
			content = "# Compliance Report for Alert #a-1"
		}
		w.Write([]byte(`{"data":{"id":"r-1","alert_id":"a-1","status":"` + status +
			`","content_markdown":"` + content + `"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Alerts(t *testing.T) {
	var polls atomic.Int32
	c := NewClient(fakeServer(t, &polls).URL+"/", time.Second)

	page, err := c.ListAlerts(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.EqualValues(t, "High", page.Items[0].Impact.Level)

	_, err = c.GetAlert(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestClient_WaitReport(t *testing.T) {
	var polls atomic.Int32
	c := NewClient(fakeServer(t, &polls).URL, time.Second)

	res, err := c.GenerateReport(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.ReportID)
	assert.EqualValues(t, "in_progress", res.Status)

	report, err := c.WaitReport(context.Background(), res.ReportID, 5*time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, "completed", report.Status)
	assert.EqualValues(t, 3, polls.Load())
}

func TestClient_WaitReportTimeout(t *testing.T) {
	var polls atomic.Int32
	polls.Store(-1000)
	c := NewClient(fakeServer(t, &polls).URL, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.WaitReport(ctx, "r-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "report r-1 still in_progress")
}

func TestClient_WaitReportTimeoutDuringRequest(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) > 1 {
			// Later polls hang until the client gives up.
			<-r.Context().Done()
			return
		}
		w.Write([]byte(`{"data":{"id":"r-1","alert_id":"a-1","status":"in_progress"}}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	report, err := c.WaitReport(ctx, "r-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "report r-1 still in_progress")
	require.NotNil(t, report)
	assert.EqualValues(t, "in_progress", report.Status)
}

func TestCommands(t *testing.T) {
	var polls atomic.Int32
	srv := fakeServer(t, &polls)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"health", []string{"health"}, []string{"Mode:     Mock"}},
		{"alerts list", []string{"alerts", "list", "--limit", "5"}, []string{"a-1", "High", "Showing 1 of 1 alert(s)"}},
		{"alerts get", []string{"alerts", "get", "a-1"}, []string{"1. Review compliance documentation"}},
		{"generate wait", []string{"reports", "generate", "a-1", "--wait", "--poll-interval", "5ms"},
			[]string{"Status:   completed", "# Compliance Report for Alert #a-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(append([]string{"--server", srv.URL, "--output", "table"}, tt.args...))
			require.NoError(t, rootCmd.Execute())
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long ...", truncate("a  long\nsummary text", 10))
}
