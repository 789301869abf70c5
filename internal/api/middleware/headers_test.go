package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/good-yellow-bee/compliops/internal/metrics"
)

func TestRecoverer_LogsPanicWithStackTrace(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic message")
	})
	handler := Recoverer(zap.New(core))(panicHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test-endpoint", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "test panic message", fields["panic"])
	assert.Equal(t, "/test-endpoint", fields["path"])
	assert.Contains(t, fields["stack"], "goroutine")
}

func TestRecoverer_NoPanic(t *testing.T) {
	normalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	handler := Recoverer(zap.NewNop())(normalHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/normal", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
		{"Cache-Control", "no-store"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, rec.Header().Get(tt.header), tt.header)
	}

	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS must not be set on plain HTTP")
}

func TestRateLimitByIP(t *testing.T) {
	limiter := NewRateLimiter(2)
	handler := RateLimitByIP(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/v1/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, send("10.0.0.1"), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"), "limited after burst")
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "other clients must not be limited")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain", "203.0.113.5, 10.0.0.1", "", "10.0.0.1:1", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.1:1", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{}"))
		})
		r.Post("/reports/generate", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("alert_id") {
			case "":
				w.WriteHeader(http.StatusBadRequest)
			case "closed":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.WriteHeader(http.StatusAccepted)
			}
		})
	})
	return r
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	handler := metricsRouter()
	byPattern := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/alerts/{id}", "200")
	unmatched := metrics.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	before, beforeUnmatched := testutil.ToFloat64(byPattern), testutil.ToFloat64(unmatched)

	for _, path := range []string{"/api/v1/alerts/a-1", "/api/v1/alerts/a-2", "/scan/wp-login.php", "/scan/.env"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(byPattern))
	assert.Equal(t, beforeUnmatched+2, testutil.ToFloat64(unmatched))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}

func TestMetrics_ReportTriggerOutcomes(t *testing.T) {
	handler := metricsRouter()
	outcomes := []string{"accepted", "rejected", "unavailable"}
	before := make(map[string]float64)
	for _, o := range outcomes {
		before[o] = testutil.ToFloat64(metrics.ReportTriggersTotal.WithLabelValues(o))
	}

	for _, target := range []string{
		ReportTriggerRoute + "?alert_id=a-1",
		ReportTriggerRoute + "?alert_id=a-2",
		ReportTriggerRoute,
		ReportTriggerRoute + "?alert_id=closed",
	} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", target, nil))
	}
	// Reads of the trigger route are not counted as triggers.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/alerts/a-1", nil))

	assert.Equal(t, before["accepted"]+2, testutil.ToFloat64(metrics.ReportTriggersTotal.WithLabelValues("accepted")))
	assert.Equal(t, before["rejected"]+1, testutil.ToFloat64(metrics.ReportTriggersTotal.WithLabelValues("rejected")))
	assert.Equal(t, before["unavailable"]+1, testutil.ToFloat64(metrics.ReportTriggersTotal.WithLabelValues("unavailable")))
}

func TestTriggerOutcome(t *testing.T) {
	tests := map[int]string{
		http.StatusAccepted:            "accepted",
		http.StatusBadRequest:          "rejected",
		http.StatusNotFound:            "rejected",
		http.StatusServiceUnavailable:  "unavailable",
		http.StatusInternalServerError: "error",
	}
	for status, want := range tests {
		assert.Equal(t, want, triggerOutcome(status), "status %d", status)
	}
}
