package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(ctx context.Context) error { return s.err }

func TestHealth_Mode(t *testing.T) {
	tests := []struct {
		configured bool
		wantMode   string
	}{
		{false, "Mock"},
		{true, "Production"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMode, func(t *testing.T) {
			h := NewHandler("1.0.0", tt.configured)
			fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			h.now = func() time.Time { return fixed }

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest("GET", "/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantMode, resp.Mode)
			assert.Equal(t, tt.configured, resp.APIKeyConfigured)
			assert.Equal(t, "1.0.0", resp.Version)
			assert.Equal(t, "healthy", resp.Status)
			assert.True(t, resp.Timestamp.Equal(fixed), "Timestamp = %v, want %v", resp.Timestamp, fixed)
		})
	}
}

func TestReady(t *testing.T) {
	h := NewHandler("dev", false)
	h.RegisterChecker(stubChecker{name: "sqlite"})

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	h.RegisterChecker(stubChecker{name: "watchtower", err: errors.New("watchtower scheduler not running")})
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["sqlite"])
	assert.Equal(t, "watchtower scheduler not running", resp.Checks["watchtower"])
}

func TestSchedulerChecker(t *testing.T) {
	running := false
	c := NewSchedulerChecker(func() bool { return running })
	assert.Error(t, c.Check(context.Background()))

	running = true
	assert.NoError(t, c.Check(context.Background()))
}
