package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// BenchmarkAPI_Health benchmarks the health endpoint
func BenchmarkAPI_Health(b *testing.B) {
	env := testServer(b)

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	client := ts.Client()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), "GET", ts.URL+"/health", nil)
		resp, err := client.Do(req)
		require.NoError(b, err)
		resp.Body.Close()
	}
}

// BenchmarkAPI_AlertsList benchmarks a page of alerts
func BenchmarkAPI_AlertsList(b *testing.B) {
	env := testServer(b)

	for i := 0; i < 100; i++ {
		alert := models.NewAlert(models.AlertSourceWatchtower, models.Classification{
			Summary: fmt.Sprintf("bulletin %d", i),
			Impact:  models.ImpactMedium,
		})
		require.NoError(b, env.store.Alerts().Create(context.Background(), alert))
	}

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	client := ts.Client()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequestWithContext(context.Background(), "GET", ts.URL+"/api/v1/alerts?limit=50", nil)
		resp, err := client.Do(req)
		require.NoError(b, err)
		resp.Body.Close()
	}
}

// BenchmarkAPI_Chat benchmarks the mock chat path
func BenchmarkAPI_Chat(b *testing.B) {
	env := testServer(b)

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	client := ts.Client()
	body := []byte(`{"query":"kyc refresh rules"}`)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req, _ := http.NewRequestWithContext(context.Background(), "POST", ts.URL+"/api/v1/chat", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err != nil {
				b.Error(err)
				return
			}
			resp.Body.Close()
		}
	})
}
