package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/compliops/internal/metrics"
)

// ReportTriggerRoute is the route pattern of the report generation trigger.
const ReportTriggerRoute = "/api/v1/reports/generate"

// unmatchedRoute labels requests that matched no route, so unknown paths
// cannot grow the label set.
const unmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Metrics records request count, latency and in-flight requests labelled by
// chi route pattern. Report generation requests are also counted by outcome.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

		if r.Method == http.MethodPost && route == ReportTriggerRoute {
			metrics.ReportTriggersTotal.WithLabelValues(triggerOutcome(rec.status)).Inc()
		}
	})
}

// routeLabel is only complete after routing, so it must be read once the
// handler has returned.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

func triggerOutcome(status int) string {
	switch {
	case status == http.StatusAccepted:
		return "accepted"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "error"
	default:
		return "rejected"
	}
}
