// Package metrics provides Prometheus metrics for CompliOps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "compliops"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// ReportTriggersTotal counts report generation requests by outcome
	// (accepted, rejected, unavailable, error).
	ReportTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "report_triggers_total",
			Help:      "Total report generation requests by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Watchtower metrics
var (
	// WatchtowerPollsTotal counts poll cycles by result
	// (unchanged, changed, source_error, store_error).
	WatchtowerPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchtower",
			Name:      "polls_total",
			Help:      "Total watchtower poll cycles by result",
		},
		[]string{"result"},
	)

	// WatchtowerTicksSkipped counts scheduler ticks dropped because a poll was still running.
	WatchtowerTicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchtower",
			Name:      "ticks_skipped_total",
			Help:      "Scheduler ticks dropped while a poll was in flight",
		},
	)

	// AlertsCreatedTotal counts alerts persisted by the watchtower.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchtower",
			Name:      "alerts_created_total",
			Help:      "Total alerts created by impact level",
		},
		[]string{"impact"},
	)

	// WatchtowerPollDuration tracks poll latency.
	WatchtowerPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "watchtower",
			Name:      "poll_duration_seconds",
			Help:      "Watchtower poll latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Intelligence gateway metrics
var (
	// GatewayCallsTotal counts gateway invocations by outcome (ok, error, timeout, rejected).
	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total intelligence gateway calls by outcome",
		},
		[]string{"outcome"},
	)

	// GatewayCallDuration tracks gateway latency.
	GatewayCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Intelligence gateway call latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	// FallbacksTotal counts switches to the deterministic mock path by site
	// (classify, report, chat) and reason (absent, error).
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "fallbacks_total",
			Help:      "Total fallbacks to the mock path by site and reason",
		},
		[]string{"site", "reason"},
	)
)

// Executor metrics
var (
	// ReportsTotal counts executor runs by final status
	// (completed, failed, aborted).
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "reports_total",
			Help:      "Total report generation runs by result",
		},
		[]string{"result"},
	)

	// ReportDuration tracks report generation latency by generator (gateway, mock).
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "report_duration_seconds",
			Help:      "Report generation latency in seconds",
			Buckets:   []float64{.01, .1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"generator"},
	)

	// TasksInFlight tracks executor tasks currently running.
	TasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tasks_in_flight",
			Help:      "Number of report generation tasks currently running",
		},
	)
)

// Notification metrics
var (
	// NotificationsTotal counts alert notifications by notifier and result
	// (sent, error, rate_limited).
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "notifications_total",
			Help:      "Total alert notifications by notifier and result",
		},
		[]string{"notifier", "result"},
	)
)
