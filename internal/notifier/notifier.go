// Package notifier pushes newly created compliance alerts to chat channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
)

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the notifier name (e.g., "slack", "teams").
	Name() string
	// Send sends an alert notification.
	Send(ctx context.Context, alert *models.Alert) error
}

// ErrRateLimited is returned when a notification is dropped due to rate limiting.
var ErrRateLimited = errors.New("notification rate limited")

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	MinImpact models.ImpactLevel // Alerts below this level are not sent (default: Low)
	RateLimit RateLimitConfig
}

// Dispatcher fans an alert out to all registered notifiers.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	minImpact   models.ImpactLevel
	rateLimiter *RateLimiter
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if !config.MinImpact.Valid() {
		config.MinImpact = models.ImpactLow
	}
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		minImpact:   config.MinImpact,
		rateLimiter: NewRateLimiter(config.RateLimit),
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Len returns the number of registered notifiers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.notifiers)
}

// Dispatch sends alert to every registered notifier if its impact is at or
// above the configured minimum. Returns ErrRateLimited if the notification is
// dropped due to rate limiting.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) error {
	if alert.Impact.Level.Rank() < d.minImpact.Rank() {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.notifiers) == 0 {
		return nil
	}

	if !d.rateLimiter.Allow() {
		for name := range d.notifiers {
			metrics.NotificationsTotal.WithLabelValues(name, "rate_limited").Inc()
		}
		return ErrRateLimited
	}

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			metrics.NotificationsTotal.WithLabelValues(name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(name, "sent").Inc()
	}
	return errors.Join(errs...)
}

// RateLimitStats returns the rate limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	return d.rateLimiter.Stats()
}

// AlertSink persists alerts.
type AlertSink interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// Sink persists alerts through next and then notifies about them. Notification
// failures are logged and never fail the create.
type Sink struct {
	next       AlertSink
	dispatcher *Dispatcher
	timeout    time.Duration
	logger     *zap.Logger
}

// NewSink wraps next. Each dispatch is bounded by timeout (default: 10s).
func NewSink(next AlertSink, dispatcher *Dispatcher, timeout time.Duration, logger *zap.Logger) *Sink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sink{
		next:       next,
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger.Named("notifier"),
	}
}

// Create implements AlertSink.
func (s *Sink) Create(ctx context.Context, alert *models.Alert) error {
	if err := s.next.Create(ctx, alert); err != nil {
		return err
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(dctx, alert); err != nil {
		s.logger.Warn("alert notification failed",
			zap.String("alert_id", alert.ID),
			zap.String("impact", string(alert.Impact.Level)),
			zap.Error(err))
	}
	return nil
}
