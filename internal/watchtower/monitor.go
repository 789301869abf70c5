// Package watchtower detects changes in monitored regulatory sources and
// raises compliance alerts for them.
package watchtower

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
)

// Fingerprint is a comparable digest of monitored content. Equal content
// always has an equal fingerprint.
type Fingerprint uint64

// FingerprintOf computes the fingerprint of content.
func FingerprintOf(content string) Fingerprint {
	return Fingerprint(xxhash.Sum64String(content))
}

// String returns the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Classifier turns changed content into an impact classification.
// Implementations must not fail; see analyzer.Analyzer.
type Classifier interface {
	Classify(ctx context.Context, content string) models.Classification
}

// AlertSink persists alerts.
type AlertSink interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// Monitor polls a source and raises an alert whenever its content changes.
// The last fingerprint is owned by the monitor and only touched inside Poll,
// which is serialized.
type Monitor struct {
	source     Source
	classifier Classifier
	alerts     AlertSink
	logger     *zap.Logger

	mu   sync.Mutex
	last Fingerprint
	seen bool
}

// NewMonitor creates a monitor. The first successful poll always counts as a change.
func NewMonitor(source Source, classifier Classifier, alerts AlertSink, logger *zap.Logger) *Monitor {
	return &Monitor{
		source:     source,
		classifier: classifier,
		alerts:     alerts,
		logger:     logger.Named("watchtower").With(zap.String("source", source.Name())),
	}
}

// Poll runs one change-detection cycle. It returns the created alert, or
// nil when the content is unchanged. A fetch failure returns an error wrapping
// ErrSourceUnavailable and leaves the fingerprint untouched.
func (m *Monitor) Poll(ctx context.Context) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.WatchtowerPollDuration.Observe(time.Since(start).Seconds())
	}()

	content, err := m.source.Fetch(ctx)
	if err != nil {
		metrics.WatchtowerPollsTotal.WithLabelValues("source_error").Inc()
		m.logger.Warn("fetch failed, skipping cycle", zap.Error(err))
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, err
	}

	fp := FingerprintOf(content)
	if m.seen && fp == m.last {
		metrics.WatchtowerPollsTotal.WithLabelValues("unchanged").Inc()
		m.logger.Debug("no change detected", zap.Stringer("fingerprint", fp))
		return nil, nil
	}

	m.logger.Info("change detected",
		zap.Stringer("previous", m.last),
		zap.Stringer("fingerprint", fp))
	m.last = fp
	m.seen = true

	c := m.classifier.Classify(ctx, content).Normalize(content)
	alert := models.NewAlert(models.AlertSourceWatchtower, c)

	if err := m.alerts.Create(ctx, alert); err != nil {
		metrics.WatchtowerPollsTotal.WithLabelValues("store_error").Inc()
		m.logger.Error("failed to save alert", zap.Error(err))
		return nil, fmt.Errorf("save alert: %w", err)
	}

	metrics.WatchtowerPollsTotal.WithLabelValues("changed").Inc()
	metrics.AlertsCreatedTotal.WithLabelValues(string(alert.Impact.Level)).Inc()
	m.logger.Info("alert saved",
		zap.String("alert_id", alert.ID),
		zap.String("impact", string(alert.Impact.Level)))
	return alert, nil
}
