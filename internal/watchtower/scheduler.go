package watchtower

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/metrics"
	"github.com/good-yellow-bee/compliops/internal/models"
)

// DefaultInterval is the reference polling interval.
const DefaultInterval = 2 * time.Minute

// Poller runs one poll cycle.
type Poller interface {
	Poll(ctx context.Context) (*models.Alert, error)
}

// SchedulerConfig configures the scheduler.
type SchedulerConfig struct {
	Interval    time.Duration // Time between polls (default: 2m)
	PollTimeout time.Duration // Upper bound for a single poll (default: Interval)
	RunOnStart  bool          // Poll once immediately after Start
}

// Scheduler drives a Poller on a fixed interval. Polls never overlap: ticks
// that arrive while a poll is running are dropped.
type Scheduler struct {
	poller Poller
	config SchedulerConfig
	logger *zap.Logger

	trigger chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a scheduler for poller.
func NewScheduler(poller Poller, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = config.Interval
	}
	return &Scheduler{
		poller:  poller,
		config:  config,
		logger:  logger.Named("scheduler"),
		trigger: make(chan struct{}, 1),
	}
}

// Start begins polling. Calling Start while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	// A request left over from a previous run is stale.
	select {
	case <-s.trigger:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx, s.done)
	s.logger.Info("watchtower scheduler started", zap.Duration("interval", s.config.Interval))
}

// Stop cancels future ticks and waits for an in-flight poll to finish.
// Calling Stop when not running is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("watchtower scheduler stopped")
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger requests an immediate poll. Requests made while one is already
// pending or running collapse into a single poll. Requests made while the
// scheduler is stopped are dropped.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.pollOnce()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}

		// A stop that raced with a tick wins.
		if ctx.Err() != nil {
			return
		}
		s.pollOnce()
		s.dropMissedTicks(ticker)
	}
}

// pollOnce runs a poll on a context that Stop does not cancel, so an
// in-flight poll always completes.
func (s *Scheduler) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.PollTimeout)
	defer cancel()

	if _, err := s.poller.Poll(ctx); err != nil {
		s.logger.Warn("poll failed", zap.Error(err))
	}
}

// dropMissedTicks discards a tick that fired while the poll was running.
func (s *Scheduler) dropMissedTicks(ticker *time.Ticker) {
	select {
	case <-ticker.C:
		metrics.WatchtowerTicksSkipped.Inc()
		s.logger.Warn("poll outlasted interval, dropping tick")
	default:
	}
}
