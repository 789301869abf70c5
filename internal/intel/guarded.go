package intel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/metrics"
)

// GuardOptions configures a Guarded gateway.
type GuardOptions struct {
	Timeout          time.Duration // Per-call timeout (default: 30s)
	FailureThreshold uint32        // Consecutive failures before the breaker opens (default: 5)
	OpenDuration     time.Duration // How long the breaker stays open (default: 1m)
}

// DefaultGuardOptions returns default guard options.
func DefaultGuardOptions() GuardOptions {
	return GuardOptions{
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		OpenDuration:     time.Minute,
	}
}

func (o *GuardOptions) setDefaults() {
	d := DefaultGuardOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.FailureThreshold == 0 {
		o.FailureThreshold = d.FailureThreshold
	}
	if o.OpenDuration <= 0 {
		o.OpenDuration = d.OpenDuration
	}
}

var errEmptyResponse = errors.New("empty response")

// Guarded bounds every call to an underlying gateway with a timeout and a
// circuit breaker, and normalizes all failures to ErrGateway.
type Guarded struct {
	next    Gateway
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGuarded wraps next. Wrapping the Unavailable gateway returns it unchanged.
func NewGuarded(next Gateway, opts GuardOptions, logger *zap.Logger) Gateway {
	if !Configured(next) {
		return Unavailable
	}
	opts.setDefaults()
	logger = logger.Named("gateway")

	settings := gobreaker.Settings{
		Name:        "intelligence-gateway",
		MaxRequests: 1,
		Timeout:     opts.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Guarded{
		next:    next,
		timeout: opts.Timeout,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

type invokeResult struct {
	text string
	err  error
}

// Invoke calls the wrapped gateway. The call is abandoned once the timeout
// elapses even if the backend ignores context cancellation.
func (g *Guarded) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.breaker.Execute(func() (interface{}, error) {
		done := make(chan invokeResult, 1)
		go func() {
			text, err := g.next.Invoke(ctx, prompt)
			done <- invokeResult{text: text, err: err}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				return nil, r.err
			}
			if strings.TrimSpace(r.text) == "" {
				return nil, errEmptyResponse
			}
			return r.text, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	metrics.GatewayCallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayCallsTotal.WithLabelValues(outcome(err)).Inc()
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}

	metrics.GatewayCallsTotal.WithLabelValues("ok").Inc()
	return out.(string), nil
}

// State returns the circuit breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}
