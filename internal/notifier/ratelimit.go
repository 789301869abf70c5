package notifier

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter caps how many notifications are sent per window.
type RateLimiter struct {
	limiter      *rate.Limiter
	maxPerWindow int
	window       time.Duration
	dropped      atomic.Int64
	enabled      bool
}

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	MaxPerWindow int           // Maximum notifications per window (default: 10)
	Window       time.Duration // Time window (default: 1 minute)
	Disabled     bool          // Send every notification
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// The full window budget is available as a burst.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	every := config.Window / time.Duration(config.MaxPerWindow)
	return &RateLimiter{
		limiter:      rate.NewLimiter(rate.Every(every), config.MaxPerWindow),
		maxPerWindow: config.MaxPerWindow,
		window:       config.Window,
		enabled:      !config.Disabled,
	}
}

// Allow reports whether a notification may be sent now.
func (r *RateLimiter) Allow() bool {
	if !r.enabled {
		return true
	}
	if r.limiter.Allow() {
		return true
	}
	r.dropped.Add(1)
	return false
}

// Stats returns rate limiter statistics.
func (r *RateLimiter) Stats() RateLimitStats {
	return RateLimitStats{
		Dropped:      r.dropped.Load(),
		Available:    r.limiter.Tokens(),
		MaxPerWindow: r.maxPerWindow,
		Window:       r.window,
		Enabled:      r.enabled,
	}
}

// RateLimitStats contains rate limiter statistics.
type RateLimitStats struct {
	Dropped      int64         // Total notifications dropped
	Available    float64       // Notifications that may be sent right now
	MaxPerWindow int           // Maximum allowed per window
	Window       time.Duration // Window duration
	Enabled      bool          // Whether rate limiting is enabled
}
