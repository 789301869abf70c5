// Package intel defines the intelligence gateway: an optional natural-language
// backend that turns a prompt into text or fails.
//
// Callers never see gateway failures as their own failures. The analyzer,
// report executor and chat advisor all pair every gateway call site with a
// deterministic substitute of the same output shape.
package intel

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by the Unavailable gateway. It is the static,
	// expected outcome when no backend is configured.
	ErrUnavailable = errors.New("intelligence gateway not configured")
	// ErrGateway wraps runtime gateway failures: timeouts, transport errors,
	// empty responses and circuit-breaker rejections.
	ErrGateway = errors.New("intelligence gateway error")
)

// Gateway produces text for a prompt.
type Gateway interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Gateway interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type unavailable struct{}

func (unavailable) Invoke(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Unavailable is the gateway used when no backend is configured.
var Unavailable Gateway = unavailable{}

// Configured reports whether g is a real backend rather than absent.
func Configured(g Gateway) bool {
	if g == nil {
		return false
	}
	_, absent := g.(unavailable)
	return !absent
}

// Mode returns "Production" when a backend is configured and "Mock" otherwise.
func Mode(g Gateway) string {
	return ModeName(Configured(g))
}

// ModeName names the operating mode for a configured or absent backend.
func ModeName(configured bool) string {
	if configured {
		return "Production"
	}
	return "Mock"
}
