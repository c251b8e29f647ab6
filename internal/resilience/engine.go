package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/vocero/internal/directory"
	"github.com/MrWong99/vocero/internal/engine"
	"github.com/MrWong99/vocero/pkg/voice"
)

// Backend is the combined surface a [GuardedEngine] wraps: a synthesis
// engine that also serves as a voice directory source. Both network-backed
// engines satisfy it.
type Backend interface {
	engine.Engine
	directory.Source
}

// GuardedEngine wraps a [Backend] with a [CircuitBreaker]. Availability
// probes, synthesis calls and listing fetches all count against the same
// breaker, so a server that stops responding trips the breaker once and
// every subsequent call fails fast with a [*engine.NotAvailableError]
// instead of waiting out a fresh connection timeout.
type GuardedEngine struct {
	inner   Backend
	breaker *CircuitBreaker
}

var (
	_ engine.Engine    = (*GuardedEngine)(nil)
	_ directory.Source = (*GuardedEngine)(nil)
)

// Guard wraps b with a circuit breaker built from cfg. If cfg.Name is empty
// it defaults to the engine's name.
func Guard(b Backend, cfg CircuitBreakerConfig) *GuardedEngine {
	if cfg.Name == "" {
		cfg.Name = b.Name()
	}
	return &GuardedEngine{
		inner:   b,
		breaker: NewCircuitBreaker(cfg),
	}
}

// Name returns the wrapped engine's backend identifier.
func (g *GuardedEngine) Name() string { return g.inner.Name() }

// Engine returns the wrapped source's engine name.
func (g *GuardedEngine) Engine() string { return g.inner.Engine() }

// BreakerState reports the current state of the underlying breaker.
func (g *GuardedEngine) BreakerState() State { return g.breaker.State() }

// Available probes the wrapped engine through the breaker. With the breaker
// open it returns a [*engine.NotAvailableError] immediately without touching
// the backend.
func (g *GuardedEngine) Available(ctx context.Context) error {
	err := g.breaker.Execute(func() error {
		return g.inner.Available(ctx)
	})
	return g.notAvailable(err)
}

// Synthesize forwards to the wrapped engine through the breaker.
func (g *GuardedEngine) Synthesize(ctx context.Context, req engine.Request, v voice.Voice) (*engine.SpeechResult, error) {
	var res *engine.SpeechResult
	err := g.breaker.Execute(func() error {
		var ferr error
		res, ferr = g.inner.Synthesize(ctx, req, v)
		return ferr
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, &engine.NotAvailableError{Engine: g.inner.Name(), Err: err}
	}
	return res, err
}

// Listing forwards to the wrapped source through the breaker.
func (g *GuardedEngine) Listing(ctx context.Context) ([]string, error) {
	var lines []string
	err := g.breaker.Execute(func() error {
		var ferr error
		lines, ferr = g.inner.Listing(ctx)
		return ferr
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, &engine.NotAvailableError{Engine: g.inner.Name(), Err: err}
	}
	return lines, err
}

// Clone forwards a voice-cloning request through the breaker when the
// wrapped engine supports cloning.
func (g *GuardedEngine) Clone(ctx context.Context, samples [][]byte) (string, error) {
	c, ok := g.inner.(interface {
		Clone(ctx context.Context, samples [][]byte) (string, error)
	})
	if !ok {
		return "", fmt.Errorf("resilience: %s engine does not support voice cloning", g.inner.Name())
	}
	var name string
	err := g.breaker.Execute(func() error {
		var ferr error
		name, ferr = c.Clone(ctx, samples)
		return ferr
	})
	if errors.Is(err, ErrCircuitOpen) {
		return "", &engine.NotAvailableError{Engine: g.inner.Name(), Err: err}
	}
	return name, err
}

// notAvailable converts [ErrCircuitOpen] into the engine error the selector
// understands; other errors pass through unchanged.
func (g *GuardedEngine) notAvailable(err error) error {
	if errors.Is(err, ErrCircuitOpen) {
		return &engine.NotAvailableError{Engine: g.inner.Name(), Err: err}
	}
	return err
}
