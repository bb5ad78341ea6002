package transport

import (
	"context"
	"errors"

	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/transport/circuitbreaker"
)

// ErrCircuitOpen is wrapped in the ExecutionError returned while calls to a
// failing target are suspended.
var ErrCircuitOpen = errors.New("circuit open")

// Guarded fails fast while the wrapped transport keeps failing to execute.
// Only execution failures count; configuration and response errors do not,
// nor do calls abandoned because the caller's context ended.
type Guarded struct {
	next    Transport
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuarded(next Transport, breaker *circuitbreaker.CircuitBreaker) *Guarded {
	if next == nil {
		panic("transport cannot be nil")
	}
	if breaker == nil {
		panic("circuit breaker cannot be nil")
	}
	return &Guarded{next: next, breaker: breaker}
}

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) Call(ctx context.Context, op Operation, args protocol.Arguments) (string, error) {
	target := g.next.Name() + ":" + string(op)
	if !g.breaker.AllowRequest(target) {
		return "", &protocol.ExecutionError{Op: string(op), Target: target, Err: ErrCircuitOpen}
	}

	out, err := g.next.Call(ctx, op, args)
	var execErr *protocol.ExecutionError
	switch {
	case err == nil:
		g.breaker.RecordSuccess(target)
	case ctx.Err() != nil:
		g.breaker.Release(target)
	case errors.As(err, &execErr):
		g.breaker.RecordFailure(target)
	default:
		g.breaker.Release(target)
	}
	return out, err
}
