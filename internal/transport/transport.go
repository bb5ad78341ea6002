// Package transport carries argument sets to the SIPS gateway and returns its
// raw `!`-delimited output. The legacy implementation runs the vendor binaries;
// the HTTP implementation posts the same parameters to a network endpoint.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/transport/circuitbreaker"
)

// Operation names one of the two gateway calls.
type Operation string

const (
	OpRequest  Operation = "request"
	OpResponse Operation = "response"
)

// Transport performs a single blocking gateway call.
type Transport interface {
	Call(ctx context.Context, op Operation, args protocol.Arguments) (string, error)
	Name() string
}

const (
	KindExec = "exec"
	KindHTTP = "http"
)

// Config selects and configures a transport.
type Config struct {
	Kind        string
	RequestBin  string
	ResponseBin string
	BaseURL     string
	Timeout     time.Duration

	BreakerEnabled bool
	Breaker        circuitbreaker.Config
}

// New builds the transport selected by cfg.Kind, wrapped with a circuit
// breaker when enabled.
func New(cfg Config) (Transport, error) {
	var t Transport
	switch cfg.Kind {
	case KindExec, "":
		t = NewExecTransport(cfg.RequestBin, cfg.ResponseBin, cfg.Timeout)
	case KindHTTP:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: http transport needs a base URL", protocol.ErrInvalidConfiguration)
		}
		t = NewHTTPTransport(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", protocol.ErrInvalidConfiguration, cfg.Kind)
	}

	if cfg.BreakerEnabled {
		t = NewGuarded(t, circuitbreaker.NewCircuitBreaker(cfg.Breaker))
	}
	return t, nil
}
