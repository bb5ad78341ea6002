// Package adapter defines the interface the payment flow uses to talk to a
// gateway. Adapters own serialization, execution and parsing of raw gateway
// output; interpreting the parsed record is left to the processor.
package adapter

import (
	"context"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// GatewayAdapter is implemented by each gateway integration.
type GatewayAdapter interface {
	// Request merges overrides over the adapter's base configuration, calls the
	// gateway and returns its message (for SIPS, the HTML payment form).
	Request(ctx context.Context, overrides protocol.Args) (string, error)

	// HandleResponseData decodes a raw notification payload into the gateway's
	// positional record. It performs no semantic validation.
	HandleResponseData(ctx context.Context, raw string) (protocol.ResponseData, error)

	// GetName returns the name of the gateway (e.g., "sips").
	GetName() string
}

// Factory builds an adapter bound to one merchant's gateway configuration.
type Factory func(gateway protocol.Args) GatewayAdapter
