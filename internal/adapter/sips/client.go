// Package sips is the gateway client for the SIPS payment gateway. It builds
// argument sets from the merchant configuration, runs them through a
// transport and parses the `!`-delimited output.
package sips

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/sips-gateway/internal/logging"
	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/transport"
)

const (
	// ArgPathfile is the config key pointing the vendor binaries at their pathfile.
	ArgPathfile = "pathfile"
	argMessage  = "message"
)

// Client implements adapter.GatewayAdapter for SIPS.
type Client struct {
	transport transport.Transport
	config    protocol.Args
	schema    *protocol.ResponseSchema
	logger    *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithResponseSchema parses notifications with s instead of ResponseSchemaV1.
func WithResponseSchema(s *protocol.ResponseSchema) Option {
	return func(c *Client) { c.schema = s }
}

// NewClient creates a client for one merchant configuration. The config map is
// copied; later changes by the caller are not seen.
func NewClient(t transport.Transport, config protocol.Args, logger *zap.Logger, opts ...Option) *Client {
	if t == nil {
		panic("transport cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		transport: t,
		config:    protocol.Args{}.Merge(config),
		schema:    protocol.ResponseSchemaV1,
		logger:    logger.Named("sips"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetName returns the name of the gateway.
func (c *Client) GetName() string {
	return "sips"
}

// Request merges overrides over the base configuration, runs the request call
// and returns the message of a successful response.
func (c *Client) Request(ctx context.Context, overrides protocol.Args) (msg string, err error) {
	ctx, span := otel.Tracer("sips").Start(ctx, "Client.Request")
	defer span.End()
	defer observe(transport.OpRequest, time.Now(), &err)
	defer recordSpanError(span, &err)

	args := c.config.Merge(overrides)
	if err := args.Validate(); err != nil {
		return "", err
	}

	output, err := c.run(ctx, transport.OpRequest, args)
	if err != nil {
		return "", err
	}
	return protocol.ParseRequestOutput(output)
}

// HandleResponseData runs the response call on a raw notification payload and
// splits the output into the positional record.
func (c *Client) HandleResponseData(ctx context.Context, raw string) (data protocol.ResponseData, err error) {
	ctx, span := otel.Tracer("sips").Start(ctx, "Client.HandleResponseData")
	defer span.End()
	defer observe(transport.OpResponse, time.Now(), &err)
	defer recordSpanError(span, &err)

	args := protocol.Args{
		argMessage:   raw,
		ArgPathfile: c.config[ArgPathfile],
	}

	output, err := c.run(ctx, transport.OpResponse, args)
	if err != nil {
		return protocol.ResponseData{}, err
	}
	data = c.schema.Parse(output)
	span.SetAttributes(
		attribute.String("sips.schema", c.schema.Version),
		attribute.String("sips.code", data.Get(protocol.FieldCode)),
		attribute.String("sips.response_code", data.Get(protocol.FieldResponseCode)),
	)
	return data, nil
}

func (c *Client) run(ctx context.Context, op transport.Operation, args protocol.Arguments) (string, error) {
	output, err := c.transport.Call(ctx, op, args)
	if err != nil {
		var execErr *protocol.ExecutionError
		if errors.As(err, &execErr) {
			logging.Critical(c.logger, "SIPS call failed",
				zap.String("operation", string(op)),
				zap.String("target", execErr.Target),
				zap.String("error_output", execErr.Detail),
				zap.Error(err),
			)
		}
		return "", err
	}

	c.logger.Debug("SIPS "+string(op)+" output",
		zap.String("transport", c.transport.Name()),
		zap.String("output", output),
	)
	return output, nil
}

func recordSpanError(span trace.Span, errp *error) {
	if *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
}
