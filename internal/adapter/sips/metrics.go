package sips

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/transport"
)

// Result labels for sips_gateway_calls_total.
const (
	ResultOK                   = "ok"
	ResultInvalidConfiguration = "invalid_configuration"
	ResultExecutionError       = "execution_error"
	ResultResponseError        = "response_error"
	ResultError                = "error"
)

var (
	gatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sips_gateway_calls_total",
			Help: "Total number of SIPS gateway calls by operation and result.",
		},
		[]string{"operation", "result"},
	)
	gatewayCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sips_gateway_call_duration_seconds",
			Help:    "Duration of SIPS gateway calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// GetGatewayCallsTotal exposes the call counter for tests.
func GetGatewayCallsTotal() *prometheus.CounterVec { return gatewayCallsTotal }

// GetGatewayCallDurationSeconds exposes the duration histogram for tests.
func GetGatewayCallDurationSeconds() *prometheus.HistogramVec { return gatewayCallDurationSeconds }

func observe(op transport.Operation, start time.Time, errp *error) {
	gatewayCallsTotal.WithLabelValues(string(op), resultLabel(*errp)).Inc()
	gatewayCallDurationSeconds.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
}

func resultLabel(err error) string {
	var execErr *protocol.ExecutionError
	var respErr *protocol.ResponseError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, protocol.ErrInvalidConfiguration):
		return ResultInvalidConfiguration
	case errors.As(err, &execErr):
		return ResultExecutionError
	case errors.As(err, &respErr):
		return ResultResponseError
	default:
		return ResultError
	}
}
