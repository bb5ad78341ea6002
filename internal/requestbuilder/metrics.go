package requestbuilder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sips_request_builds_total",
			Help: "Total number of payment requests built, by result.",
		},
		[]string{"result"},
	)

	buildDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sips_request_build_duration_seconds",
			Help:    "Time spent building gateway arguments for a payment request.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// GetBuildRequestsTotal returns the build counter.
func GetBuildRequestsTotal() *prometheus.CounterVec { return buildRequestsTotal }

// GetBuildDurationSeconds returns the build duration histogram.
func GetBuildDurationSeconds() prometheus.Histogram { return buildDurationSeconds }

func observe(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "invalid"
	}
	buildRequestsTotal.WithLabelValues(result).Inc()
	buildDurationSeconds.Observe(time.Since(start).Seconds())
}
