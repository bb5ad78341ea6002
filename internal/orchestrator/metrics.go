package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels beyond the processor statuses.
const (
	outcomeDuplicate = "duplicate"
	outcomeError     = "error"
)

var (
	transactionOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sips_transaction_outcomes_total",
			Help: "Total number of gateway notifications, by decided outcome.",
		},
		[]string{"status"},
	)

	reviewFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sips_review_flags_total",
			Help: "Total number of successful payments flagged for review, by rule.",
		},
		[]string{"rule"},
	)

	paymentsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sips_payments_started_total",
			Help: "Total number of payment forms handed out.",
		},
	)
)

// GetTransactionOutcomesTotal returns the outcome counter.
func GetTransactionOutcomesTotal() *prometheus.CounterVec { return transactionOutcomesTotal }

// GetReviewFlagsTotal returns the review flag counter.
func GetReviewFlagsTotal() *prometheus.CounterVec { return reviewFlagsTotal }

// GetPaymentsStartedTotal returns the started payments counter.
func GetPaymentsStartedTotal() prometheus.Counter { return paymentsStartedTotal }
