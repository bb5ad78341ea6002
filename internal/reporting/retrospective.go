// Package reporting keeps a journal of payment outcomes and summarizes it.
package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourorg/sips-gateway/internal/processor"
)

// LogEntry records the outcome of one gateway notification.
type LogEntry struct {
	Timestamp      time.Time        `json:"timestamp"`
	TransactionID  string           `json:"transaction_id"`
	MerchantID     string           `json:"merchant_id"`
	OrderID        string           `json:"order_id,omitempty"`
	Gateway        string           `json:"gateway"`
	Status         processor.Status `json:"status"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency,omitempty"`
	ResponseCode   string           `json:"response_code,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	ReviewRequired bool             `json:"review_required,omitempty"`
}

// RetrospectiveReport summarizes payment activities based on a collection of log entries.
type RetrospectiveReport struct {
	TotalNotifications   int                        `json:"total_notifications"`
	SuccessfulPayments   int                        `json:"successful_payments"`
	FailedPayments       int                        `json:"failed_payments"`
	CanceledPayments     int                        `json:"canceled_payments"`
	FlaggedForReview     int                        `json:"flagged_for_review"`
	TotalAmountProcessed decimal.Decimal            `json:"total_amount_processed"` // successful payments only
	AmountByCurrency     map[string]decimal.Decimal `json:"amount_by_currency"`
	ReasonBreakdown      map[string]int             `json:"reason_breakdown"` // failed payments only
	GatewayUsage         map[string]int             `json:"gateway_usage"`
	MerchantIDs          []string                   `json:"merchant_ids"`
	DateFrom             time.Time                  `json:"date_from"`
	DateTo               time.Time                  `json:"date_to"`
	ProcessingDuration   time.Duration              `json:"processing_duration"`
}

// RetrospectiveReporter generates retrospective reports from log entries.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

func newReport() *RetrospectiveReport {
	return &RetrospectiveReport{
		TotalAmountProcessed: decimal.Zero,
		AmountByCurrency:     make(map[string]decimal.Decimal),
		ReasonBreakdown:      make(map[string]int),
		GatewayUsage:         make(map[string]int),
		MerchantIDs:          []string{},
	}
}

// GenerateRetrospective analyzes a slice of LogEntry items and produces a RetrospectiveReport.
func (rr *RetrospectiveReporter) GenerateRetrospective(logs []LogEntry) (*RetrospectiveReport, error) {
	report := newReport()
	if len(logs) == 0 {
		return report, nil
	}

	merchants := make(map[string]struct{})
	first := true
	for _, log := range logs {
		report.TotalNotifications++

		if first || log.Timestamp.Before(report.DateFrom) {
			report.DateFrom = log.Timestamp
		}
		if first || log.Timestamp.After(report.DateTo) {
			report.DateTo = log.Timestamp
		}
		first = false

		if log.Gateway != "" {
			report.GatewayUsage[log.Gateway]++
		}
		if log.MerchantID != "" {
			merchants[log.MerchantID] = struct{}{}
		}
		if log.ReviewRequired {
			report.FlaggedForReview++
		}

		switch log.Status {
		case processor.StatusSuccess:
			report.SuccessfulPayments++
			report.TotalAmountProcessed = report.TotalAmountProcessed.Add(log.Amount)
			report.AmountByCurrency[log.Currency] = report.AmountByCurrency[log.Currency].Add(log.Amount)
		case processor.StatusFailed:
			report.FailedPayments++
			if log.Reason != "" {
				report.ReasonBreakdown[log.Reason]++
			}
		case processor.StatusCanceled:
			report.CanceledPayments++
		}
	}

	for id := range merchants {
		report.MerchantIDs = append(report.MerchantIDs, id)
	}
	sort.Strings(report.MerchantIDs)
	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	return report, nil
}
