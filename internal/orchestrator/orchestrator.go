// Package orchestrator drives a payment through the gateway: it hands out the
// payment form, then interprets the notification the gateway sends back and
// records the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/sips-gateway/internal/adapter"
	"github.com/yourorg/sips-gateway/internal/merchant"
	"github.com/yourorg/sips-gateway/internal/policy"
	"github.com/yourorg/sips-gateway/internal/processor"
	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/reporting"
	"github.com/yourorg/sips-gateway/internal/requestbuilder"
)

// GatewayResolver defines the contract for finding a merchant's gateway.
type GatewayResolver interface {
	Resolve(merchantID string) (merchant.Config, adapter.GatewayAdapter, error)
}

// PolicyEnforcerInterface defines the contract for evaluating the risk policy
// on an approved record.
type PolicyEnforcerInterface interface {
	Evaluate(data protocol.ResponseData) (policy.PolicyDecision, error)
}

// PaymentStart is what the customer needs to continue to the gateway.
type PaymentStart struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Form          string `json:"form"`
}

// Orchestrator coordinates gateway calls, interpretation and bookkeeping.
type Orchestrator struct {
	resolver       GatewayResolver
	builder        *requestbuilder.RequestBuilder
	processor      *processor.Processor
	policyEnforcer PolicyEnforcerInterface
	journal        *reporting.Journal
	transactions   *transactionStore
	logger         *zap.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	r GatewayResolver,
	b *requestbuilder.RequestBuilder,
	p *processor.Processor,
	pe PolicyEnforcerInterface,
	j *reporting.Journal,
	logger *zap.Logger,
) *Orchestrator {
	if r == nil {
		panic("GatewayResolver cannot be nil")
	}
	if b == nil {
		panic("RequestBuilder cannot be nil")
	}
	if p == nil {
		panic("Processor cannot be nil")
	}
	if pe == nil {
		panic("PolicyEnforcer cannot be nil")
	}
	if j == nil {
		panic("Journal cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		resolver:       r,
		builder:        b,
		processor:      p,
		policyEnforcer: pe,
		journal:        j,
		transactions:   newTransactionStore(),
		logger:         logger.Named("orchestrator"),
	}
}

// StartPayment builds the gateway request for req and returns the payment
// form. The transaction stays pending until its notification arrives.
func (o *Orchestrator) StartPayment(ctx context.Context, merchantID string, req requestbuilder.PaymentRequest) (start PaymentStart, err error) {
	ctx, span := otel.Tracer("orchestrator").Start(ctx, "Orchestrator.StartPayment",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)))
	defer func() { endSpan(span, err) }()

	cfg, gw, err := o.resolver.Resolve(merchantID)
	if err != nil {
		return PaymentStart{}, err
	}

	args, err := o.builder.Build(ctx, cfg, req)
	if err != nil {
		return PaymentStart{}, err
	}
	orderID := args.String(requestbuilder.ArgOrderID)

	if e, ok := o.transactions.get(merchantID, orderID); ok {
		e.mu.Lock()
		terminal := e.tx.State().IsTerminal()
		e.mu.Unlock()
		if terminal {
			return PaymentStart{}, fmt.Errorf("orchestrator: order %s: %w", orderID, processor.ErrTransactionFinalized)
		}
	}

	form, err := gw.Request(ctx, args)
	if err != nil {
		return PaymentStart{}, fmt.Errorf("orchestrator: payment request for order %s: %w", orderID, err)
	}

	e := o.transactions.getOrCreate(merchantID, orderID, func() *processor.Transaction {
		return processor.NewTransaction(uuid.NewString(), merchantID, nil)
	})
	paymentsStartedTotal.Inc()
	span.SetAttributes(attribute.String("payment.order_id", orderID), attribute.String("transaction.id", e.tx.ID))
	o.logger.Info("Payment started",
		zap.String("merchant_id", merchantID),
		zap.String("order_id", orderID),
		zap.String("transaction_id", e.tx.ID),
	)
	return PaymentStart{TransactionID: e.tx.ID, OrderID: orderID, Form: form}, nil
}

// HandleNotification decodes a gateway notification and finalizes the
// transaction of its order. A gateway-reported failure is returned as a
// *processor.FinancialError together with the failed transaction; a repeated
// notification for a finalized order returns processor.ErrTransactionFinalized.
func (o *Orchestrator) HandleNotification(ctx context.Context, merchantID, raw string) (tx *processor.Transaction, err error) {
	ctx, span := otel.Tracer("orchestrator").Start(ctx, "Orchestrator.HandleNotification",
		trace.WithAttributes(attribute.String("merchant.id", merchantID)))
	defer func() {
		var finErr *processor.FinancialError
		if errors.As(err, &finErr) {
			// A business failure is a recorded outcome, not a broken call.
			span.SetAttributes(attribute.String("payment.failure_code", finErr.Code))
			span.End()
			return
		}
		endSpan(span, err)
	}()

	cfg, gw, err := o.resolver.Resolve(merchantID)
	if err != nil {
		return nil, err
	}

	data, err := gw.HandleResponseData(ctx, raw)
	if err != nil {
		transactionOutcomesTotal.WithLabelValues(outcomeError).Inc()
		return nil, fmt.Errorf("orchestrator: notification for merchant %s: %w", merchantID, err)
	}

	orderID := data.Get(protocol.FieldOrderID)
	newTx := func() *processor.Transaction {
		return processor.NewTransaction(uuid.NewString(), merchantID, nil)
	}
	var e *storeEntry
	if orderID == "" {
		e = &storeEntry{tx: newTx()}
	} else {
		e = o.transactions.getOrCreate(merchantID, orderID, newTx)
	}
	span.SetAttributes(attribute.String("payment.order_id", orderID), attribute.String("transaction.id", e.tx.ID))

	e.mu.Lock()
	defer e.mu.Unlock()
	tx = e.tx

	previous, previousRef := tx.ExtendedData(), tx.ReferenceNumber()
	tx.SetExtendedData(data)
	err = o.processor.ApproveAndDeposit(tx)

	var finErr *processor.FinancialError
	switch {
	case errors.Is(err, processor.ErrTransactionFinalized):
		tx.SetExtendedData(previous)
		transactionOutcomesTotal.WithLabelValues(outcomeDuplicate).Inc()
		o.logger.Warn("Notification for finalized transaction ignored",
			zap.String("merchant_id", merchantID),
			zap.String("order_id", orderID),
			zap.String("transaction_id", tx.ID),
			zap.Stringer("state", tx.State()),
		)
		return tx, fmt.Errorf("orchestrator: order %s: %w", orderID, err)
	case errors.As(err, &finErr):
		o.record(cfg, gw, tx, data)
		return tx, err
	case err != nil:
		// An unreadable record leaves the pending transaction as it was.
		tx.SetExtendedData(previous)
		tx.SetReferenceNumber(previousRef)
		transactionOutcomesTotal.WithLabelValues(outcomeError).Inc()
		return tx, fmt.Errorf("orchestrator: notification for order %s: %w", orderID, err)
	}

	if tx.State() == processor.StateSuccess {
		o.applyPolicy(tx, data)
	}
	o.record(cfg, gw, tx, data)
	return tx, nil
}

// TrackedTransactions reports how many orders the orchestrator holds.
func (o *Orchestrator) TrackedTransactions() int {
	return o.transactions.len()
}

// applyPolicy flags tx for review. It never changes the transaction state.
func (o *Orchestrator) applyPolicy(tx *processor.Transaction, data protocol.ResponseData) {
	decision, err := o.policyEnforcer.Evaluate(data)
	if err != nil {
		o.logger.Warn("Risk policy evaluation failed",
			zap.String("transaction_id", tx.ID),
			zap.Error(err),
		)
		return
	}
	if !decision.ReviewRequired {
		return
	}
	tx.ReviewRequired = true
	tx.ReviewReason = decision.Reason
	reviewFlagsTotal.WithLabelValues(decision.RuleID).Inc()
	o.logger.Info("Payment flagged for review",
		zap.String("transaction_id", tx.ID),
		zap.String("rule_id", decision.RuleID),
		zap.String("reason", decision.Reason),
	)
}

func (o *Orchestrator) record(cfg merchant.Config, gw adapter.GatewayAdapter, tx *processor.Transaction, data protocol.ResponseData) {
	status := statusOf(tx.State())
	transactionOutcomesTotal.WithLabelValues(string(status)).Inc()
	o.journal.Append(reporting.LogEntry{
		Timestamp:      time.Now().UTC(),
		TransactionID:  tx.ID,
		MerchantID:     cfg.ID,
		OrderID:        data.Get(protocol.FieldOrderID),
		Gateway:        gw.GetName(),
		Status:         status,
		Amount:         tx.ProcessedAmount(),
		Currency:       data.Get(protocol.FieldCurrencyCode),
		ResponseCode:   data.Get(protocol.FieldResponseCode),
		Reason:         tx.ReasonCode(),
		ReviewRequired: tx.ReviewRequired,
	})
	o.logger.Info("Payment processed",
		zap.String("merchant_id", cfg.ID),
		zap.String("transaction_id", tx.ID),
		zap.String("status", string(status)),
		zap.String("reason", tx.ReasonCode()),
		zap.String("amount", tx.ProcessedAmount().StringFixed(2)),
	)
}

func statusOf(s processor.State) processor.Status {
	switch s {
	case processor.StateSuccess:
		return processor.StatusSuccess
	case processor.StateCanceled:
		return processor.StatusCanceled
	default:
		return processor.StatusFailed
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
