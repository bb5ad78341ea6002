// Package processor interprets a parsed SIPS record and finalizes the
// transaction it belongs to.
package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yourorg/sips-gateway/internal/protocol"
)

// Response and reason codes written onto transactions.
const (
	ResponseCodeSuccess  = "success"
	ResponseCodeFailed   = "failed"
	ResponseCodeCanceled = "canceled"

	ReasonCodeSuccess  = "none"
	ReasonCodeCanceled = "Payment canceled"
)

// responseCodeCanceled is the gateway response_code for a payment the
// customer abandoned.
const responseCodeCanceled = 17

// Status is the decided outcome of a transaction.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// ErrTransactionFinalized is returned when a record arrives for a transaction
// that already reached a terminal state.
var ErrTransactionFinalized = errors.New("processor: transaction already finalized")

// Outcome is what Interpret decided for one record.
type Outcome struct {
	Status          Status          `json:"status"`
	ResponseCode    string          `json:"response_code"`
	Reason          string          `json:"reason"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	ProcessedAmount decimal.Decimal `json:"processed_amount"`
}

// FinancialError is the hard stop raised when the gateway itself reports a
// failure (non-zero code). The transaction is already marked failed.
type FinancialError struct {
	Code        string
	Outcome     Outcome
	Transaction FinancialTransaction
}

func (e *FinancialError) Error() string {
	return fmt.Sprintf("payment failed with error code %s. Error: %s", e.Code, e.Outcome.Reason)
}

// Interpret decides the outcome of a record for a transaction currently in
// state current. The gateway code is checked before the response code.
// A *FinancialError is returned together with its failed Outcome; canceled and
// response-code failures are returned without error.
func Interpret(data ExtendedData, current State) (Outcome, error) {
	if current.IsTerminal() {
		return Outcome{}, ErrTransactionFinalized
	}

	rawCode := data.Get(protocol.FieldCode)
	if code, err := parseInt(rawCode); err != nil || code != 0 {
		o := Outcome{
			Status:       StatusFailed,
			ResponseCode: ResponseCodeFailed,
			Reason:       data.Get(protocol.FieldError),
		}
		return o, &FinancialError{Code: rawCode, Outcome: o}
	}

	o := Outcome{ReferenceNumber: data.Get(protocol.FieldOrderID)}

	rawResponseCode := data.Get(protocol.FieldResponseCode)
	responseCode, err := parseInt(rawResponseCode)
	if err != nil {
		return o, &protocol.ResponseError{
			Output: rawResponseCode,
			Reason: fmt.Sprintf("response_code %q is not numeric", rawResponseCode),
		}
	}

	switch {
	case responseCode == responseCodeCanceled:
		o.Status = StatusCanceled
		o.ResponseCode = ResponseCodeCanceled
		o.Reason = ReasonCodeCanceled
	case responseCode != 0:
		o.Status = StatusFailed
		o.ResponseCode = ResponseCodeFailed
		o.Reason = fmt.Sprintf("Response code: %s", rawResponseCode)
	default:
		rawAmount := data.Get(protocol.FieldAmount)
		minor, err := strconv.ParseInt(strings.TrimSpace(rawAmount), 10, 64)
		if err != nil {
			return o, &protocol.ResponseError{
				Output: rawAmount,
				Reason: fmt.Sprintf("amount %q is not an integer amount of minor units", rawAmount),
			}
		}
		o.Status = StatusSuccess
		o.ResponseCode = ResponseCodeSuccess
		o.Reason = ReasonCodeSuccess
		o.ProcessedAmount = decimal.New(minor, -2)
	}
	return o, nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// Processor applies interpreted outcomes to transactions.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a Processor. A nil logger discards output.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{logger: logger.Named("processor")}
}

// ApproveAndDeposit finalizes tx from its extended data.
func (p *Processor) ApproveAndDeposit(tx FinancialTransaction) error {
	data := tx.ExtendedData()
	outcome, err := Interpret(data, tx.State())

	var finErr *FinancialError
	switch {
	case errors.Is(err, ErrTransactionFinalized):
		return err
	case errors.As(err, &finErr):
		tx.SetResponseCode(outcome.ResponseCode)
		tx.SetReasonCode(outcome.Reason)
		tx.SetState(StateFailed)
		p.logger.Info("Payment failed",
			zap.String("code", finErr.Code),
			zap.String("error", outcome.Reason),
		)
		finErr.Transaction = tx
		return finErr
	}

	tx.SetReferenceNumber(outcome.ReferenceNumber)
	if err != nil {
		return err
	}

	tx.SetResponseCode(outcome.ResponseCode)
	tx.SetReasonCode(outcome.Reason)

	switch outcome.Status {
	case StatusCanceled:
		tx.SetState(StateCanceled)
	case StatusFailed:
		tx.SetState(StateFailed)
		p.logger.Info("Payment failed with response code",
			zap.String("response_code", data.Get(protocol.FieldResponseCode)),
			zap.String("error", data.Get(protocol.FieldError)),
		)
	case StatusSuccess:
		tx.SetProcessedAmount(outcome.ProcessedAmount)
		tx.SetState(StateSuccess)
	}
	return nil
}
