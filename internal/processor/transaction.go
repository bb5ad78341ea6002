package processor

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// State is the lifecycle state of a financial transaction.
type State int

const (
	StateNew State = iota
	StatePending
	StateSuccess
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further state change is allowed.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCanceled
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ExtendedData is the read side of a transaction: the parsed gateway record.
type ExtendedData interface {
	Get(name string) string
}

// FinancialTransaction is the capability set the interpreter needs from the
// host's transaction record.
type FinancialTransaction interface {
	ExtendedData() ExtendedData
	State() State
	SetResponseCode(code string)
	SetReasonCode(reason string)
	SetState(state State)
	SetReferenceNumber(ref string)
	SetProcessedAmount(amount decimal.Decimal)
}

// Transaction is an in-memory FinancialTransaction.
type Transaction struct {
	ID         string
	MerchantID string
	CreatedAt  time.Time

	// ReviewRequired is set by the risk policy on successful payments.
	ReviewRequired bool
	ReviewReason   string

	data            ExtendedData
	state           State
	responseCode    string
	reasonCode      string
	referenceNumber string
	processedAmount decimal.Decimal
}

// NewTransaction creates a pending transaction holding the gateway record.
func NewTransaction(id, merchantID string, data ExtendedData) *Transaction {
	return &Transaction{
		ID:         id,
		MerchantID: merchantID,
		CreatedAt:  time.Now().UTC(),
		data:       data,
		state:      StatePending,
	}
}

func (t *Transaction) ExtendedData() ExtendedData           { return t.data }
func (t *Transaction) State() State                         { return t.state }
func (t *Transaction) ResponseCode() string                 { return t.responseCode }
func (t *Transaction) ReasonCode() string                   { return t.reasonCode }
func (t *Transaction) ReferenceNumber() string              { return t.referenceNumber }
func (t *Transaction) ProcessedAmount() decimal.Decimal     { return t.processedAmount }
func (t *Transaction) SetResponseCode(code string)          { t.responseCode = code }
func (t *Transaction) SetReasonCode(reason string)          { t.reasonCode = reason }
func (t *Transaction) SetState(state State)                 { t.state = state }
func (t *Transaction) SetReferenceNumber(ref string)        { t.referenceNumber = ref }
func (t *Transaction) SetProcessedAmount(a decimal.Decimal) { t.processedAmount = a }

// SetExtendedData attaches the gateway record to a transaction created before
// the notification arrived.
func (t *Transaction) SetExtendedData(data ExtendedData) { t.data = data }

type transactionJSON struct {
	ID              string          `json:"transaction_id"`
	MerchantID      string          `json:"merchant_id"`
	CreatedAt       time.Time       `json:"created_at"`
	State           State           `json:"state"`
	ResponseCode    string          `json:"response_code,omitempty"`
	ReasonCode      string          `json:"reason_code,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	ProcessedAmount decimal.Decimal `json:"processed_amount"`
	ReviewRequired  bool            `json:"review_required"`
	ReviewReason    string          `json:"review_reason,omitempty"`
}

func (t *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:              t.ID,
		MerchantID:      t.MerchantID,
		CreatedAt:       t.CreatedAt,
		State:           t.state,
		ResponseCode:    t.responseCode,
		ReasonCode:      t.reasonCode,
		ReferenceNumber: t.referenceNumber,
		ProcessedAmount: t.processedAmount,
		ReviewRequired:  t.ReviewRequired,
		ReviewReason:    t.ReviewReason,
	})
}
