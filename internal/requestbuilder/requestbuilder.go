// Package requestbuilder turns an incoming payment request into the argument
// overrides of a gateway request call.
package requestbuilder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/sips-gateway/internal/merchant"
	"github.com/yourorg/sips-gateway/internal/protocol"
)

// Argument names understood by the request binary.
const (
	ArgAmount               = "amount"
	ArgCurrencyCode         = "currency_code"
	ArgOrderID              = "order_id"
	ArgTransactionID        = "transaction_id"
	ArgCustomerID           = "customer_id"
	ArgCustomerEmail        = "customer_email"
	ArgCustomerIPAddress    = "customer_ip_address"
	ArgNormalReturnURL      = "normal_return_url"
	ArgCancelReturnURL      = "cancel_return_url"
	ArgAutomaticResponseURL = "automatic_response_url"
	ArgLanguage             = "language"
	ArgPaymentMeans         = "payment_means"
	ArgCaddie               = "caddie"
	ArgCaptureDay           = "capture_day"
	ArgCaptureMode          = "capture_mode"
)

// ErrInvalidRequest is returned for payment requests that cannot be sent.
var ErrInvalidRequest = errors.New("requestbuilder: invalid payment request")

var (
	currencyCodePattern  = regexp.MustCompile(`^[0-9]{3}$`)
	transactionIDPattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// PaymentRequest is a payment the customer is about to be sent to the
// gateway for. Amount is in minor units.
type PaymentRequest struct {
	Amount               int64  `json:"amount"`
	CurrencyCode         string `json:"currency_code,omitempty"`
	OrderID              string `json:"order_id,omitempty"`
	TransactionID        string `json:"transaction_id,omitempty"`
	CustomerID           string `json:"customer_id,omitempty"`
	CustomerEmail        string `json:"customer_email,omitempty"`
	CustomerIPAddress    string `json:"customer_ip_address,omitempty"`
	NormalReturnURL      string `json:"normal_return_url,omitempty"`
	CancelReturnURL      string `json:"cancel_return_url,omitempty"`
	AutomaticResponseURL string `json:"automatic_response_url,omitempty"`
	Language             string `json:"language,omitempty"`
	PaymentMeans         string `json:"payment_means,omitempty"`
	Caddie               string `json:"caddie,omitempty"`
	CaptureDay           *int   `json:"capture_day,omitempty"`
	CaptureMode          string `json:"capture_mode,omitempty"`
}

// RequestBuilder maps payment requests onto call overrides.
type RequestBuilder struct {
	newOrderID func() string
}

// NewRequestBuilder creates a RequestBuilder that fills missing order ids
// with a 32 character hex id.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{newOrderID: NewOrderID}
}

// NewOrderID returns a random UUID without dashes.
func NewOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Build validates req against the merchant configuration and returns the
// overrides for Client.Request. The order id is always present in the result.
func (b *RequestBuilder) Build(ctx context.Context, cfg merchant.Config, req PaymentRequest) (args protocol.Args, err error) {
	start := time.Now()
	_, span := otel.Tracer("requestbuilder").Start(ctx, "RequestBuilder.Build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observe(start, err)
	}()

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidRequest, req.Amount)
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = cfg.DefaultCurrency
	}
	if currency != "" && !currencyCodePattern.MatchString(currency) {
		return nil, fmt.Errorf("%w: currency code %q is not a numeric ISO 4217 code", ErrInvalidRequest, currency)
	}
	if req.TransactionID != "" && !transactionIDPattern.MatchString(req.TransactionID) {
		return nil, fmt.Errorf("%w: transaction id %q must be 6 digits", ErrInvalidRequest, req.TransactionID)
	}
	if req.CaptureDay != nil && (*req.CaptureDay < 0 || *req.CaptureDay > 99) {
		return nil, fmt.Errorf("%w: capture day %d out of range", ErrInvalidRequest, *req.CaptureDay)
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = b.newOrderID()
	}

	args = protocol.Args{
		ArgAmount:               req.Amount,
		ArgOrderID:              orderID,
		ArgCurrencyCode:         currency,
		ArgTransactionID:        req.TransactionID,
		ArgCustomerID:           req.CustomerID,
		ArgCustomerEmail:        req.CustomerEmail,
		ArgCustomerIPAddress:    req.CustomerIPAddress,
		ArgNormalReturnURL:      req.NormalReturnURL,
		ArgCancelReturnURL:      req.CancelReturnURL,
		ArgAutomaticResponseURL: req.AutomaticResponseURL,
		ArgLanguage:             req.Language,
		ArgPaymentMeans:         req.PaymentMeans,
		ArgCaddie:               req.Caddie,
		ArgCaptureMode:          req.CaptureMode,
	}
	if req.CaptureDay != nil {
		args[ArgCaptureDay] = *req.CaptureDay
	}
	// Empty overrides would blank out the merchant's configured values.
	for k, v := range args {
		if s, ok := v.(string); ok && s == "" {
			delete(args, k)
		}
	}

	span.SetAttributes(
		attribute.String("merchant.id", cfg.ID),
		attribute.String("payment.order_id", orderID),
		attribute.Int64("payment.amount", req.Amount),
	)
	return args, nil
}
