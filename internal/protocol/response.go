package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Delimiter separates fields in every gateway output.
const Delimiter = "!"

// Field names used by the rest of the service.
const (
	FieldCode              = "code"
	FieldError             = "error"
	FieldMerchantID        = "merchant_id"
	FieldAmount            = "amount"
	FieldTransactionID     = "transaction_id"
	FieldResponseCode      = "response_code"
	FieldCurrencyCode      = "currency_code"
	FieldCVVResponseCode   = "cvv_response_code"
	FieldBankResponseCode  = "bank_response_code"
	FieldOrderID           = "order_id"
	FieldCustomerIPAddress = "customer_ip_address"
	FieldScoreValue        = "score_value"
	FieldScoreColor        = "score_color"
)

// ResponseSchema is the positional layout of the record returned by the
// response call. Revisions of the vendor layout are new schema values.
type ResponseSchema struct {
	Version string
	fields  []string
	index   map[string]int
}

// NewResponseSchema builds a schema from field names in vendor order.
func NewResponseSchema(version string, fields ...string) *ResponseSchema {
	s := &ResponseSchema{
		Version: version,
		fields:  append([]string(nil), fields...),
		index:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := s.index[f]; dup {
			panic(fmt.Sprintf("protocol: duplicate field %q in schema %s", f, version))
		}
		s.index[f] = i
	}
	return s
}

// ResponseSchemaV1 is the layout produced by the vendor response binary.
var ResponseSchemaV1 = NewResponseSchema("v1",
	FieldCode,
	FieldError,
	FieldMerchantID,
	"merchant_country",
	FieldAmount,
	FieldTransactionID,
	"payment_means",
	"transmission_date",
	"payment_time",
	"payment_date",
	FieldResponseCode,
	"payment_certificate",
	"authorisation_id",
	FieldCurrencyCode,
	"card_number",
	"cvv_flag",
	FieldCVVResponseCode,
	FieldBankResponseCode,
	"complementary_code",
	"complementary_info",
	"return_context",
	"caddie",
	"receipt_complement",
	"merchant_language",
	"language",
	"customer_id",
	FieldOrderID,
	"customer_email",
	FieldCustomerIPAddress,
	"capture_day",
	"capture_mode",
	"data",
	"order_validity",
	"transaction_condition",
	"statement_reference",
	"card_validity",
	FieldScoreValue,
	FieldScoreColor,
	"score_info",
	"score_threshold",
	"score_profile",
)

// Fields returns the field names in positional order.
func (s *ResponseSchema) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Len is the number of positional fields.
func (s *ResponseSchema) Len() int { return len(s.fields) }

// Has reports whether name is part of the schema.
func (s *ResponseSchema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Parse splits raw output into the positional record. Missing trailing fields
// are empty; fields beyond the schema are ignored.
func (s *ResponseSchema) Parse(output string) ResponseData {
	return ResponseData{schema: s, values: splitOutput(output, len(s.fields))}
}

// FromMap builds a record from named values, mostly for tests and replays.
// Unknown names are ignored.
func (s *ResponseSchema) FromMap(m map[string]string) ResponseData {
	values := make([]string, len(s.fields))
	for i, f := range s.fields {
		values[i] = m[f]
	}
	return ResponseData{schema: s, values: values}
}

// ResponseData is one parsed response record.
type ResponseData struct {
	schema *ResponseSchema
	values []string
}

// Get returns the named field, or "" for names outside the schema.
func (d ResponseData) Get(name string) string {
	if d.schema == nil {
		return ""
	}
	i, ok := d.schema.index[name]
	if !ok {
		return ""
	}
	return d.values[i]
}

// Schema returns the layout the record was parsed with.
func (d ResponseData) Schema() *ResponseSchema { return d.schema }

// Map returns every field keyed by name.
func (d ResponseData) Map() map[string]string {
	m := make(map[string]string, len(d.values))
	if d.schema == nil {
		return m
	}
	for i, f := range d.schema.fields {
		m[f] = d.values[i]
	}
	return m
}

// Join re-renders the record in wire order.
func (d ResponseData) Join() string {
	return strings.Join(d.values, Delimiter)
}

func (d ResponseData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// ParseRequestOutput extracts the message from the code!error!message output of
// the request call.
func ParseRequestOutput(output string) (string, error) {
	parts := splitOutput(output, 3)
	code, errField, message := parts[0], parts[1], parts[2]

	if code == "" && errField == "" {
		return "", &ResponseError{Output: output, Reason: fmt.Sprintf("request failed. Output: %s", output)}
	}
	if code != "0" {
		return "", &ResponseError{Output: output, Reason: fmt.Sprintf("request failed with the following error: %s", errField)}
	}
	if message == "" {
		return "", &ResponseError{Output: output, Reason: fmt.Sprintf("output message missing. Output: %s", output)}
	}
	return message, nil
}

// splitOutput trims whitespace and surrounding delimiters, splits on the
// delimiter and pads or truncates to n fields.
func splitOutput(output string, n int) []string {
	trimmed := strings.Trim(strings.TrimSpace(output), Delimiter)
	parts := strings.Split(trimmed, Delimiter)
	values := make([]string, n)
	copy(values, parts)
	return values
}
