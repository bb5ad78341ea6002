// Package protocol holds the wire-level pieces of the SIPS integration:
// argument serialization, the `!`-delimited output formats and the error
// taxonomy shared by transports and the gateway client.
package protocol

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is returned when the gateway cannot be called at all:
// a missing executable, an empty endpoint or a malformed argument key.
// It is never retried.
var ErrInvalidConfiguration = errors.New("sips: invalid configuration")

// ExecutionError reports a call that was made but did not complete: a non-zero
// process exit, a timeout, or a failed HTTP exchange.
type ExecutionError struct {
	Op     string // "request" or "response"
	Target string // binary path or endpoint URL
	Detail string // process error stream or response body
	Err    error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("sips: %s call to %s failed", e.Op, e.Target)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResponseError is returned when the gateway answered with malformed, incomplete
// or failed output.
type ResponseError struct {
	Output string
	Reason string
}

func (e *ResponseError) Error() string {
	return "sips: " + e.Reason
}
