// Package errs defines the structured error taxonomy shared by the ledger
// services and the transports in front of them.
package errs

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidQuantity   Code = "invalid_quantity"
	CodeOrderNotFound     Code = "order_not_found"
	CodeInvalidTransition Code = "invalid_transition"
	CodeAlreadyDecided    Code = "already_decided"
	CodeUnauthorized      Code = "unauthorized"
	CodeStoreUnavailable  Code = "store_unavailable"
	CodeUserNotFound      Code = "user_not_found"
	CodeNoPendingOrder    Code = "no_pending_order"
	CodeNegativeBalance   Code = "negative_balance"
	CodeRateLimited       Code = "rate_limited"
	CodeInvalidAction     Code = "invalid_action"
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidQuantity   = New(CodeInvalidQuantity, "quantity out of bounds")
	ErrOrderNotFound     = New(CodeOrderNotFound, "order not found")
	ErrInvalidTransition = New(CodeInvalidTransition, "invalid order transition")
	ErrAlreadyDecided    = New(CodeAlreadyDecided, "order already decided")
	ErrUnauthorized      = New(CodeUnauthorized, "unauthorized")
	ErrStoreUnavailable  = New(CodeStoreUnavailable, "store unavailable")
	ErrUserNotFound      = New(CodeUserNotFound, "user not found")
	ErrNoPendingOrder    = New(CodeNoPendingOrder, "no pending order")
	ErrNegativeBalance   = New(CodeNegativeBalance, "balance would become negative")
	ErrRateLimited       = New(CodeRateLimited, "too many requests")
	ErrInvalidAction     = New(CodeInvalidAction, "invalid action")
)

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Retryable reports whether the whole operation that produced err may be
// retried. Only transient persistence failures qualify.
func Retryable(err error) bool {
	return CodeOf(err) == CodeStoreUnavailable
}

// Unavailable wraps a persistence failure of op as StoreUnavailable unless it
// already carries a domain code.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return Wrap(CodeStoreUnavailable, op, err)
}
