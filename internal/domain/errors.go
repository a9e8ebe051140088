package domain

import "errors"

// Code is a machine-readable error category.
type Code string

const (
	CodeUnauthenticated         Code = "UNAUTHENTICATED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeUnknownPlan             Code = "UNKNOWN_PLAN"
	CodeEmptyCatalog            Code = "EMPTY_CATALOG"
	CodeInvalidUnderwritingData Code = "INVALID_UNDERWRITING_DATA"
	CodePersistence             Code = "PERSISTENCE_ERROR"
	CodeDataUnavailable         Code = "DATA_UNAVAILABLE"
	CodeInvalidInput            Code = "INVALID_INPUT"
	CodeInvalidTransition       Code = "INVALID_TRANSITION"
	CodeTransitionInFlight      Code = "TRANSITION_IN_FLIGHT"
	CodeAlreadyRegistered       Code = "ALREADY_REGISTERED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeConflict                Code = "CONFLICT"
	CodePaymentFailed           Code = "PAYMENT_FAILED"
)

// Retryable reports whether an operation failing with this code may succeed
// when repeated unchanged.
func (c Code) Retryable() bool {
	switch c {
	case CodePersistence, CodeDataUnavailable:
		return true
	}
	return false
}

// Error is the domain error type. Two errors match under errors.Is when
// their codes are equal, so callers can compare against the sentinels below.
type Error struct {
	Code    Code
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
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

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Code.Retryable()
}

// NewError creates a domain error with a code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a domain error that wraps an underlying cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// FieldError creates an InvalidUnderwritingData error naming the offending field.
func FieldError(field, message string) *Error {
	return &Error{Code: CodeInvalidUnderwritingData, Field: field, Message: message}
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated         = NewError(CodeUnauthenticated, "not authenticated")
	ErrForbidden               = NewError(CodeForbidden, "not permitted")
	ErrUnknownPlan             = NewError(CodeUnknownPlan, "no active plan for category")
	ErrEmptyCatalog            = NewError(CodeEmptyCatalog, "no plans found")
	ErrInvalidUnderwritingData = NewError(CodeInvalidUnderwritingData, "invalid underwriting data")
	ErrPersistence             = NewError(CodePersistence, "persistence failure")
	ErrDataUnavailable         = NewError(CodeDataUnavailable, "data unavailable")
	ErrInvalidInput            = NewError(CodeInvalidInput, "invalid input")
	ErrInvalidTransition       = NewError(CodeInvalidTransition, "invalid transition")
	ErrTransitionInFlight      = NewError(CodeTransitionInFlight, "another transition is in progress")
	ErrAlreadyRegistered       = NewError(CodeAlreadyRegistered, "quote already registered")
	ErrNotFound                = NewError(CodeNotFound, "not found")
	ErrConflict                = NewError(CodeConflict, "conflict")
	ErrPaymentFailed           = NewError(CodePaymentFailed, "payment failed")
)

// CodeOf extracts the code of the first domain error in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// IsRetryable reports whether err carries a retryable domain code.
func IsRetryable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code.Retryable()
}
