package payment

import "errors"

var (
	// ErrNotConfigured indicates no access token was configured.
	ErrNotConfigured = errors.New("checkout provider not configured")

	// ErrUnavailable indicates the provider could not be reached.
	ErrUnavailable = errors.New("checkout provider unavailable")

	// ErrTimeout indicates the call exceeded the configured timeout.
	ErrTimeout = errors.New("checkout request timed out")

	// ErrRejected indicates the provider refused the request (4xx). These
	// are never retried.
	ErrRejected = errors.New("checkout request rejected")

	// ErrInvalidResponse indicates a response body that could not be used.
	ErrInvalidResponse = errors.New("invalid checkout response")

	// ErrRetryExhausted indicates all retry attempts failed.
	ErrRetryExhausted = errors.New("checkout retry attempts exhausted")
)
