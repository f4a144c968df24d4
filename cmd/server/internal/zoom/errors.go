package zoom

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies the class of a relay failure. The API layer maps codes to HTTP statuses.
type ErrorCode string

const (
	// CodeConfigurationInvalid required credential or URL missing or malformed
	CodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"

	// CodeAuthenticationFailed the OAuth token fetch failed (network, bad credentials, malformed body)
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"

	// CodeUpstreamUnavailable retryable statuses or network failures persisted past the retry limit
	CodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// CodeUpstreamRejected the provider answered with a non-retryable 4xx
	CodeUpstreamRejected ErrorCode = "UPSTREAM_REJECTED"

	// CodeUpstreamResponseInvalid a 2xx body did not match the expected schema
	CodeUpstreamResponseInvalid ErrorCode = "UPSTREAM_RESPONSE_INVALID"

	// CodeSignatureInputInvalid missing or non-numeric meeting number / role
	CodeSignatureInputInvalid ErrorCode = "SIGNATURE_INPUT_INVALID"

	// CodeInvalidRequest malformed inbound request (bad JSON, blank topic)
	CodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Error is the typed error returned by every operation of this package.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// StatusCode is the last upstream HTTP status, 0 when none was received.
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is / errors.As through the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a coded error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return NewError(CodeConfigurationInvalid, message, nil)
}

// NewAuthenticationError creates an error for a failed token fetch.
func NewAuthenticationError(statusCode int, cause error) *Error {
	e := NewError(CodeAuthenticationFailed, "failed to obtain Zoom access token", cause)
	e.StatusCode = statusCode
	return e
}

// NewTransientUpstreamError creates the error surfaced after the retry budget is spent.
func NewTransientUpstreamError(method, path string, attempts, statusCode int, cause error) *Error {
	msg := fmt.Sprintf("%s %s failed after %d attempts", method, path, attempts)
	if statusCode != 0 {
		msg = fmt.Sprintf("%s (last HTTP %d)", msg, statusCode)
	}
	e := NewError(CodeUpstreamUnavailable, msg, cause)
	e.StatusCode = statusCode
	return e
}

// NewUpstreamRejectionError creates the error for a non-retryable provider response.
func NewUpstreamRejectionError(method, path string, statusCode int, detail string) *Error {
	msg := fmt.Sprintf("%s %s rejected with HTTP %d", method, path, statusCode)
	if detail != "" {
		msg = msg + ": " + detail
	}
	e := NewError(CodeUpstreamRejected, msg, nil)
	e.StatusCode = statusCode
	return e
}

// NewSignatureInputError creates a signature input validation error.
func NewSignatureInputError(message string) *Error {
	return NewError(CodeSignatureInputInvalid, message, nil)
}

// NewInvalidRequestError creates an inbound request validation error.
func NewInvalidRequestError(message string) *Error {
	return NewError(CodeInvalidRequest, message, nil)
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
