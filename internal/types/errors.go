package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and repositories use these constants instead
// of hardcoded strings so HTTP status mapping stays in one place.
const (
	// Validation (400) - rejected on the ingestion boundary, before enqueue.
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationJurisdiction ErrorCode = "validation_invalid_jurisdiction"
	ErrCodeValidationKind         ErrorCode = "validation_invalid_message_kind"
	ErrCodeValidationPayload      ErrorCode = "validation_invalid_payload"

	// Decode (processing-time) - surfaced as an error-kind outgoing message,
	// never as an HTTP response. The parse subtype is distinguishable from
	// generic decode failure per the codec contract.
	ErrCodeDecodeParse  ErrorCode = "decode_message_parse"
	ErrCodeDecodeFailed ErrorCode = "decode_failed"

	// Conversion (processing-time) - the death record could not be rendered
	// into the fixed-width legacy format.
	ErrCodeConversionFailed ErrorCode = "conversion_failed"

	// Not Found (404)
	ErrCodeNotFoundMessage ErrorCode = "not_found_message"

	// Conflict / availability
	ErrCodeQueueClosed ErrorCode = "queue_closed"

	// Internal (500)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeQueueClosed:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(s, "decode_"), c == ErrCodeConversionFailed:
		// Processing-time codes only surface over HTTP if a handler bubbles
		// one up unexpectedly; treat as an internal fault.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates an AppError carrying structured details for
// the client, such as the offending field of a validation failure.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from an error chain, or
// ErrCodeInternalUnexpected if the chain carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}
