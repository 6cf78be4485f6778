package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a wisdom error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrDuplicateContent ErrorCode = "DUPLICATE_CONTENT" // 409
	ErrContentTooLarge  ErrorCode = "CONTENT_TOO_LARGE" // 413
	ErrStorageFailure   ErrorCode = "STORAGE_FAILURE"   // 500
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// WisdomError represents a structured error with code, status, and details.
type WisdomError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is kept for logging and errors.Unwrap; it is never shown to callers
	cause error
}

// Error implements the error interface.
func (e *WisdomError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *WisdomError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *WisdomError {
	return &WisdomError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing drop or document.
// kind is "wisdom drop" or "attribution document".
func NewNotFound(kind, identifier string) *WisdomError {
	return &WisdomError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewDuplicateContent creates a 409 error for a document hash that is already attributed.
func NewDuplicateContent(hash string) *WisdomError {
	return &WisdomError{
		Code:    ErrDuplicateContent,
		Status:  409,
		Message: "canonical content already attributed",
		Details: map[string]any{"document_hash": hash},
	}
}

// NewContentTooLarge creates a 413 error when drop content exceeds the size limit.
func NewContentTooLarge(max, actual int) *WisdomError {
	return &WisdomError{
		Code:    ErrContentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("content exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewStorageFailure creates an opaque 500 error for persistence failures.
// The cause stays reachable through errors.Unwrap but is not part of the message.
func NewStorageFailure(err error) *WisdomError {
	return &WisdomError{
		Code:    ErrStorageFailure,
		Status:  500,
		Message: "storage failure",
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *WisdomError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WisdomError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err is, or wraps, a WisdomError with the given code.
func Is(err error, code ErrorCode) bool {
	var wErr *WisdomError
	if stderrors.As(err, &wErr) {
		return wErr.Code == code
	}
	return false
}

// As returns the WisdomError in err's chain, if any.
func As(err error) (*WisdomError, bool) {
	var wErr *WisdomError
	if stderrors.As(err, &wErr) {
		return wErr, true
	}
	return nil, false
}
