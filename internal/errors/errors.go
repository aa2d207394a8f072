package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a frag error code.
type ErrorCode string

const (
	ErrInvalidArgument   ErrorCode = "INVALID_ARGUMENT"   // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrIntegrityMismatch ErrorCode = "INTEGRITY_MISMATCH" // 409
	ErrInputTooLarge     ErrorCode = "INPUT_TOO_LARGE"    // 413
	ErrValidation        ErrorCode = "VALIDATION_ERROR"   // 422
	ErrCancelled         ErrorCode = "CANCELLED"          // 499
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrIOFailure         ErrorCode = "IO_FAILURE"         // 502
)

// FragError represents a structured error with code, status, and details.
type FragError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *FragError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidArgument creates a 400 error for malformed input (bad chunk size,
// undecodable payload, out-of-range settings).
func NewInvalidArgument(msg string) *FragError {
	return &FragError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 422 error for text that is not a data URI.
func NewValidation(msg string) *FragError {
	return &FragError{
		Code:    ErrValidation,
		Status:  422,
		Message: msg,
	}
}

// NewIOFailure creates a 502 error for a collaborator read or write that failed.
// The action names what the user was doing ("save to gallery", "write file").
func NewIOFailure(action string, err error) *FragError {
	msg := fmt.Sprintf("could not %s", action)
	details := map[string]any{"action": action}
	if err != nil {
		msg = fmt.Sprintf("could not %s: %v", action, err)
		details["cause"] = err.Error()
	}
	return &FragError{
		Code:    ErrIOFailure,
		Status:  502,
		Message: msg,
		Details: details,
	}
}

// NewNotFound creates a 404 error for a missing gallery asset.
func NewNotFound(identifier string) *FragError {
	return &FragError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("asset not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing source file.
func NewFileNotFound(path string) *FragError {
	return &FragError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewIntegrityMismatch creates a 409 error when a reassembled data URI does not
// match the digest reported at encode time.
func NewIntegrityMismatch(want, got string) *FragError {
	return &FragError{
		Code:    ErrIntegrityMismatch,
		Status:  409,
		Message: "reassembled text does not match digest; check fragment order and that none are missing",
		Details: map[string]any{"expected_digest": want, "actual_digest": got},
	}
}

// NewInputTooLarge creates a 413 error when input exceeds the configured limit.
func NewInputTooLarge(max, actual int64) *FragError {
	return &FragError{
		Code:    ErrInputTooLarge,
		Status:  413,
		Message: fmt.Sprintf("input exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewCancelled creates a 499 error for an operation whose context was cancelled.
func NewCancelled(op string) *FragError {
	return &FragError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the cause is kept in Details for logging.
func NewInternal(err error) *FragError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &FragError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or anything it wraps) is a FragError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FragError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// As returns the FragError in err's chain, if any.
func As(err error) (*FragError, bool) {
	var fErr *FragError
	if stderrors.As(err, &fErr) {
		return fErr, true
	}
	return nil, false
}

// WrapIO classifies an error returned by an external collaborator (picker,
// image processor, reader, writer, clipboard). FragErrors pass through,
// context cancellation becomes CANCELLED and anything else IO_FAILURE.
func WrapIO(action string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return NewCancelled(action)
	}
	return NewIOFailure(action, err)
}
