package state

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes state errors.
type ErrorCode string

const (
	// ErrCodeMissingKey indicates a read of a key the store does not hold.
	ErrCodeMissingKey ErrorCode = "MISSING_KEY"

	// ErrCodeTypeMismatch indicates the stored type tag differs from the
	// requested type, or the payload cannot be decoded as that type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeMalformed indicates persisted data that cannot be decoded.
	ErrCodeMalformed ErrorCode = "MALFORMED_PERSISTED_DATA"

	// ErrCodeIOFailure indicates the backing storage could not be read or written.
	ErrCodeIOFailure ErrorCode = "IO_FAILURE"

	// ErrCodeCountMismatch indicates a bulk update with unequal key and value counts.
	ErrCodeCountMismatch ErrorCode = "KEY_VALUE_COUNT_MISMATCH"
)

// Error is the error type returned by state operations and persisters.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Key is the affected record name, if any.
	Key string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewMalformedError creates an Error for undecodable persisted data.
func NewMalformedError(message string, err error) *Error {
	return &Error{Code: ErrCodeMalformed, Message: message, Err: err}
}

// NewIOError creates an Error for a failed read or write of path.
func NewIOError(op, path string, err error) *Error {
	return &Error{Code: ErrCodeIOFailure, Message: fmt.Sprintf("%s %s", op, path), Err: err}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsMissingKey returns true if err is a missing key error.
func IsMissingKey(err error) bool {
	return CodeOf(err) == ErrCodeMissingKey
}

// IsTypeMismatch returns true if err is a type mismatch error.
func IsTypeMismatch(err error) bool {
	return CodeOf(err) == ErrCodeTypeMismatch
}

// IsMalformed returns true if err reports malformed persisted data.
func IsMalformed(err error) bool {
	return CodeOf(err) == ErrCodeMalformed
}
