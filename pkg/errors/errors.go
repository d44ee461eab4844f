// Package errors provides structured error types for stackgate.
//
// Every failure a package check can produce carries a machine-readable
// [Code] so the CLI, the HTTP server and the history ledger can react to
// it without string matching:
//   - INVALID_*: input or configuration validation failures
//   - RESOLUTION_FAILED, LICENSE_VIOLATION, ENGINE_INCOMPATIBLE: decision failures
//   - CACHE_CHECK_FAILED, DISPATCH_FAILED, POLL_*: private mirror and workflow failures
//   - NOT_FOUND, INTERNAL_ERROR: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeResolutionFailed, "no version of %s matches %q", name, spec)
//	if errors.Is(err, errors.ErrCodeResolutionFailed) {
//	    // Handle resolution failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDispatchFailed, origErr, "dispatch %s", workflow)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Decision errors
	ErrCodeResolutionFailed   Code = "RESOLUTION_FAILED"
	ErrCodeLicenseViolation   Code = "LICENSE_VIOLATION"
	ErrCodeEngineIncompatible Code = "ENGINE_INCOMPATIBLE"

	// Private mirror and caching workflow errors
	ErrCodeCacheCheckFailed Code = "CACHE_CHECK_FAILED"
	ErrCodeDispatchFailed   Code = "DISPATCH_FAILED"
	ErrCodePollTimeout      Code = "POLL_TIMEOUT"
	ErrCodePollFailed       Code = "POLL_FAILED"

	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the whole error chain, so a code attached at any wrapping level matches.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
