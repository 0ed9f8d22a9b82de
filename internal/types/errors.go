package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Cadenza core errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Decision ledger error codes
const (
	STALE_DECISION       ErrorCode = "STALE_DECISION"
	DECISION_NOT_FOUND   ErrorCode = "DECISION_NOT_FOUND"
	FINGERPRINT_MISMATCH ErrorCode = "FINGERPRINT_MISMATCH"
	LEDGER_STORE_FAILED  ErrorCode = "LEDGER_STORE_FAILED"
	ISSUE_NOT_FOUND      ErrorCode = "ISSUE_NOT_FOUND"
)

// Context builder error codes
const (
	CONTEXT_SIZE_EXCEEDED ErrorCode = "CONTEXT_SIZE_EXCEEDED"
)

// Build session error codes
const (
	UNIT_ALREADY_RESOLVED ErrorCode = "UNIT_ALREADY_RESOLVED"
	UNIT_NOT_IN_SESSION   ErrorCode = "UNIT_NOT_IN_SESSION"
	RESULT_NOT_TERMINAL   ErrorCode = "RESULT_NOT_TERMINAL"
	SESSION_NOT_FOUND     ErrorCode = "SESSION_NOT_FOUND"
	SESSION_STORE_FAILED  ErrorCode = "SESSION_STORE_FAILED"
	SESSION_ACTIVE        ErrorCode = "SESSION_ACTIVE"
)

// Artifact registry error codes
const (
	REGISTRY_LOAD_FAILED ErrorCode = "REGISTRY_LOAD_FAILED"
	REGISTRY_SAVE_FAILED ErrorCode = "REGISTRY_SAVE_FAILED"
	ARTIFACT_NOT_FOUND   ErrorCode = "ARTIFACT_NOT_FOUND"
	ARTIFACT_MISSING     ErrorCode = "ARTIFACT_MISSING"
)

// Plan error codes
const (
	PLAN_LOAD_FAILED ErrorCode = "PLAN_LOAD_FAILED"
	PLAN_SAVE_FAILED ErrorCode = "PLAN_SAVE_FAILED"
)

// CadenzaError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type CadenzaError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CadenzaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *CadenzaError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *CadenzaError) Is(target error) bool {
	var cerr *CadenzaError
	if errors.As(target, &cerr) {
		return e.Code == cerr.Code
	}
	return false
}

// NewError creates a new non-retryable CadenzaError with the given code and message.
func NewError(code ErrorCode, message string) *CadenzaError {
	return &CadenzaError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewErrorf creates a new non-retryable CadenzaError with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *CadenzaError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError creates a new non-retryable CadenzaError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *CadenzaError {
	return &CadenzaError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// CodeOf returns the error code carried by err, or empty when err is not a CadenzaError.
func CodeOf(err error) ErrorCode {
	var cerr *CadenzaError
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return ""
}
