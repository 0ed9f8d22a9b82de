package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitFingerprintMismatch indicates a plan was blocked by the
	// decision fingerprint gate
	ExitFingerprintMismatch = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitBuildFailed indicates one or more build units failed
	ExitBuildFailed = 5
	// ExitSessionActive indicates another build session holds the run lock
	ExitSessionActive = 6
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Cause: err}
}

// HandleError handles an error and returns the appropriate exit code.
// It also prints the error message to the command's error output.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil && IsVerbose() {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	var cerr *types.CadenzaError
	if errors.As(err, &cerr) {
		cmd.PrintErrln("Error:", cerr.Error())
		return mapCodeToExitCode(cerr.Code)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

// mapCodeToExitCode maps core error codes to CLI exit codes.
func mapCodeToExitCode(code types.ErrorCode) int {
	switch code {
	case types.FINGERPRINT_MISMATCH:
		return ExitFingerprintMismatch
	case types.SESSION_ACTIVE:
		return ExitSessionActive
	case types.CONFIG_LOAD_FAILED, types.CONFIG_PARSE_FAILED, types.CONFIG_VALIDATION_FAILED:
		return ExitConfigError
	default:
		return ExitError
	}
}
