package pvsload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	err := runner.Run(ctx, cfg)
//	if errors.Is(err, pvsload.ErrInputNotFound) {
//	    // Nothing was touched in the database
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigSectionNotFound indicates the INI file lacks the requested section.
	ErrConfigSectionNotFound = fmt.Errorf("section not found: %w", ErrInvalidConfig)

	// ErrInputNotFound indicates the input CSV file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrDatabaseOperation indicates a SQL statement or COPY failed.
	ErrDatabaseOperation = errors.New("database operation failed")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// DatabaseOperationError reports which step failed and on which object.
// It unwraps to both ErrDatabaseOperation and the underlying driver error.
type DatabaseOperationError struct {
	Op     string // "create table", "copy", "insert", "drop view", ...
	Object string // Table or view name the operation targeted
	Err    error
}

// NewOperationError wraps err as a DatabaseOperationError.
func NewOperationError(op, object string, err error) *DatabaseOperationError {
	return &DatabaseOperationError{Op: op, Object: object, Err: err}
}

func (e *DatabaseOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Object, e.Err)
}

func (e *DatabaseOperationError) Unwrap() []error {
	return []error{ErrDatabaseOperation, e.Err}
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInputNotFound):
		return ExitGeneralError
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrDatabaseOperation):
		return ExitOperationFailed
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError recognizes the argument and flag errors cobra produces.
func isUsageError(msg string) bool {
	for _, prefix := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"requires at least",
		"required flag",
		"invalid argument",
		"flag needs an argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
