package cli

import (
	"errors"
	"fmt"
)

// Exit codes. Each terminal condition of a run maps to a distinct,
// documented status so scripts can branch on the result.
const (
	ExitSuccess      = 0 // winning combination found
	ExitExhausted    = 1 // every combination tried, none worked
	ExitCommandError = 2 // invalid flags, unreadable inputs, bad progress file
	ExitAborted      = 3 // interrupted, or the unlock tool is unavailable
)

// ExitError carries an exit code alongside the error message.
// Commands return it from RunE; main maps it to os.Exit.
type ExitError struct {
	Code    int
	Message string
	Err     error // underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError for errors that carry no code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
