package cli

import (
	"checklist/pkg/domain"
	"errors"
	"fmt"
)

// Exit codes for checklistd.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // storage or unexpected failure
	ExitUsage    = 2 // bad flags, config or input
	ExitNotFound = 3 // record id absent
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps err to a process exit code. Domain validation and not-found
// errors get their own codes; everything else is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case domain.IsValidation(err):
		return ExitUsage
	case domain.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitFailure
	}
}
