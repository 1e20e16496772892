package cli

import (
	"errors"
	"fmt"
)

const (
	ExitSuccess           = 0
	ExitGraphFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// InvocationError is a problem with the command line itself.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ExitError carries the exit code a failed command maps to.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func configError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitConfigError, Err: err}
}

func internalError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitInternalError, Err: err}
}

// ExitCode maps an error returned by Run to a process exit code. Errors
// that carry no code are internal errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr != nil && exitErr.Code != 0 {
		return exitErr.Code
	}
	return ExitInternalError
}

func hasExitCode(err error) bool {
	var invErr *InvocationError
	var exitErr *ExitError
	return errors.As(err, &invErr) || errors.As(err, &exitErr)
}
