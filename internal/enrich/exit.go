package enrich

import (
	"errors"
)

// Process exit statuses.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitOpenInput   = 2
	ExitOpenOutput  = 3
	ExitEmptyHeader = 4
	ExitWrite       = 5
	ExitDeleteInput = 6
)

// ExitError is a fatal pipeline condition carrying the process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps err to a process exit status. Errors that carry no status
// map to ExitUsage.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitUsage
}
