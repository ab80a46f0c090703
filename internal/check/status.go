// Package check runs one poll of the firewall and reports the outcome
// using the Sensu plugin status convention.
package check

import (
	"errors"
	"fmt"
)

// Status is a plugin outcome; its integer value is the process exit code.
type Status int

const (
	OK       Status = 0
	Warning  Status = 1
	Critical Status = 2
	Unknown  Status = 3
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Error carries the status a failure should be reported with.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Criticalf wraps err as a critical failure.
func Criticalf(err error, format string, args ...interface{}) error {
	return &Error{Status: Critical, Err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)}
}

// Unknownf wraps err as an unknown-status failure.
func Unknownf(err error, format string, args ...interface{}) error {
	return &Error{Status: Unknown, Err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)}
}

// StatusOf maps err to a status. Errors without a status are Unknown.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Status
	}
	return Unknown
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int { return int(StatusOf(err)) }
