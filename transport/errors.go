package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for requests issued after Close
	ErrClosed = errors.New("transport is closed")
)

// Error wraps a transport-level failure with the operation and host involved
type Error struct {
	Op    string
	Host  string
	Port  string
	Cause error
}

func (e *Error) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("transport %s %s:%s: %v", e.Op, e.Host, e.Port, e.Cause)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func wrapErr(op, host, port string, cause error) *Error {
	return &Error{Op: op, Host: host, Port: port, Cause: cause}
}
