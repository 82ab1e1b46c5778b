package client

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by every operation that needs a session when none
// is open.
var ErrNotConnected = errors.New("not connected to a queue manager")

// Kind classifies a failed operation.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error wraps a transport failure with the name of the operation that hit it.
// File system errors are never wrapped in an Error.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsConnectionError reports whether err carries a connection failure.
func IsConnectionError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnection
}

// IsTransportError reports whether err carries a transport failure.
func IsTransportError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

func connectionError(op string, err error) error {
	return &Error{Op: op, Kind: KindConnection, Err: err}
}

func transportError(op string, err error) error {
	return &Error{Op: op, Kind: KindTransport, Err: err}
}
