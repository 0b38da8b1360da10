package payment

import (
	"errors"
	"fmt"
)

var (
	ErrRefused         = errors.New("payment: refused by gateway")
	ErrAlreadyCaptured = errors.New("payment: order already captured")
)

// Kind classifies dispatch failures for the caller. Connection failures
// are retryable with caution, refusals are terminal, anything else is an
// integration error that should alert operators.
type Kind int

const (
	KindUnexpected Kind = iota
	KindConnection
	KindRefused
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection_failed"
	case KindRefused:
		return "refused"
	default:
		return "unexpected"
	}
}

// Error is the classified dispatch failure surfaced to callers.
type Error struct {
	Kind    Kind
	Method  string
	OrderID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s for order %s: %v", e.Kind, e.OrderID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ConnectionError is raised by the provider client when the gateway could
// not be reached at the transport level. It keeps the attempted request
// for diagnostics.
type ConnectionError struct {
	URL     string
	Payload string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("url : %s. data : %s. message : %s", e.URL, e.Payload, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
