// Package transport defines the capability every wire binding implements.
//
// A Binding is a grpc.ClientConnInterface, so the account service stub runs
// unchanged over either the native gRPC channel or the gRPC-Web HTTP binding.
package transport

import (
	"errors"
	"fmt"

	"google.golang.org/grpc"
)

// Binding sends one request and receives one response or error.
//
// Contract:
// - Target is fixed at construction and never changes.
// - Invoke returns exactly once per call; remote failures are errors, never panics.
// - Invoke is safe for concurrent use.
type Binding interface {
	grpc.ClientConnInterface

	// Name is the registry name of the binding ("native", "web").
	Name() string
	// Target is the host:port or base URL the binding talks to.
	Target() string
	Close() error
}

// ErrMalformedPayload marks a response payload that arrived but could not be
// decoded into the expected message.
var ErrMalformedPayload = errors.New("transport: malformed response payload")

type MalformedError struct {
	Method string
	Cause  error
}

func (e *MalformedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("transport: %s: malformed response payload", e.Method)
	}
	return fmt.Sprintf("transport: %s: malformed response payload: %v", e.Method, e.Cause)
}

func (e *MalformedError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{ErrMalformedPayload}
	}
	return []error{ErrMalformedPayload, e.Cause}
}
