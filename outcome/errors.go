package outcome

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"

	"xdao.co/hermes/account"
)

// Kind is the stable classification of a failed call.
//
// Callers should branch on Kind rather than matching error strings.
type Kind string

const (
	// KindInvalidArgument: caller input failed local validation; no network
	// activity took place.
	KindInvalidArgument Kind = "InvalidArgument"
	// KindTransportOrEmptyResponse: the binding reported an error, or the
	// service replied with nothing. The two are not distinguished unless the
	// binding surfaced a status code (see Error.Code).
	KindTransportOrEmptyResponse Kind = "TransportOrEmptyResponse"
	// KindMalformedResponse: a payload arrived but does not decode per the
	// account contract.
	KindMalformedResponse Kind = "MalformedResponse"
)

// Error is the classified failure of one call.
//
// Code is the remote gRPC status code when the binding surfaced one,
// codes.Unknown when it did not, and codes.InvalidArgument for local
// validation failures. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Op      account.Op
	Code    codes.Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a classified error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
