// Package outcome normalizes whatever a transport binding returns into one
// terminal result per call: an account record or a classified failure.
package outcome

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/hermes/account"
	"xdao.co/hermes/transport"
)

// Outcome is the terminal result of one call.
// Exactly one of Record and Err is non-nil.
type Outcome struct {
	Record *account.Record
	Err    *Error
}

func Success(r account.Record) Outcome { return Outcome{Record: &r} }

// Failure panics on a nil error: an outcome with neither side set would
// break the single-outcome contract.
func Failure(e *Error) Outcome {
	if e == nil {
		panic("outcome: Failure(nil)")
	}
	return Outcome{Err: e}
}

func (o Outcome) OK() bool { return o.Err == nil && o.Record != nil }

// Unwrap returns the record, or the classified error as a plain error.
func (o Outcome) Unwrap() (account.Record, error) {
	if o.Err != nil {
		return account.Record{}, o.Err
	}
	if o.Record == nil {
		return account.Record{}, &Error{Kind: KindTransportOrEmptyResponse, Code: codes.Unknown, Message: "empty outcome"}
	}
	return *o.Record, nil
}

// Invalid classifies a local validation failure.
func Invalid(op account.Op, err error) Outcome {
	return Failure(&Error{
		Kind:    KindInvalidArgument,
		Op:      op,
		Code:    codes.InvalidArgument,
		Message: err.Error(),
		Cause:   err,
	})
}

// Normalize turns a binding's raw result into an Outcome.
//
// It never retries and never substitutes defaults: an empty or undecodable
// reply is always a failure, never a zero-valued record.
func Normalize(op account.Op, payload *structpb.Struct, err error) Outcome {
	if err != nil {
		if errors.Is(err, transport.ErrMalformedPayload) {
			return Failure(&Error{Kind: KindMalformedResponse, Op: op, Code: codes.Unknown, Message: err.Error(), Cause: err})
		}
		return Failure(transportError(op, err))
	}
	if payload == nil || len(payload.GetFields()) == 0 {
		return Failure(&Error{Kind: KindTransportOrEmptyResponse, Op: op, Code: codes.Unknown, Message: "empty response"})
	}
	r, derr := account.DecodeRecord(payload)
	if derr != nil {
		return Failure(&Error{Kind: KindMalformedResponse, Op: op, Code: codes.Unknown, Message: derr.Error(), Cause: derr})
	}
	return Success(r)
}

func transportError(op account.Op, err error) *Error {
	e := &Error{Kind: KindTransportOrEmptyResponse, Op: op, Code: codes.Unknown, Message: err.Error(), Cause: err}
	if st, ok := status.FromError(err); ok {
		e.Code = st.Code()
		if st.Message() != "" {
			e.Message = st.Message()
		} else {
			e.Message = st.Code().String()
		}
		return e
	}
	switch {
	case errors.Is(err, context.Canceled):
		e.Code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		e.Code = codes.DeadlineExceeded
	}
	return e
}
