// Package client is the single entry point for calling the account service.
//
// A Client wraps one transport.Binding and exposes the same methods whatever
// the binding is. Each call returns a *Pending immediately; exactly one
// outcome.Outcome is delivered to it later. Calls are fire-once: there is no
// retry, timeout or backoff here. The caller's context is handed to the
// binding as is.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/hermes/account"
	"xdao.co/hermes/outcome"
	"xdao.co/hermes/transport"
)

// RequestIDHeader is attached to every outgoing call.
const RequestIDHeader = "x-request-id"

// Client is safe for concurrent use. It holds no per-call state.
type Client struct {
	binding transport.Binding
	stub    account.AccountServiceClient
	log     *zap.Logger
	metrics *Metrics
}

type Option func(*Client)

// WithLogger sets the diagnostics logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records per-call counters and latencies.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(b transport.Binding, opts ...Option) *Client {
	c := &Client{
		binding: b,
		stub:    account.NewAccountServiceClient(b),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("binding", b.Name()), zap.String("target", b.Target()))
	return c
}

func (c *Client) Binding() transport.Binding { return c.binding }

func (c *Client) Close() error { return c.binding.Close() }

// GetAccount fetches the full account record for id.
func (c *Client) GetAccount(ctx context.Context, id account.ID) *Pending {
	q, err := account.NewQuery(account.OpGetAccount, id)
	if err != nil {
		return c.reject(q, err)
	}
	return c.start(ctx, q, func(ctx context.Context) (*structpb.Struct, error) {
		return c.stub.GetAccount(ctx, wrapperspb.String(string(q.ID)))
	})
}

// GetBalance fetches only the balance view of id.
func (c *Client) GetBalance(ctx context.Context, id account.ID) *Pending {
	q, err := account.NewQuery(account.OpGetBalance, id)
	if err != nil {
		return c.reject(q, err)
	}
	return c.start(ctx, q, func(ctx context.Context) (*structpb.Struct, error) {
		return c.stub.GetBalance(ctx, wrapperspb.String(string(q.ID)))
	})
}

// CreateAccount asks the service to open a new account.
func (c *Client) CreateAccount(ctx context.Context, req account.CreateRequest) *Pending {
	q := account.Query{ID: req.AccountID, Op: account.OpCreateAccount}
	if err := req.Validate(); err != nil {
		return c.reject(q, err)
	}
	in := account.EncodeCreateRequest(req)
	return c.start(ctx, q, func(ctx context.Context) (*structpb.Struct, error) {
		return c.stub.CreateAccount(ctx, in)
	})
}

// reject completes a call that failed local validation. The binding is
// never touched.
func (c *Client) reject(q account.Query, err error) *Pending {
	p := newPending(q)
	o := outcome.Invalid(q.Op, err)
	c.report(q, "", o, 0)
	p.complete(o)
	return p
}

func (c *Client) start(ctx context.Context, q account.Query, call func(context.Context) (*structpb.Struct, error)) *Pending {
	p := newPending(q)
	requestID := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, requestID)

	go func() {
		started := time.Now()
		defer func() {
			// A panicking binding still owes the caller one outcome.
			if r := recover(); r != nil {
				o := outcome.Failure(&outcome.Error{
					Kind:    outcome.KindTransportOrEmptyResponse,
					Op:      q.Op,
					Code:    codes.Internal,
					Message: fmt.Sprintf("binding panicked: %v", r),
				})
				c.report(q, requestID, o, time.Since(started))
				p.complete(o)
			}
		}()

		payload, err := call(ctx)
		o := outcome.Normalize(q.Op, payload, err)
		c.report(q, requestID, o, time.Since(started))
		p.complete(o)
	}()
	return p
}

func (c *Client) report(q account.Query, requestID string, o outcome.Outcome, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("method", q.Op.String()),
		zap.String("account_id", string(q.ID)),
		zap.Duration("elapsed", elapsed),
	}
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if o.Err != nil {
		c.log.Warn("account call failed", append(fields,
			zap.String("kind", string(o.Err.Kind)),
			zap.String("code", o.Err.Code.String()),
			zap.String("message", o.Err.Message),
			zap.Error(o.Err.Cause),
		)...)
	} else if ce := c.log.Check(zap.DebugLevel, "account call succeeded"); ce != nil {
		ce.Write(append(fields, zap.Stringer("record", o.Record))...)
	}
	c.metrics.observe(q.Op, c.binding.Name(), o, elapsed)
}
