// Package native is the process-to-process binding: binary gRPC framing over
// a TCP channel to a fixed host:port.
//
// The channel is insecure (no TLS, no credentials). Use it only on trusted
// networks or in tests.
package native

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"xdao.co/hermes/transport"
)

const Name = "native"

// Conn implements transport.Binding over a gRPC client connection.
type Conn struct {
	cc     *grpc.ClientConn
	target string
}

type DialOptions struct {
	// Timeout bounds how long Dial waits for the channel to become ready.
	// Zero connects lazily on the first call.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Dialer replaces the default TCP dialer when set (e.g. bufconn in tests).
	// The target is then handed to it verbatim, without name resolution.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// Dial connects to target (host:port). The target is fixed for the
// lifetime of the returned Conn.
func Dial(target string, opts DialOptions) (*Conn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	resolved := target
	if opts.Dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(opts.Dialer))
		resolved = "passthrough:///" + target
	}

	cc, err := grpc.NewClient(resolved, dialOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		if err := waitReady(cc, opts.Timeout); err != nil {
			_ = cc.Close()
			return nil, fmt.Errorf("native: dial %s: %w", target, err)
		}
	}
	return &Conn{cc: cc, target: target}, nil
}

func waitReady(cc *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cc.Connect()
	for {
		s := cc.GetState()
		if s == connectivity.Ready {
			return nil
		}
		if !cc.WaitForStateChange(ctx, s) {
			return fmt.Errorf("not ready after %s (state %s)", timeout, s)
		}
	}
}

// Invoke performs one unary call. The reply bytes are decoded here rather
// than by grpc, so an undecodable reply surfaces as a
// *transport.MalformedError, the same as on the web binding.
func (c *Conn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	out, ok := reply.(proto.Message)
	if !ok {
		return status.Errorf(codes.Internal, "native: reply %T is not a proto.Message", reply)
	}
	var raw rawReply
	opts = append(opts, grpc.ForceCodec(rawCodec{}))
	if err := c.cc.Invoke(ctx, method, args, &raw, opts...); err != nil {
		return err
	}
	if err := proto.Unmarshal(raw, out); err != nil {
		return &transport.MalformedError{Method: method, Cause: err}
	}
	return nil
}

func (c *Conn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.cc.NewStream(ctx, desc, method, opts...)
}

func (c *Conn) Name() string { return Name }

func (c *Conn) Target() string { return c.target }

func (c *Conn) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}
