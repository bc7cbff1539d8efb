// Package web is the browser-compatible binding: gRPC-Web framing over plain
// HTTP/1.1 POSTs to a base URL.
//
// TLS and credentials belong to whoever hosts the binding (an http.Client
// can be supplied); this package only speaks the framing.
package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"xdao.co/hermes/transport"
)

const (
	Name = "web"

	// DefaultMaxMsgBytes matches grpc-go's default receive limit.
	DefaultMaxMsgBytes = 4 << 20

	userAgent = "grpc-web-go/hermes"
)

type Options struct {
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Text selects application/grpc-web-text (base64 bodies) instead of
	// application/grpc-web+proto.
	Text bool

	// MaxMsgBytes bounds request and response messages; 0 uses DefaultMaxMsgBytes.
	MaxMsgBytes int
}

// Conn implements transport.Binding over gRPC-Web.
type Conn struct {
	base   string
	hc     *http.Client
	text   bool
	maxMsg int
}

// New returns a binding rooted at baseURL (absolute http or https URL).
// The URL is fixed for the lifetime of the Conn.
func New(baseURL string, opts Options) (*Conn, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("web: invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("web: base url must be an absolute http(s) url, got %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	maxMsg := opts.MaxMsgBytes
	if maxMsg <= 0 {
		maxMsg = DefaultMaxMsgBytes
	}
	return &Conn{
		base:   strings.TrimRight(u.String(), "/"),
		hc:     hc,
		text:   opts.Text,
		maxMsg: maxMsg,
	}, nil
}

func (c *Conn) Name() string { return Name }

func (c *Conn) Target() string { return c.base }

func (c *Conn) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// NewStream is not supported: gRPC-Web from a browser is unary here.
func (c *Conn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Error(codes.Unimplemented, "web: streaming calls are not supported")
}

// Invoke performs one unary call. Every failure is returned as an error:
// a gRPC status for transport and remote failures, or a
// *transport.MalformedError when the response message does not decode.
func (c *Conn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	in, ok := args.(proto.Message)
	if !ok {
		return status.Errorf(codes.Internal, "web: request %T is not a proto.Message", args)
	}
	out, ok := reply.(proto.Message)
	if !ok {
		return status.Errorf(codes.Internal, "web: reply %T is not a proto.Message", reply)
	}
	payload, err := proto.Marshal(in)
	if err != nil {
		return status.Errorf(codes.Internal, "web: marshal request: %v", err)
	}
	if len(payload) > c.maxMsg {
		return status.Errorf(codes.ResourceExhausted, "web: request message larger than max (%d vs. %d)", len(payload), c.maxMsg)
	}

	body := EncodeFrame(FlagData, payload)
	contentType := ContentTypeProto
	if c.text {
		body = EncodeText(body)
		contentType = ContentTypeText
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method, bytes.NewReader(body))
	if err != nil {
		return status.Errorf(codes.Internal, "web: build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("X-Grpc-Web", "1")
	req.Header.Set("X-User-Agent", userAgent)
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		for k, vs := range md {
			for _, v := range vs {
				if strings.HasSuffix(k, "-bin") {
					v = base64.StdEncoding.EncodeToString([]byte(v))
				}
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status.FromContextError(ctxErr).Err()
		}
		return status.Errorf(codes.Unavailable, "web: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return status.Errorf(codeForHTTPStatus(resp.StatusCode), "web: unexpected HTTP status %d", resp.StatusCode)
	}

	// Text bodies are 4/3 larger; leave room for the trailer frame too.
	limit := int64(c.maxMsg)*2 + 64<<10
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return status.FromContextError(ctxErr).Err()
		}
		return status.Errorf(codes.Unavailable, "web: read response: %v", err)
	}
	if int64(len(raw)) > limit {
		return status.Errorf(codes.ResourceExhausted, "web: response body exceeds %d bytes", limit)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), ContentTypeText) {
		if raw, err = DecodeText(raw); err != nil {
			return status.Errorf(codes.Internal, "%v", err)
		}
	}
	return c.decodeResponse(method, resp.Header, raw, out)
}

func (c *Conn) decodeResponse(method string, hdr http.Header, raw []byte, out proto.Message) error {
	r := bytes.NewReader(raw)
	var (
		msg     []byte
		haveMsg bool
		trailer metadata.MD
	)
	for {
		f, err := ReadFrame(r, c.maxMsg)
		if err == io.EOF {
			break
		}
		if err != nil {
			return status.Errorf(codes.Internal, "web: %s: read frame: %v", method, err)
		}
		if f.IsTrailer() {
			if trailer, err = ParseTrailer(f.Payload); err != nil {
				return status.Errorf(codes.Internal, "web: %s: %v", method, err)
			}
			break
		}
		if f.Flag&FlagCompressed != 0 {
			return status.Errorf(codes.Unimplemented, "web: %s: compressed frames are not supported", method)
		}
		if haveMsg {
			return &transport.MalformedError{Method: method, Cause: fmt.Errorf("more than one message in unary response")}
		}
		msg, haveMsg = f.Payload, true
	}

	if err := statusFromTrailer(method, trailer, hdr); err != nil {
		return err
	}
	if !haveMsg {
		// The reply stays empty; classifying that is the caller's job.
		return nil
	}
	if err := proto.Unmarshal(msg, out); err != nil {
		return &transport.MalformedError{Method: method, Cause: err}
	}
	return nil
}

// statusFromTrailer reads grpc-status from the trailer frame, falling back to
// response headers for trailers-only responses.
func statusFromTrailer(method string, trailer metadata.MD, hdr http.Header) error {
	code, msg := "", ""
	if v := trailer.Get("grpc-status"); len(v) > 0 {
		code = v[0]
		if m := trailer.Get("grpc-message"); len(m) > 0 {
			msg = m[0]
		}
	} else {
		code = hdr.Get("Grpc-Status")
		msg = hdr.Get("Grpc-Message")
	}
	if code == "" {
		return status.Errorf(codes.Internal, "web: %s: response carries no grpc-status", method)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(code), 10, 32)
	if err != nil {
		return status.Errorf(codes.Internal, "web: %s: invalid grpc-status %q", method, code)
	}
	if codes.Code(n) == codes.OK {
		return nil
	}
	if decoded, err := url.PathUnescape(msg); err == nil {
		msg = decoded
	}
	return status.Error(codes.Code(n), msg)
}

// codeForHTTPStatus follows the gRPC HTTP-to-status mapping for responses
// that never reached a gRPC handler.
func codeForHTTPStatus(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return codes.Internal
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.Unimplemented
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}
