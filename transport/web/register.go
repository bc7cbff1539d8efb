package web

import (
	"flag"
	"fmt"
	"strings"

	"xdao.co/hermes/transport"
	"xdao.co/hermes/transport/registry"
)

var (
	flagBaseURL     string
	flagText        bool
	flagMaxMsgBytes int
)

func init() {
	registry.MustRegister(registry.Plugin{
		Name:        Name,
		Description: "gRPC-Web over HTTP/1.1 to a base URL (browser-compatible framing)",
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBaseURL, "web-base-url", "", "gRPC-Web base URL, e.g. http://127.0.0.1:8080 (for --binding=web)")
			fs.BoolVar(&flagText, "web-text", false, "Use application/grpc-web-text framing (for --binding=web)")
			fs.IntVar(&flagMaxMsgBytes, "web-max-msg-bytes", 0, "Max message size in bytes; 0 uses the default")
		},
		Open: func() (transport.Binding, error) {
			base := strings.TrimSpace(flagBaseURL)
			if base == "" {
				return nil, fmt.Errorf("missing --web-base-url")
			}
			conn, err := New(base, Options{Text: flagText, MaxMsgBytes: flagMaxMsgBytes})
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	})
}
