package native

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"xdao.co/hermes/transport"
	"xdao.co/hermes/transport/registry"
)

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagMaxMsgBytes int
)

func init() {
	registry.MustRegister(registry.Plugin{
		Name:        Name,
		Description: "binary gRPC over an insecure TCP channel (host:port)",
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "native-target", "", "gRPC target host:port (for --binding=native)")
			fs.DurationVar(&flagDialTimeout, "native-dial-timeout", 5*time.Second, "Wait this long for the channel to become ready; 0 connects on first call (for --binding=native)")
			fs.IntVar(&flagMaxMsgBytes, "native-max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
		},
		Open: func() (transport.Binding, error) {
			target := strings.TrimSpace(flagTarget)
			if target == "" {
				return nil, fmt.Errorf("missing --native-target")
			}
			conn, err := Dial(target, DialOptions{Timeout: flagDialTimeout, MaxMsgBytes: flagMaxMsgBytes})
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	})
}
