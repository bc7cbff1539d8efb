package native

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// rawReply holds response bytes exactly as received.
type rawReply []byte

// rawCodec marshals requests as protobuf and hands responses back undecoded.
// Its name keeps the "application/grpc+proto" content type.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("native: request %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	r, ok := v.(*rawReply)
	if !ok {
		return fmt.Errorf("native: unexpected reply holder %T", v)
	}
	// grpc may reuse data once Unmarshal returns.
	*r = append((*r)[:0], data...)
	return nil
}

func (rawCodec) Name() string { return "proto" }
