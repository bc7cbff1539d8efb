package web

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"google.golang.org/grpc/metadata"
)

// gRPC-Web wire constants.
const (
	ContentTypeProto = "application/grpc-web+proto"
	ContentTypeText  = "application/grpc-web-text"

	FlagData       byte = 0x00
	FlagCompressed byte = 0x01
	FlagTrailer    byte = 0x80

	frameHeaderLen = 5
)

var ErrFrameTooLarge = errors.New("web: frame exceeds size limit")

// Frame is one length-prefixed gRPC-Web message or trailer block.
type Frame struct {
	Flag    byte
	Payload []byte
}

func (f Frame) IsTrailer() bool { return f.Flag&FlagTrailer != 0 }

// EncodeFrame prefixes payload with the 5-byte header: flag, big-endian length.
func EncodeFrame(flag byte, payload []byte) []byte {
	out := make([]byte, frameHeaderLen+len(payload))
	out[0] = flag
	binary.BigEndian.PutUint32(out[1:frameHeaderLen], uint32(len(payload)))
	copy(out[frameHeaderLen:], payload)
	return out
}

// ReadFrame reads one frame from r. It returns io.EOF only when r ends
// cleanly between frames. maxBytes <= 0 disables the size check.
func ReadFrame(r io.Reader, maxBytes int) (Frame, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if maxBytes > 0 && uint64(n) > uint64(maxBytes) {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxBytes)
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Flag: hdr[0], Payload: p}, nil
}

// EncodeTrailer renders md as a trailer frame payload ("key: value\r\n" lines,
// lower-case keys, sorted).
func EncodeTrailer(md metadata.MD) []byte {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b bytes.Buffer
	for _, k := range keys {
		for _, v := range md[k] {
			b.WriteString(strings.ToLower(k))
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	return b.Bytes()
}

// ParseTrailer is the inverse of EncodeTrailer.
func ParseTrailer(p []byte) (metadata.MD, error) {
	md := metadata.MD{}
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, fmt.Errorf("web: malformed trailer line %q", line)
		}
		md.Append(strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]))
	}
	return md, nil
}

// EncodeText applies the grpc-web-text body encoding (standard base64).
func EncodeText(b []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out
}

// DecodeText reverses EncodeText. Servers may send several independently
// padded base64 chunks back to back, so decoding works in 4-byte quanta.
func DecodeText(b []byte) ([]byte, error) {
	clean := bytes.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, b)
	if len(clean)%4 != 0 {
		return nil, fmt.Errorf("web: text body length %d is not a multiple of 4", len(clean))
	}
	out := make([]byte, 0, len(clean)/4*3)
	var quantum [3]byte
	for i := 0; i < len(clean); i += 4 {
		n, err := base64.StdEncoding.Decode(quantum[:], clean[i:i+4])
		if err != nil {
			return nil, fmt.Errorf("web: text body: %w", err)
		}
		out = append(out, quantum[:n]...)
	}
	return out, nil
}
