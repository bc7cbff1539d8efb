package web

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeFrame(FlagData, []byte("hello")))
	buf.Write(EncodeFrame(FlagTrailer, []byte("grpc-status: 0\r\n")))

	f, err := ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.IsTrailer() || string(f.Payload) != "hello" {
		t.Fatalf("unexpected first frame: %+v", f)
	}
	f, err = ReadFrame(&buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !f.IsTrailer() {
		t.Fatalf("expected trailer frame, got flag %#x", f.Flag)
	}
	if _, err := ReadFrame(&buf, 0); err != io.EOF {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	full := EncodeFrame(FlagData, []byte("hello"))
	if _, err := ReadFrame(bytes.NewReader(full[:7]), 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF for short payload, got %v", err)
	}
	if _, err := ReadFrame(bytes.NewReader(full[:3]), 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF for short header, got %v", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	full := EncodeFrame(FlagData, make([]byte, 32))
	if _, err := ReadFrame(bytes.NewReader(full), 16); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	md := metadata.Pairs("grpc-status", "5", "grpc-message", "not%20found")
	got, err := ParseTrailer(EncodeTrailer(md))
	if err != nil {
		t.Fatalf("ParseTrailer: %v", err)
	}
	if v := got.Get("grpc-status"); len(v) != 1 || v[0] != "5" {
		t.Fatalf("grpc-status = %v", v)
	}
	if v := got.Get("grpc-message"); len(v) != 1 || v[0] != "not%20found" {
		t.Fatalf("grpc-message = %v", v)
	}
}

func TestParseTrailerRejectsGarbage(t *testing.T) {
	if _, err := ParseTrailer([]byte("no colon here\r\n")); err == nil {
		t.Fatalf("expected error for trailer line without a colon")
	}
}

func TestDecodeTextConcatenatedChunks(t *testing.T) {
	a := EncodeFrame(FlagData, []byte("x"))
	b := EncodeFrame(FlagTrailer, []byte("grpc-status: 0\r\n"))
	body := append(EncodeText(a), EncodeText(b)...)

	got, err := DecodeText(body)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	want := append(append([]byte{}, a...), b...)
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %x, want %x", got, want)
	}
}

func TestDecodeTextRejectsBadLength(t *testing.T) {
	if _, err := DecodeText([]byte("abc")); err == nil {
		t.Fatalf("expected error for a partial base64 quantum")
	}
}
