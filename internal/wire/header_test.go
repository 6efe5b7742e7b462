package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{Size: 0, Type: Quit, URI: ""},
		{Size: 1024, Type: Pixelstream, URI: "stream-1"},
		{Size: 69, Type: Event, URI: string(bytes.Repeat([]byte("a"), 64))},
	}
	for _, h := range cases {
		var buf bytes.Buffer
		if err := EncodeHeader(&buf, h); err != nil {
			t.Fatalf("EncodeHeader: %v", err)
		}
		if buf.Len() != HeaderSize {
			t.Fatalf("encoded size = %d, want %d", buf.Len(), HeaderSize)
		}
		got, err := DecodeHeader(&buf)
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		if got.Size != h.Size || got.Type != h.Type || got.URI != h.URI {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
		}
	}
}

func TestHeaderURITooLong(t *testing.T) {
	h := Header{URI: string(bytes.Repeat([]byte("x"), 65))}
	if err := EncodeHeader(&bytes.Buffer{}, h); err == nil {
		t.Fatal("expected error for over-long uri")
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	_, err := DecodeHeader(bytes.NewReader([]byte{1, 2, 3}))
	var malformed *MalformedHeaderError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedHeaderError, got %v", err)
	}
}

func TestDecodeHeaderEOF(t *testing.T) {
	_, err := DecodeHeader(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		var malformed *MalformedHeaderError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected malformed header error, got %v", err)
		}
	}
}
