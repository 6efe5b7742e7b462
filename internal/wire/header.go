package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed on-wire size of a MessageHeader: 4-byte size,
// 1-byte type, 64-byte URI.
const HeaderSize = 4 + 1 + 64

const uriMaxLen = 64

// Header is the fixed record that precedes every message payload.
type Header struct {
	Size uint32
	Type MessageType
	URI  string
}

// MalformedHeaderError reports that a header could not be decoded from the
// wire because the stream ended before a full header was read.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("wire: malformed header: %s", e.Reason)
}

// EncodeHeader writes h in the canonical little-endian layout.
func EncodeHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Size)
	buf[4] = byte(h.Type)
	if len(h.URI) > uriMaxLen {
		return fmt.Errorf("wire: uri %q exceeds %d bytes", h.URI, uriMaxLen)
	}
	copy(buf[5:5+uriMaxLen], h.URI)
	_, err := w.Write(buf[:])
	return err
}

// DecodeHeader reads a fixed-size header from r. It returns
// *MalformedHeaderError if the stream ends before a full header is read.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, &MalformedHeaderError{Reason: err.Error()}
		}
		return Header{}, err
	}
	h := Header{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Type: MessageType(buf[4]),
		URI:  decodeURI(buf[5 : 5+uriMaxLen]),
	}
	return h, nil
}

func decodeURI(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
