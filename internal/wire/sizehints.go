package wire

import (
	"encoding/binary"
	"io"
)

// SizeHintsSize is the fixed on-wire size of a SIZE_HINTS payload.
const SizeHintsSize = 4 * 6

// SizeHintsParams is the wire-level layout of a SIZE_HINTS payload.
type SizeHintsParams struct {
	PreferredWidth, PreferredHeight uint32
	MaxWidth, MaxHeight             uint32
	MinWidth, MinHeight             uint32
}

// EncodeSizeHints writes h in the canonical little-endian layout.
func EncodeSizeHints(w io.Writer, h SizeHintsParams) error {
	var buf [SizeHintsSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.PreferredWidth)
	binary.LittleEndian.PutUint32(buf[4:8], h.PreferredHeight)
	binary.LittleEndian.PutUint32(buf[8:12], h.MaxWidth)
	binary.LittleEndian.PutUint32(buf[12:16], h.MaxHeight)
	binary.LittleEndian.PutUint32(buf[16:20], h.MinWidth)
	binary.LittleEndian.PutUint32(buf[20:24], h.MinHeight)
	_, err := w.Write(buf[:])
	return err
}

// DecodeSizeHints reads a SIZE_HINTS payload from r.
func DecodeSizeHints(r io.Reader) (SizeHintsParams, error) {
	var buf [SizeHintsSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return SizeHintsParams{}, &MalformedPayloadError{Reason: err.Error()}
	}
	return SizeHintsParams{
		PreferredWidth:  binary.LittleEndian.Uint32(buf[0:4]),
		PreferredHeight: binary.LittleEndian.Uint32(buf[4:8]),
		MaxWidth:        binary.LittleEndian.Uint32(buf[8:12]),
		MaxHeight:       binary.LittleEndian.Uint32(buf[12:16]),
		MinWidth:        binary.LittleEndian.Uint32(buf[16:20]),
		MinHeight:       binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}
