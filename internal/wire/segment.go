package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SegmentParamsSize is the fixed size of a Segment's parameter record,
// excluding the trailing data bytes.
const SegmentParamsSize = 4*5 + 4

// SegmentParams is the wire-level parameter record of a Segment. RowOrder
// and Format carry the domain enums as raw bytes; the image package owns
// their meaning.
type SegmentParams struct {
	X, Y, Width, Height uint32
	DataSize            uint32
	RowOrder            uint8
	Compressed          uint8
	Format              uint8
	padding             uint8
}

// MalformedPayloadError reports that a segment or event payload could not
// be decoded from the wire.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("wire: malformed payload: %s", e.Reason)
}

// EncodeSegment writes the parameter record followed by data.
func EncodeSegment(w io.Writer, p SegmentParams, data []byte) error {
	p.DataSize = uint32(len(data))
	var buf [SegmentParamsSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], p.X)
	binary.LittleEndian.PutUint32(buf[4:8], p.Y)
	binary.LittleEndian.PutUint32(buf[8:12], p.Width)
	binary.LittleEndian.PutUint32(buf[12:16], p.Height)
	binary.LittleEndian.PutUint32(buf[16:20], p.DataSize)
	buf[20] = p.RowOrder
	buf[21] = p.Compressed
	buf[22] = p.Format
	buf[23] = 0
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// DecodeSegment reads a parameter record and its trailing data from r.
func DecodeSegment(r io.Reader) (SegmentParams, []byte, error) {
	var buf [SegmentParamsSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return SegmentParams{}, nil, &MalformedPayloadError{Reason: err.Error()}
	}
	p := SegmentParams{
		X:          binary.LittleEndian.Uint32(buf[0:4]),
		Y:          binary.LittleEndian.Uint32(buf[4:8]),
		Width:      binary.LittleEndian.Uint32(buf[8:12]),
		Height:     binary.LittleEndian.Uint32(buf[12:16]),
		DataSize:   binary.LittleEndian.Uint32(buf[16:20]),
		RowOrder:   buf[20],
		Compressed: buf[21],
		Format:     buf[22],
	}
	if p.DataSize == 0 {
		return p, nil, nil
	}
	data := make([]byte, p.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return SegmentParams{}, nil, &MalformedPayloadError{Reason: err.Error()}
	}
	return p, data, nil
}
