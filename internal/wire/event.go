package wire

import (
	"encoding/binary"
	"io"
	"math"
)

// EventSize is the fixed on-wire size of an Event payload.
const EventSize = 4 + 8*4 + 4 + 32

const eventTextLen = 32

// EventRecord is the wire-level layout of an EVENT payload. The Type field
// carries the domain event kind as a raw uint32; the client package owns
// its meaning.
type EventRecord struct {
	Type                 uint32
	MouseX, MouseY       float64
	DX, DY               float64
	Modifiers            uint32
	Text                 string
}

// EncodeEvent writes e in the canonical little-endian layout.
func EncodeEvent(w io.Writer, e EventRecord) error {
	var buf [EventSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.Type)
	binary.LittleEndian.PutUint64(buf[4:12], math.Float64bits(e.MouseX))
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(e.MouseY))
	binary.LittleEndian.PutUint64(buf[20:28], math.Float64bits(e.DX))
	binary.LittleEndian.PutUint64(buf[28:36], math.Float64bits(e.DY))
	binary.LittleEndian.PutUint32(buf[36:40], e.Modifiers)
	if len(e.Text) > eventTextLen {
		e.Text = e.Text[:eventTextLen]
	}
	copy(buf[40:40+eventTextLen], e.Text)
	_, err := w.Write(buf[:])
	return err
}

// DecodeEvent reads an EVENT payload from r.
func DecodeEvent(r io.Reader) (EventRecord, error) {
	var buf [EventSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return EventRecord{}, &MalformedPayloadError{Reason: err.Error()}
	}
	e := EventRecord{
		Type:      binary.LittleEndian.Uint32(buf[0:4]),
		MouseX:    math.Float64frombits(binary.LittleEndian.Uint64(buf[4:12])),
		MouseY:    math.Float64frombits(binary.LittleEndian.Uint64(buf[12:20])),
		DX:        math.Float64frombits(binary.LittleEndian.Uint64(buf[20:28])),
		DY:        math.Float64frombits(binary.LittleEndian.Uint64(buf[28:36])),
		Modifiers: binary.LittleEndian.Uint32(buf[36:40]),
		Text:      decodeURI(buf[40 : 40+eventTextLen]),
	}
	return e, nil
}
