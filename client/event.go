package client

import "github.com/wallstream/pixelstream/internal/wire"

// EventKind enumerates the user-interaction events the server can deliver.
type EventKind uint32

const (
	Close EventKind = iota
	Press
	Release
	DoubleClick
	Move
	Click
	Wheel
	SwipeLeft
	SwipeRight
	SwipeUp
	SwipeDown
	KeyPress
	KeyRelease
	ViewSizeChanged
)

// Event is one user-interaction notification delivered by the server.
// Mouse coordinates are normalized to [0,1] relative to the stream's
// surface; DX/DY carry wheel/swipe deltas where applicable.
type Event struct {
	Kind      EventKind
	X, Y      float64
	DX, DY    float64
	Modifiers uint32
	Text      string
}

func eventFromWire(r wire.EventRecord) Event {
	return Event{
		Kind:      EventKind(r.Type),
		X:         r.MouseX,
		Y:         r.MouseY,
		DX:        r.DX,
		DY:        r.DY,
		Modifiers: r.Modifiers,
		Text:      r.Text,
	}
}
