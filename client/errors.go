package client

import "errors"

var (
	// ErrFrameOverlap is returned by Send when a prior frame has not yet
	// been closed with FinishFrame.
	ErrFrameOverlap = errors.New("client: frame already in flight")
	// ErrStreamClosed is returned by any operation issued after Close.
	ErrStreamClosed = errors.New("client: stream closed")
	// ErrNoFrameOpen is returned by FinishFrame when no Send has opened a
	// frame yet.
	ErrNoFrameOpen = errors.New("client: no frame open")
)
