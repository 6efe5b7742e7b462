package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectFailed reports that the byte channel could not be opened.
	ErrConnectFailed = errors.New("transport: connect failed")
	// ErrHandshakeTimeout reports that the server did not send its
	// protocol version within the progress timeout.
	ErrHandshakeTimeout = errors.New("transport: handshake timeout")
	// ErrTransportClosed reports that the peer closed the channel or an
	// unrecoverable I/O error occurred.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrReadTimeout reports that a read made no progress within its
	// deadline.
	ErrReadTimeout = errors.New("transport: read timeout")
	// ErrWriteTimeout reports that a write made no progress within its
	// deadline.
	ErrWriteTimeout = errors.New("transport: write timeout")
)

// ProtocolTooOldError reports that the server's protocol version is below
// what this client requires.
type ProtocolTooOldError struct {
	Server   int32
	Required int32
}

func (e *ProtocolTooOldError) Error() string {
	return fmt.Sprintf("transport: server protocol version %d is older than required %d", e.Server, e.Required)
}

// UnknownMessageTypeError reports a message type this client does not
// recognize. It is non-fatal: the codec has already skipped the payload
// and the stream remains aligned.
type UnknownMessageTypeError struct {
	Type byte
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("transport: unknown message type %d", e.Type)
}
