// Package transport implements the framed, handshaking byte-channel
// contract that the client streaming pipeline sends and receives over.
package transport

import (
	"context"
	"time"

	"github.com/wallstream/pixelstream/internal/wire"
)

// RequiredVersion is the minimum server protocol version this client
// accepts. A server reporting anything lower fails the handshake.
const RequiredVersion int32 = 15

// ProgressTimeout bounds every blocking read/write operation: the
// operation must make progress within this window or it fails.
const ProgressTimeout = 5 * time.Second

// FlushPolicy controls whether Send waits for the payload to leave the
// local socket buffer before returning.
type FlushPolicy int

const (
	Async FlushPolicy = iota
	WaitFlushed
)

// Transport is a reliable, ordered, full-duplex byte channel with
// MessageHeader-based framing and a version handshake performed at
// Connect time. Implementations serialize concurrent senders internally;
// Receive is meant to be called from a single goroutine.
type Transport interface {
	// Connect dials host:port and performs the protocol handshake,
	// returning the server's reported protocol version.
	Connect(ctx context.Context, host string, port int) (serverVersion int32, err error)
	// Send writes header followed by payload atomically with respect to
	// other callers of Send.
	Send(header wire.Header, payload []byte, flush FlushPolicy) error
	// Receive blocks for the next full message.
	Receive() (wire.Header, []byte, error)
	// HasMessage reports whether at least header+minPayload bytes are
	// already available without blocking.
	HasMessage(minPayload int) bool
	// Close tears down the channel. Idempotent.
	Close() error
}
