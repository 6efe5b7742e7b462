package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/compress"
	pximage "github.com/wallstream/pixelstream/internal/image"
	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/internal/wire"
)

// fakeTransport is an in-memory transport.Transport used to unit test
// Stream invariants without a real socket. Sent messages are recorded in
// order; Receive drains a caller-fed inbox.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMsg
	inbox   chan inboxMsg
	closed  bool
	sendGate chan struct{} // when non-nil, Send blocks until signaled
}

type sentMsg struct {
	header  wire.Header
	payload []byte
}

type inboxMsg struct {
	header  wire.Header
	payload []byte
	err     error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan inboxMsg, 256)}
}

func (f *fakeTransport) Connect(ctx context.Context, host string, port int) (int32, error) {
	return transport.RequiredVersion, nil
}

func (f *fakeTransport) Send(header wire.Header, payload []byte, flush transport.FlushPolicy) error {
	if f.sendGate != nil {
		<-f.sendGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return transport.ErrTransportClosed
	}
	cp := append([]byte(nil), payload...)
	f.sent = append(f.sent, sentMsg{header: header, payload: cp})
	return nil
}

func (f *fakeTransport) Receive() (wire.Header, []byte, error) {
	m, ok := <-f.inbox
	if !ok {
		return wire.Header{}, nil, transport.ErrTransportClosed
	}
	return m.header, m.payload, m.err
}

func (f *fakeTransport) HasMessage(minPayload int) bool { return len(f.inbox) > 0 }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbox)
	}
	return nil
}

func (f *fakeTransport) sentMessages() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

func (f *fakeTransport) deliver(m inboxMsg) {
	f.inbox <- m
}

func newTestStream() (*Stream, *fakeTransport) {
	ft := newFakeTransport()
	s := &Stream{
		id:           "t1",
		opts:         (&Options{}).withDefaults(),
		log:          zap.NewNop(),
		tr:           ft,
		segmenter:    pximage.NewSegmenter(512, 512),
		compressPool: compress.NewPool(1),
		sendCh:       make(chan sendJob, 64),
		events:       newEventQueue(1024),
		closed:       make(chan struct{}),
	}
	go s.runSendWorker()
	go s.runReceiveWorker()
	return s, ft
}
