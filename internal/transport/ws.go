package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/wire"
)

const wsPingInterval = 30 * time.Second

// wsReadWriter adapts a *websocket.Conn's binary message stream to the
// plain io.ReadWriter the header+payload framing expects, so the same
// MessageHeader codec works unchanged over either transport.
type wsReadWriter struct {
	conn    *websocket.Conn
	pending []byte
}

func (rw *wsReadWriter) Read(p []byte) (int, error) {
	for len(rw.pending) == 0 {
		mt, data, err := rw.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		rw.pending = data
	}
	n := copy(p, rw.pending)
	rw.pending = rw.pending[n:]
	return n, nil
}

func (rw *wsReadWriter) Write(p []byte) (int, error) {
	if err := rw.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WSTransport carries the identical header+payload framing over a
// gorilla/websocket binary-message connection, letting a browser-hosted
// debug viewer speak the same wire protocol without raw sockets.
type WSTransport struct {
	log *zap.Logger

	conn   *websocket.Conn
	rw     *wsReadWriter
	reader *bufio.Reader

	sendMu sync.Mutex
	closed chan struct{}
	once   sync.Once

	pingStop chan struct{}
}

// NewWSTransport returns an unconnected WSTransport. Call Connect before
// using it.
func NewWSTransport(log *zap.Logger) *WSTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSTransport{log: log, closed: make(chan struct{})}
}

func (t *WSTransport) Connect(ctx context.Context, host string, port int) (int32, error) {
	url := fmt.Sprintf("ws://%s:%d/pixelstream", host, port)
	dialer := websocket.Dialer{HandshakeTimeout: ProgressTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	t.conn = conn
	t.rw = &wsReadWriter{conn: conn}
	t.reader = bufio.NewReaderSize(t.rw, 64*1024)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ProgressTimeout))
	})

	version, err := t.receiveProtocolVersion()
	if err != nil {
		conn.Close()
		return 0, err
	}
	if version < RequiredVersion {
		conn.Close()
		return version, &ProtocolTooOldError{Server: version, Required: RequiredVersion}
	}

	t.pingStop = make(chan struct{})
	go t.pingLoop()

	t.log.Debug("ws transport connected", zap.String("url", url), zap.Int32("server_version", version))
	return version, nil
}

func (t *WSTransport) pingLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ProgressTimeout))
		case <-t.pingStop:
			return
		}
	}
}

func (t *WSTransport) receiveProtocolVersion() (int32, error) {
	if err := t.conn.SetReadDeadline(deadlineFromNow(ProgressTimeout)); err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(t.reader, buf[:]); err != nil {
		return 0, ErrHandshakeTimeout
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (t *WSTransport) Send(header wire.Header, payload []byte, flush FlushPolicy) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	_ = t.conn.SetWriteDeadline(deadlineFromNow(ProgressTimeout))
	header.Size = uint32(len(payload))
	buf := make([]byte, 0, wire.HeaderSize+len(payload))
	var hdrBuf headerBuffer
	if err := wire.EncodeHeader(&hdrBuf, header); err != nil {
		return err
	}
	buf = append(buf, hdrBuf.bytes()...)
	buf = append(buf, payload...)
	if _, err := t.rw.Write(buf); err != nil {
		if isTimeout(err) {
			return ErrWriteTimeout
		}
		t.forceClose()
		return ErrTransportClosed
	}
	return nil
}

func (t *WSTransport) Receive() (wire.Header, []byte, error) {
	_ = t.conn.SetReadDeadline(deadlineFromNow(ProgressTimeout))
	header, err := wire.DecodeHeader(t.reader)
	if err != nil {
		return wire.Header{}, nil, t.readErr(err)
	}
	if header.Size == 0 {
		return header, nil, nil
	}
	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(t.reader, payload); err != nil {
		return wire.Header{}, nil, t.readErr(err)
	}
	return header, payload, nil
}

func (t *WSTransport) readErr(err error) error {
	if isTimeout(err) {
		return ErrReadTimeout
	}
	t.forceClose()
	return ErrTransportClosed
}

func (t *WSTransport) HasMessage(minPayload int) bool {
	if t.reader == nil {
		return false
	}
	return t.reader.Buffered() >= wire.HeaderSize+minPayload
}

func (t *WSTransport) Close() error {
	t.forceClose()
	return nil
}

func (t *WSTransport) forceClose() {
	t.once.Do(func() {
		close(t.closed)
		if t.pingStop != nil {
			close(t.pingStop)
		}
		if t.conn != nil {
			_ = t.conn.Close()
		}
	})
}

// headerBuffer is a tiny io.Writer sink used to encode a header into a
// byte slice before framing it into a single websocket binary message.
type headerBuffer struct {
	buf [wire.HeaderSize]byte
	n   int
}

func (h *headerBuffer) Write(p []byte) (int, error) {
	n := copy(h.buf[h.n:], p)
	h.n += n
	return n, nil
}

func (h *headerBuffer) bytes() []byte { return h.buf[:h.n] }
