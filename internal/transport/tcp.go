package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/wire"
)

// TCPTransport is the default Transport, grounded on a plain TCP dial with
// keepalive on and Nagle's algorithm disabled, matching the low-latency
// socket options the reference protocol always sets.
type TCPTransport struct {
	log *zap.Logger

	conn   *net.TCPConn
	reader *bufio.Reader

	sendMu sync.Mutex
	closed chan struct{}
	once   sync.Once
}

// NewTCPTransport returns an unconnected TCPTransport. Call Connect before
// using it.
func NewTCPTransport(log *zap.Logger) *TCPTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &TCPTransport{log: log, closed: make(chan struct{})}
}

func (t *TCPTransport) Connect(ctx context.Context, host string, port int) (int32, error) {
	dialer := net.Dialer{}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return 0, fmt.Errorf("%w: dialed connection is not TCP", ErrConnectFailed)
	}
	_ = tcpConn.SetKeepAlive(true)
	_ = tcpConn.SetNoDelay(true)

	t.conn = tcpConn
	t.reader = bufio.NewReaderSize(tcpConn, 64*1024)

	version, err := t.receiveProtocolVersion()
	if err != nil {
		tcpConn.Close()
		return 0, err
	}
	if version < RequiredVersion {
		tcpConn.Close()
		return version, &ProtocolTooOldError{Server: version, Required: RequiredVersion}
	}
	t.log.Debug("transport connected", zap.String("addr", addr), zap.Int32("server_version", version))
	return version, nil
}

func (t *TCPTransport) receiveProtocolVersion() (int32, error) {
	if err := t.conn.SetReadDeadline(deadlineFromNow(ProgressTimeout)); err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(t.reader, buf[:]); err != nil {
		if isTimeout(err) {
			return 0, ErrHandshakeTimeout
		}
		return 0, fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (t *TCPTransport) Send(header wire.Header, payload []byte, flush FlushPolicy) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	if err := t.conn.SetWriteDeadline(deadlineFromNow(ProgressTimeout)); err != nil {
		return err
	}
	header.Size = uint32(len(payload))
	if err := wire.EncodeHeader(t.conn, header); err != nil {
		return t.writeErr(err)
	}
	if len(payload) > 0 {
		if _, err := t.writeAll(payload); err != nil {
			return t.writeErr(err)
		}
	}
	if flush == WaitFlushed {
		// TCP offers no portable "flush to wire" hook beyond Write
		// returning; SetNoDelay already disables buffering delay.
	}
	return nil
}

// writeAll retries partial writes until all bytes are delivered or the
// connection drops, mirroring the reference socket's write-retry loop.
func (t *TCPTransport) writeAll(b []byte) (int, error) {
	sent := 0
	for sent < len(b) {
		n, err := t.conn.Write(b[sent:])
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (t *TCPTransport) writeErr(err error) error {
	if isTimeout(err) {
		return ErrWriteTimeout
	}
	t.forceClose()
	return ErrTransportClosed
}

func (t *TCPTransport) Receive() (wire.Header, []byte, error) {
	if err := t.conn.SetReadDeadline(deadlineFromNow(ProgressTimeout)); err != nil {
		return wire.Header{}, nil, err
	}
	header, err := wire.DecodeHeader(t.reader)
	if err != nil {
		return wire.Header{}, nil, t.readErr(err)
	}
	if header.Size == 0 {
		return header, nil, nil
	}
	if err := t.conn.SetReadDeadline(deadlineFromNow(ProgressTimeout)); err != nil {
		return wire.Header{}, nil, err
	}
	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(t.reader, payload); err != nil {
		return wire.Header{}, nil, t.readErr(err)
	}
	return header, payload, nil
}

func (t *TCPTransport) readErr(err error) error {
	if isTimeout(err) {
		return ErrReadTimeout
	}
	t.forceClose()
	return ErrTransportClosed
}

func (t *TCPTransport) HasMessage(minPayload int) bool {
	if t.reader == nil {
		return false
	}
	return t.reader.Buffered() >= wire.HeaderSize+minPayload
}

func (t *TCPTransport) Close() error {
	t.forceClose()
	return nil
}

func (t *TCPTransport) forceClose() {
	t.once.Do(func() {
		close(t.closed)
		if t.conn != nil {
			_ = t.conn.Close()
		}
	})
}
