// Package wallstub is a minimal protocol-conformance test double: it
// speaks the server half of the wire protocol just well enough to drive
// integration tests and the cmd/wallstub demo receiver. It implements no
// compositing, tiling, or display policy — that is the wall server's job,
// an external collaborator not specified here.
package wallstub

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/internal/wire"
)

// Segment is one received PIXELSTREAM payload, decoded.
type Segment struct {
	Params wire.SegmentParams
	Data   []byte
}

// Frame is every Segment received between PIXELSTREAM_OPEN/the previous
// FINISH_FRAME and the next FINISH_FRAME.
type Frame struct {
	Segments []Segment
}

// Server accepts connections, performs the handshake, and records every
// frame and control message it receives so a test can assert on them. It
// auto-acknowledges every finished frame and auto-accepts every event
// registration, mirroring original_source/apps/SimpleReceiver/main.cpp's
// open→ack→request-next loop.
type Server struct {
	log     *zap.Logger
	version int32

	ln net.Listener

	mu     sync.Mutex
	frames map[string][]Frame // by stream URI
	closed bool
}

// New returns a Server reporting protocolVersion during the handshake.
func New(log *zap.Logger, protocolVersion int32) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:     log,
		version: protocolVersion,
		frames:  make(map[string][]Frame),
	}
}

// Listen binds addr ("host:port", port 0 for an ephemeral port) and
// returns the bound address.
func (s *Server) Listen(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.ln = ln
	return ln.Addr().String(), nil
}

// Serve accepts connections until ctx is done or the listener closes.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := uuid.New().String()
	log := s.log.With(zap.String("conn_id", id))
	defer conn.Close()

	if err := writeProtocolVersion(conn, s.version); err != nil {
		log.Warn("failed to write protocol version", zap.Error(err))
		return
	}

	var current Frame
	var currentURI string

	for {
		header, payload, err := readMessage(conn)
		if err != nil {
			return
		}

		switch header.Type {
		case wire.Quit:
			return
		case wire.PixelstreamOpen:
			currentURI = header.URI
			current = Frame{}
		case wire.Pixelstream:
			params, data, err := decodeSegmentPayload(payload)
			if err != nil {
				log.Warn("malformed segment payload", zap.Error(err))
				continue
			}
			current.Segments = append(current.Segments, Segment{Params: params, Data: data})
		case wire.PixelstreamFinishFrame:
			s.mu.Lock()
			s.frames[currentURI] = append(s.frames[currentURI], current)
			s.mu.Unlock()
			current = Frame{}
			if err := sendHeader(conn, wire.Header{Type: wire.FrameAck, URI: currentURI}); err != nil {
				return
			}
		case wire.BindEvents:
			if err := sendHeader(conn, wire.Header{Type: wire.BindEventsReply, URI: header.URI}, 1); err != nil {
				return
			}
		case wire.PixelstreamClose:
			return
		default:
			// Unknown or out-of-scope message (OBSERVER_OPEN, SIZE_HINTS):
			// acknowledged implicitly by doing nothing, framing stays aligned.
		}
	}
}

// Frames returns every frame received for uri so far.
func (s *Server) Frames(uri string) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.frames[uri]...)
}

// Close tears down the listener. Idempotent.
//
// Pushing an EVENT to a connected client is deliberately out of scope
// here: tests that need S4's event round trip dial a raw net.Conn and
// write the EVENT message directly, since this stub's job is to validate
// what a client sends, not to simulate arbitrary server behavior beyond
// the open/ack loop.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func writeProtocolVersion(conn net.Conn, version int32) error {
	_ = conn.SetWriteDeadline(time.Now().Add(transport.ProgressTimeout))
	var buf [4]byte
	putLittleEndianInt32(buf[:], version)
	_, err := conn.Write(buf[:])
	return err
}

func putLittleEndianInt32(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func readMessage(conn net.Conn) (wire.Header, []byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(transport.ProgressTimeout))
	header, err := wire.DecodeHeader(conn)
	if err != nil {
		return wire.Header{}, nil, err
	}
	if header.Size == 0 {
		return header, nil, nil
	}
	payload := make([]byte, header.Size)
	if _, err := readFull(conn, payload); err != nil {
		return wire.Header{}, nil, err
	}
	return header, payload, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func sendHeader(conn net.Conn, h wire.Header, payload ...byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(transport.ProgressTimeout))
	h.Size = uint32(len(payload))
	if err := wire.EncodeHeader(conn, h); err != nil {
		return err
	}
	if len(payload) > 0 {
		_, err := conn.Write(payload)
		return err
	}
	return nil
}

func decodeSegmentPayload(payload []byte) (wire.SegmentParams, []byte, error) {
	return wire.DecodeSegment(bytes.NewReader(payload))
}
