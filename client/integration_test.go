package client

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/internal/wire"
)

// rawServer is a hand-rolled server half of the wire protocol used where
// a scenario needs to push an unsolicited message (EVENT, QUIT) or lie
// about the protocol version — control a simple auto-ack stub doesn't
// give. Server-side failures are reported over done rather than via t,
// since they run on a goroutine the testing package doesn't track.
type rawServer struct {
	ln   net.Listener
	done chan error
}

func startRawServer(t *testing.T) *rawServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	rs := &rawServer{ln: ln, done: make(chan error, 1)}
	t.Cleanup(func() { ln.Close() })
	return rs
}

func (rs *rawServer) hostPort() (string, int) {
	addr := rs.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (rs *rawServer) run(fn func(conn net.Conn) error) {
	go func() {
		conn, err := rs.ln.Accept()
		if err != nil {
			rs.done <- err
			return
		}
		defer conn.Close()
		rs.done <- fn(conn)
	}()
}

func (rs *rawServer) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-rs.done:
		if err != nil {
			t.Fatalf("raw server: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("raw server: timed out")
	}
}

func writeVersion(conn net.Conn, version int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(version))
	_, err := conn.Write(buf[:])
	return err
}

func readHeaderAndPayload(conn net.Conn) (wire.Header, []byte, error) {
	h, err := wire.DecodeHeader(conn)
	if err != nil {
		return wire.Header{}, nil, err
	}
	if h.Size == 0 {
		return h, nil, nil
	}
	payload := make([]byte, h.Size)
	n := 0
	for n < len(payload) {
		m, err := conn.Read(payload[n:])
		n += m
		if err != nil {
			return wire.Header{}, nil, err
		}
	}
	return h, payload, nil
}

func writeMessage(conn net.Conn, h wire.Header, payload []byte) error {
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

// S4 event round trip: the server accepts BIND_EVENTS then pushes an
// unsolicited EVENT; GetEvent must surface the same values.
func TestEventRoundTripOverRealTransport(t *testing.T) {
	rs := startRawServer(t)
	host, port := rs.hostPort()

	rs.run(func(conn net.Conn) error {
		if err := writeVersion(conn, transport.RequiredVersion); err != nil {
			return err
		}
		if _, _, err := readHeaderAndPayload(conn); err != nil { // PIXELSTREAM_OPEN
			return err
		}
		h, _, err := readHeaderAndPayload(conn)
		if err != nil {
			return err
		}
		if h.Type != wire.BindEvents {
			return fmt.Errorf("expected BIND_EVENTS, got %v", h.Type)
		}
		if err := writeMessage(conn, wire.Header{Type: wire.BindEventsReply, URI: h.URI}, []byte{1}); err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := wire.EncodeEvent(&buf, wire.EventRecord{Type: uint32(Press), MouseX: 0.5, MouseY: 0.25}); err != nil {
			return err
		}
		if err := writeMessage(conn, wire.Header{Type: wire.Event, URI: h.URI}, buf.Bytes()); err != nil {
			return err
		}

		for {
			if _, err := wire.DecodeHeader(conn); err != nil {
				return nil
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := Open(ctx, "t4", host, port, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.RegisterForEvents(true); err != nil {
		t.Fatalf("RegisterForEvents: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !s.HasEvent() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ev, ok := s.GetEvent()
	if !ok {
		t.Fatal("expected a queued event")
	}
	if ev.Kind != Press || ev.X != 0.5 || ev.Y != 0.25 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	s.Close()
	rs.wait(t)
}

// S5 server QUIT mid-stream: pending tokens/acks fail and subsequent
// Send returns ErrStreamClosed.
func TestServerQuitMidStreamFailsPendingAck(t *testing.T) {
	rs := startRawServer(t)
	host, port := rs.hostPort()

	rs.run(func(conn net.Conn) error {
		if err := writeVersion(conn, transport.RequiredVersion); err != nil {
			return err
		}
		if _, _, err := readHeaderAndPayload(conn); err != nil { // PIXELSTREAM_OPEN
			return err
		}
		h, _, err := readHeaderAndPayload(conn)
		if err != nil {
			return err
		}
		if h.Type != wire.Pixelstream {
			return fmt.Errorf("expected PIXELSTREAM, got %v", h.Type)
		}
		h2, _, err := readHeaderAndPayload(conn)
		if err != nil {
			return err
		}
		if h2.Type != wire.PixelstreamFinishFrame {
			return fmt.Errorf("expected PIXELSTREAM_FINISH_FRAME, got %v", h2.Type)
		}
		// Never ACKs: instead, quits mid-stream.
		return writeMessage(conn, wire.Header{Type: wire.Quit}, nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := Open(ctx, "t5", host, port, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	token, err := s.Send(solidSource(16, 16))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := token.Wait(); err != nil {
		t.Fatalf("token.Wait: %v", err)
	}
	ack, err := s.FinishFrame()
	if err != nil {
		t.Fatalf("FinishFrame: %v", err)
	}

	if err := ack.Wait(); err == nil {
		t.Fatal("expected ack to fail after server QUIT")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := s.Send(solidSource(16, 16)); err == ErrStreamClosed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Send after server QUIT never returned ErrStreamClosed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rs.wait(t)
}

// S6 protocol mismatch, exercised through the public Open entry point
// rather than the transport layer directly.
func TestOpenRejectsOldProtocolVersion(t *testing.T) {
	rs := startRawServer(t)
	host, port := rs.hostPort()

	rs.run(func(conn net.Conn) error {
		if err := writeVersion(conn, 0); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, "t6", host, port, nil)
	var tooOld *transport.ProtocolTooOldError
	if err == nil {
		t.Fatal("expected Open to fail")
	}
	if !errors.As(err, &tooOld) {
		t.Fatalf("expected *transport.ProtocolTooOldError, got %v", err)
	}
	if tooOld.Server != 0 || tooOld.Required != transport.RequiredVersion {
		t.Fatalf("unexpected fields: %+v", tooOld)
	}

	rs.wait(t)
}
