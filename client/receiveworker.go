package client

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/internal/wire"
)

// runReceiveWorker reads and dispatches every message the server sends,
// until Receive fails or the server sends QUIT. Any Receive error,
// including a read timeout, terminates the stream.
func (s *Stream) runReceiveWorker() {
	for {
		header, payload, err := s.tr.Receive()
		if err != nil {
			s.terminate(err)
			return
		}

		switch header.Type {
		case wire.FrameAck:
			s.resolveOldestAck()
		case wire.Event:
			s.handleEvent(payload)
		case wire.BindEventsReply:
			s.handleBindReply(payload)
		case wire.Quit:
			s.terminate(nil)
			return
		default:
			if !header.Type.Known() {
				err := &transport.UnknownMessageTypeError{Type: byte(header.Type)}
				s.log.Debug("skipping unknown message type", zap.Error(err))
			}
		}
	}
}

func (s *Stream) resolveOldestAck() {
	s.mu.Lock()
	var ack *FrameAck
	if len(s.pendingAcks) > 0 {
		ack = s.pendingAcks[0]
		s.pendingAcks = s.pendingAcks[1:]
	}
	s.mu.Unlock()
	if ack != nil {
		ack.resolve(nil)
		if s.metrics != nil {
			s.metrics.FramesSent.Inc()
		}
	}
}

func (s *Stream) handleEvent(payload []byte) {
	rec, err := wire.DecodeEvent(bytes.NewReader(payload))
	if err != nil {
		s.log.Warn("malformed event payload", zap.Error(err))
		return
	}
	dropped := s.events.push(eventFromWire(rec))
	if s.metrics != nil {
		s.metrics.EventQueueDepth.Set(float64(s.events.length()))
		if dropped {
			s.metrics.EventsDropped.Inc()
		}
	}
}

func (s *Stream) handleBindReply(payload []byte) {
	success := len(payload) > 0 && payload[0] != 0
	s.bindMu.Lock()
	reply := s.pendingBind
	s.pendingBind = nil
	s.bindMu.Unlock()
	if reply != nil {
		reply <- success
	}
}
