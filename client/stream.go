// Package client is the public streaming pipeline: Stream opens a named
// session to a wall server, segments and optionally compresses frames,
// and exposes the bi-directional event channel.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/compress"
	pximage "github.com/wallstream/pixelstream/internal/image"
	"github.com/wallstream/pixelstream/internal/observe"
	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/internal/wire"
)

type sendJob struct {
	header  wire.Header
	payload []byte
	token   *FrameToken
}

// Stream is the public client-side handle to one named pixel-streaming
// session. External callers must serialize their Send/FinishFrame calls;
// the background SendWorker and ReceiveWorker goroutines serve it
// internally.
type Stream struct {
	id      string
	opts    *Options
	log     *zap.Logger
	metrics *observe.Metrics

	tr transport.Transport

	segmenter    *pximage.Segmenter
	compressPool *compress.Pool

	sendCh chan sendJob

	mu          sync.Mutex
	frameOpen   bool
	pendingAcks []*FrameAck

	bindMu      sync.Mutex
	pendingBind chan bool

	events *eventQueue

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Open dials host:port, performs the protocol handshake, and returns a
// live Stream identified by id. An empty id is replaced by a generated
// UUID. opts may be nil to accept every default.
func Open(ctx context.Context, id, host string, port int, opts *Options) (*Stream, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.withDefaults()

	var tr transport.Transport
	if opts.UseWebSocket {
		tr = transport.NewWSTransport(opts.Logger)
	} else {
		tr = transport.NewTCPTransport(opts.Logger)
	}

	s := &Stream{
		id:           id,
		opts:         opts,
		log:          opts.Logger.With(zap.String("stream_id", id)),
		tr:           tr,
		segmenter:    pximage.NewSegmenter(opts.NominalSegmentWidth, opts.NominalSegmentHeight),
		sendCh:       make(chan sendJob, opts.SendQueueDepth),
		events:       newEventQueue(opts.EventQueueDepth),
		closed:       make(chan struct{}),
	}
	s.metrics = observe.New(opts.MetricsRegistry)
	if opts.CompressorPool != nil {
		s.compressPool = opts.CompressorPool
	} else {
		s.compressPool = compress.NewPool(opts.CompressorWorkers)
	}

	serverVersion, err := tr.Connect(ctx, host, port)
	if err != nil {
		s.log.Warn("handshake failed", zap.Error(err))
		return nil, err
	}
	s.log.Debug("handshake complete", zap.Int32("server_version", serverVersion))

	go s.runSendWorker()
	go s.runReceiveWorker()

	if err := s.sendControl(wire.PixelstreamOpen, nil); err != nil {
		s.terminate(err)
		return nil, err
	}

	return s, nil
}

func (s *Stream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Stream) sendControl(t wire.MessageType, payload []byte) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	select {
	case s.sendCh <- sendJob{header: wire.Header{Type: t, URI: s.id}, payload: payload}:
		return nil
	case <-s.closed:
		return ErrStreamClosed
	}
}

// Send segments (and, if img.CompressionPolicy is set, JPEG-compresses)
// img, enqueues the resulting segments, and opens a frame. The returned
// FrameToken resolves once every segment has been written to the
// transport, or failed.
func (s *Stream) Send(img pximage.Source) (*FrameToken, error) {
	if s.isClosed() {
		return nil, ErrStreamClosed
	}

	s.mu.Lock()
	if s.frameOpen {
		s.mu.Unlock()
		return nil, ErrFrameOverlap
	}
	s.frameOpen = true
	s.mu.Unlock()

	var segs []pximage.Segment
	genErr := s.segmenter.Generate(img, func(seg pximage.Segment) bool {
		segs = append(segs, seg)
		return true
	})
	if genErr != nil {
		s.mu.Lock()
		s.frameOpen = false
		s.mu.Unlock()
		return nil, genErr
	}

	if img.CompressionPolicy {
		start := time.Now()
		compressed, err := s.compressPool.CompressFrame(segs, img.CompressionQuality, img.Subsampling)
		if s.metrics != nil {
			s.metrics.CompressionDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			s.mu.Lock()
			s.frameOpen = false
			s.mu.Unlock()
			return nil, err
		}
		segs = compressed
		if s.metrics != nil {
			for range segs {
				s.metrics.SegmentsCompressed.Inc()
			}
		}
	}

	token := newFrameToken()
	for i, seg := range segs {
		payload, err := encodeSegmentPayload(seg)
		if err != nil {
			token.resolve(err)
			return token, err
		}
		job := sendJob{header: wire.Header{Type: wire.Pixelstream, URI: s.id}, payload: payload}
		if i == len(segs)-1 {
			job.token = token
		}
		select {
		case s.sendCh <- job:
		case <-s.closed:
			token.resolve(ErrStreamClosed)
			return token, ErrStreamClosed
		}
		if s.metrics != nil {
			s.metrics.SendQueueDepth.Set(float64(len(s.sendCh)))
		}
	}
	if len(segs) == 0 {
		token.resolve(nil)
	}
	return token, nil
}

// FinishFrame submits the frame-finished control message and returns a
// FrameAck that resolves once the server acknowledges the frame.
func (s *Stream) FinishFrame() (*FrameAck, error) {
	if s.isClosed() {
		return nil, ErrStreamClosed
	}
	s.mu.Lock()
	if !s.frameOpen {
		s.mu.Unlock()
		return nil, ErrNoFrameOpen
	}
	s.frameOpen = false
	ack := newFrameAck()
	s.pendingAcks = append(s.pendingAcks, ack)
	s.mu.Unlock()

	if err := s.sendControl(wire.PixelstreamFinishFrame, nil); err != nil {
		ack.resolve(err)
		return ack, err
	}
	return ack, nil
}

// SendAndFinish is Send followed by FinishFrame, waiting for the frame to
// be fully written before finishing it.
func (s *Stream) SendAndFinish(img pximage.Source) (*FrameAck, error) {
	token, err := s.Send(img)
	if err != nil {
		return nil, err
	}
	if err := token.Wait(); err != nil {
		return nil, err
	}
	return s.FinishFrame()
}

// RegisterForEvents asks the server to deliver user events for this
// stream, blocking until the server replies. In exclusive mode the
// caller is asking that no other registrant receive the same events.
func (s *Stream) RegisterForEvents(exclusive bool) error {
	if s.isClosed() {
		return ErrStreamClosed
	}
	reply := make(chan bool, 1)
	s.bindMu.Lock()
	s.pendingBind = reply
	s.bindMu.Unlock()

	flag := byte(0)
	if exclusive {
		flag = 1
	}
	if err := s.sendControl(wire.BindEvents, []byte{flag}); err != nil {
		return err
	}

	select {
	case ok, open := <-reply:
		if !open {
			return ErrStreamClosed
		}
		if !ok {
			return fmt.Errorf("client: server rejected event registration")
		}
		return nil
	case <-s.closed:
		return ErrStreamClosed
	}
}

// OpenObserver sends OBSERVER_OPEN, marking this stream as an observer
// connection that watches a wall's output rather than pushing frames to
// it. Beyond sending the message, observer display policy belongs to the
// wall server; Stream exposes no further observer-specific behavior.
func (s *Stream) OpenObserver() error {
	return s.sendControl(wire.ObserverOpen, nil)
}

// SendSizeHints tells the server this stream's preferred and acceptable
// frame dimensions. The server is not required to act on it; Stream only
// encodes and sends the record.
func (s *Stream) SendSizeHints(h wire.SizeHintsParams) error {
	var buf bytes.Buffer
	if err := wire.EncodeSizeHints(&buf, h); err != nil {
		return err
	}
	return s.sendControl(wire.SizeHints, buf.Bytes())
}

// HasEvent reports whether an event is queued.
func (s *Stream) HasEvent() bool { return s.events.hasEvent() }

// GetEvent pops the oldest queued event in FIFO order.
func (s *Stream) GetEvent() (Event, bool) { return s.events.pop() }

// OverflowedEventCount returns how many events were dropped due to event
// queue overflow since the stream opened.
func (s *Stream) OverflowedEventCount() uint64 { return s.events.overflowedCount() }

// Close queues a graceful QUIT and waits up to transport.ProgressTimeout
// for it, and everything queued before it, to be written; it then tears
// down the background workers and fails every outstanding token/ack.
// Idempotent.
func (s *Stream) Close() error {
	if !s.isClosed() {
		grace := time.After(transport.ProgressTimeout)
		quit := sendJob{header: wire.Header{Type: wire.Quit, URI: s.id}, token: newFrameToken()}
		select {
		case s.sendCh <- quit:
			select {
			case <-quit.token.Done():
			case <-s.closed:
			case <-grace:
			}
		case <-s.closed:
		case <-grace:
		}
	}
	s.terminate(nil)
	return nil
}

// terminate tears the stream down exactly once. err is nil for a graceful
// shutdown (Close, or a QUIT from the server), in which case outstanding
// tokens/acks fail with transport.ErrTransportClosed; a non-nil err marks
// an error-driven shutdown and fails them with err.
func (s *Stream) terminate(err error) {
	s.closeOnce.Do(func() {
		s.closeErr = err
		close(s.closed)
		_ = s.tr.Close()

		s.mu.Lock()
		pending := s.pendingAcks
		s.pendingAcks = nil
		s.mu.Unlock()

		failErr := err
		if failErr == nil {
			failErr = transport.ErrTransportClosed
		}
		for _, ack := range pending {
			ack.resolve(failErr)
		}
		for drained := false; !drained; {
			select {
			case job := <-s.sendCh:
				if job.token != nil {
					job.token.resolve(failErr)
				}
			default:
				drained = true
			}
		}

		s.bindMu.Lock()
		if s.pendingBind != nil {
			close(s.pendingBind)
			s.pendingBind = nil
		}
		s.bindMu.Unlock()

		if err != nil {
			s.log.Warn("stream terminated", zap.Error(err))
			if s.metrics != nil {
				s.metrics.TransportErrors.WithLabelValues(transportErrorKind(err)).Inc()
			}
		} else {
			s.log.Debug("stream closed")
		}
	})
}

// transportErrorKind buckets a transport error into a low-cardinality
// metric label.
func transportErrorKind(err error) string {
	switch {
	case errors.Is(err, transport.ErrReadTimeout):
		return "read_timeout"
	case errors.Is(err, transport.ErrWriteTimeout):
		return "write_timeout"
	case errors.Is(err, transport.ErrHandshakeTimeout):
		return "handshake_timeout"
	case errors.Is(err, transport.ErrConnectFailed):
		return "connect_failed"
	case errors.Is(err, transport.ErrTransportClosed):
		return "closed"
	default:
		return "other"
	}
}
