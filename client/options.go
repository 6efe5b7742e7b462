package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/compress"
	"github.com/wallstream/pixelstream/internal/config"
	"github.com/wallstream/pixelstream/internal/image"
	"github.com/wallstream/pixelstream/internal/transport"
	"github.com/wallstream/pixelstream/pkg/logger"
)

// Options configures a Stream at construction time. Zero-value queue
// depths and CompressorWorkers are filled from config.Load()'s
// environment-driven defaults; zero-value timeouts default to
// transport.ProgressTimeout, the segment size to image.DefaultNominalSize
// and Logger to logger.L().
type Options struct {
	// DialTimeout and ProgressTimeout are not passed to the transport:
	// it bounds the handshake, reads and writes with
	// transport.ProgressTimeout, and the TCP dial with Open's ctx.
	DialTimeout     time.Duration
	ProgressTimeout time.Duration

	SendQueueDepth  int
	EventQueueDepth int

	CompressorWorkers int
	CompressorPool    *compress.Pool // shared across Streams when set; built per-Stream otherwise

	NominalSegmentWidth  uint32
	NominalSegmentHeight uint32

	Logger          *zap.Logger
	MetricsRegistry prometheus.Registerer

	// UseWebSocket selects WSTransport instead of the default TCPTransport.
	UseWebSocket bool
}

func (o *Options) withDefaults() *Options {
	cfg := config.Load()
	out := *o
	if out.DialTimeout <= 0 {
		out.DialTimeout = transport.ProgressTimeout
	}
	if out.ProgressTimeout <= 0 {
		out.ProgressTimeout = transport.ProgressTimeout
	}
	if out.SendQueueDepth <= 0 {
		out.SendQueueDepth = cfg.SendQueueDepth
	}
	if out.EventQueueDepth <= 0 {
		out.EventQueueDepth = cfg.EventQueueDepth
	}
	if out.CompressorWorkers <= 0 {
		out.CompressorWorkers = cfg.CompressorWorkers
	}
	if out.NominalSegmentWidth == 0 {
		out.NominalSegmentWidth = image.DefaultNominalSize
	}
	if out.NominalSegmentHeight == 0 {
		out.NominalSegmentHeight = image.DefaultNominalSize
	}
	if out.Logger == nil {
		out.Logger = logger.L()
	}
	return &out
}
