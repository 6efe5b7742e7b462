// Package observe holds the process-wide prometheus metrics for the
// streaming pipeline.
package observe

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Metrics bundles every counter/gauge/histogram the pipeline emits. Unlike
// the teacher's package-level globals, Metrics is constructed against an
// injectable prometheus.Registerer so tests and cmd/wallstub can use a
// private registry instead of panicking on duplicate global registration.
type Metrics struct {
	FramesSent          prometheus.Counter
	SegmentsCompressed  prometheus.Counter
	CompressionDuration prometheus.Histogram
	SendQueueDepth      prometheus.Gauge
	EventQueueDepth     prometheus.Gauge
	EventsDropped       prometheus.Counter
	TransportErrors     *prometheus.CounterVec
}

// New builds and registers a Metrics set against reg. Passing nil returns
// a single process-wide set, registered against the global default
// registry on the first nil call and shared by every later one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		defaultOnce.Do(func() { defaultMetrics = New(prometheus.DefaultRegisterer) })
		return defaultMetrics
	}
	m := &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelstream_frames_sent_total",
			Help: "Total frames fully sent and acknowledged.",
		}),
		SegmentsCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelstream_segments_compressed_total",
			Help: "Total segments passed through the compressor pool.",
		}),
		CompressionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "pixelstream_compression_duration_seconds",
			Help: "Time to JPEG-encode all segments of one frame.",
		}),
		SendQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelstream_send_queue_depth",
			Help: "Current depth of a stream's send queue.",
		}),
		EventQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelstream_event_queue_depth",
			Help: "Current depth of a stream's event queue.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelstream_events_dropped_total",
			Help: "Total events dropped due to event queue overflow.",
		}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelstream_transport_errors_total",
			Help: "Total transport errors by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.FramesSent,
		m.SegmentsCompressed,
		m.CompressionDuration,
		m.SendQueueDepth,
		m.EventQueueDepth,
		m.EventsDropped,
		m.TransportErrors,
	)
	return m
}
