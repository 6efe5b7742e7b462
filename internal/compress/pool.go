// Package compress runs JPEG encoding of frame segments on a bounded
// worker pool shared across streams.
package compress

import (
	"fmt"
	"runtime"
	"sync"

	pximage "github.com/wallstream/pixelstream/internal/image"
)

// CompressionFailedError reports that a single segment's encode failed,
// aborting its whole frame.
type CompressionFailedError struct {
	SegmentIndex int
	Reason       string
}

func (e *CompressionFailedError) Error() string {
	return fmt.Sprintf("compress: segment %d failed: %s", e.SegmentIndex, e.Reason)
}

// Pool is a bounded set of worker goroutines that JPEG-encode a frame's
// segments in parallel, waiting for all of them before yielding the
// completed list. It holds no per-stream state and is safe to share
// across concurrently streaming goroutines.
type Pool struct {
	sem chan struct{}
}

// NewPool returns a Pool with the given worker concurrency. A
// non-positive size falls back to runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: make(chan struct{}, workers)}
}

// CompressFrame encodes every segment in segs to JPEG at the given
// quality and subsampling, preserving segment order in the result. If
// any segment fails to encode, the whole frame fails and the result is
// discarded — no partial frame is ever produced.
func (p *Pool) CompressFrame(segs []pximage.Segment, quality int, subsampling pximage.Subsampling) ([]pximage.Segment, error) {
	out := make([]pximage.Segment, len(segs))
	errs := make([]error, len(segs))

	var wg sync.WaitGroup
	for i, seg := range segs {
		wg.Add(1)
		p.sem <- struct{}{}
		go func(i int, seg pximage.Segment) {
			defer wg.Done()
			defer func() { <-p.sem }()

			data, err := EncodeJPEG(seg, quality, subsampling)
			if err != nil {
				errs[i] = err
				return
			}
			seg.Data = data
			seg.Compressed = true
			out[i] = seg
		}(i, seg)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &CompressionFailedError{SegmentIndex: i, Reason: err.Error()}
		}
	}
	return out, nil
}
