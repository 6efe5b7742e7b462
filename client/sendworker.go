package client

import (
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/transport"
)

// runSendWorker drains the bounded send queue and writes each job to the
// transport in order, resolving a job's FrameToken once its write
// completes. On the first write failure the failing job's token is
// resolved with the error directly and the stream is terminated;
// terminate fails pending acks and the tokens of jobs still queued.
func (s *Stream) runSendWorker() {
	for {
		select {
		case job, ok := <-s.sendCh:
			if !ok {
				return
			}
			err := s.tr.Send(job.header, job.payload, transport.Async)
			if err != nil {
				s.log.Warn("send failed", zap.Stringer("type", job.header.Type), zap.Error(err))
				if job.token != nil {
					job.token.resolve(err)
				}
				s.terminate(err)
				return
			}
			if job.token != nil {
				job.token.resolve(nil)
			}
		case <-s.closed:
			return
		}
	}
}
