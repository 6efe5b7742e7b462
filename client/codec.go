package client

import (
	"bytes"

	pximage "github.com/wallstream/pixelstream/internal/image"
	"github.com/wallstream/pixelstream/internal/wire"
)

// encodeSegmentPayload serializes a domain Segment into the PIXELSTREAM
// payload bytes: the parameter record followed by the segment's data.
func encodeSegmentPayload(seg pximage.Segment) ([]byte, error) {
	compressed := uint8(0)
	if seg.Compressed {
		compressed = 1
	}
	params := wire.SegmentParams{
		X: seg.X, Y: seg.Y,
		Width: seg.Width, Height: seg.Height,
		RowOrder:   uint8(seg.Order),
		Compressed: compressed,
		Format:     uint8(seg.Format),
	}
	var buf bytes.Buffer
	if err := wire.EncodeSegment(&buf, params, seg.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
