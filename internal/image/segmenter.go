package image

import "errors"

// ErrAbortedByCaller is returned by Generate when the sink returns false.
var ErrAbortedByCaller = errors.New("image: generation aborted by caller")

// DefaultNominalSize is the tile dimension used when a Segmenter is
// constructed without an explicit size.
const DefaultNominalSize = 512

// Segmenter cuts a Source into a grid of Segments of a nominal size,
// letting the last column/row absorb whatever remainder doesn't divide
// evenly.
type Segmenter struct {
	NominalWidth  uint32
	NominalHeight uint32
}

// NewSegmenter returns a Segmenter with the given nominal tile size. A
// zero dimension falls back to DefaultNominalSize.
func NewSegmenter(nominalWidth, nominalHeight uint32) *Segmenter {
	if nominalWidth == 0 {
		nominalWidth = DefaultNominalSize
	}
	if nominalHeight == 0 {
		nominalHeight = DefaultNominalSize
	}
	return &Segmenter{NominalWidth: nominalWidth, NominalHeight: nominalHeight}
}

// Generate partitions src into a row-major grid and invokes sink once per
// segment. Returning false from sink stops generation and Generate
// returns ErrAbortedByCaller.
func (s *Segmenter) Generate(src Source, sink func(Segment) bool) error {
	if err := src.Validate(); err != nil {
		return err
	}

	if s.NominalWidth >= src.Width && s.NominalHeight >= src.Height {
		seg := Segment{
			X: 0, Y: 0,
			Width:  src.Width,
			Height: src.Height,
			Order:  src.Order,
			Format: src.Format,
			Data:   src.Data,
		}
		if !sink(seg) {
			return ErrAbortedByCaller
		}
		return nil
	}

	for y := uint32(0); y < src.Height; y += s.NominalHeight {
		h := s.NominalHeight
		if y+h > src.Height {
			h = src.Height - y
		}
		for x := uint32(0); x < src.Width; x += s.NominalWidth {
			w := s.NominalWidth
			if x+w > src.Width {
				w = src.Width - x
			}
			seg := Segment{
				X: x, Y: y,
				Width:  w,
				Height: h,
				Order:  src.Order,
				Format: src.Format,
				Data:   extractTile(src, x, y, w, h),
			}
			if !sink(seg) {
				return ErrAbortedByCaller
			}
		}
	}
	return nil
}

// extractTile copies the packed rows of the rectangle (x,y,w,h) out of
// src, preserving src's row order.
func extractTile(src Source, x, y, w, h uint32) []byte {
	stride := src.Stride()
	out := make([]byte, int(w)*int(h)*BytesPerPixel)
	rowBytes := int(w) * BytesPerPixel
	colOffset := int(x) * BytesPerPixel

	if src.Order == TopDown {
		for r := uint32(0); r < h; r++ {
			srcRow := y + r
			srcOff := int(srcRow)*stride + colOffset
			copy(out[int(r)*rowBytes:(int(r)+1)*rowBytes], src.Data[srcOff:srcOff+rowBytes])
		}
		return out
	}

	// BottomUp: the tile's memory-contiguous block starts at the memory
	// row of the tile's bottommost logical row and runs upward, which is
	// exactly tile-local row 0 upward under the same convention.
	memStart := src.Height - 1 - (y + h - 1)
	for r := uint32(0); r < h; r++ {
		srcRow := memStart + r
		srcOff := int(srcRow)*stride + colOffset
		copy(out[int(r)*rowBytes:(int(r)+1)*rowBytes], src.Data[srcOff:srcOff+rowBytes])
	}
	return out
}
