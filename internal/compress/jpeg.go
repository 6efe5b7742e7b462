package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	pximage "github.com/wallstream/pixelstream/internal/image"
)

// EncodeJPEG produces a self-contained JPEG bitstream for one segment's
// raw pixels. quality follows image/jpeg's 1..100 scale. subsampling is
// accepted for API completeness but the standard library's encoder fixes
// its own chroma subsampling internally and exposes no knob for it — the
// only JPEG encoder anywhere in the reference corpus is this stdlib one,
// so there is no alternative to wire the parameter into.
func EncodeJPEG(seg pximage.Segment, quality int, subsampling pximage.Subsampling) ([]byte, error) {
	if len(seg.Data) < seg.RawSize() {
		return nil, fmt.Errorf("compress: segment data too short: have %d, want %d", len(seg.Data), seg.RawSize())
	}
	img := toNRGBA(seg)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toNRGBA rearranges a packed segment buffer (in the segment's declared
// pixel format and row order) into a top-down image.NRGBA the stdlib
// encoder can consume directly.
func toNRGBA(seg pximage.Segment) *image.NRGBA {
	w, h := int(seg.Width), int(seg.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	srcStride := w * pximage.BytesPerPixel

	for row := 0; row < h; row++ {
		srcRow := row
		if seg.Order == pximage.BottomUp {
			srcRow = h - 1 - row
		}
		srcOff := srcRow * srcStride
		dstOff := row * img.Stride
		for col := 0; col < w; col++ {
			r, g, b, a := unpackPixel(seg.Data[srcOff+col*4:srcOff+col*4+4], seg.Format)
			d := img.Pix[dstOff+col*4 : dstOff+col*4+4]
			d[0], d[1], d[2], d[3] = r, g, b, a
		}
	}
	return img
}

func unpackPixel(px []byte, format pximage.PixelFormat) (r, g, b, a byte) {
	switch format {
	case pximage.RGBA:
		return px[0], px[1], px[2], px[3]
	case pximage.BGRA:
		return px[2], px[1], px[0], px[3]
	case pximage.ARGB:
		return px[1], px[2], px[3], px[0]
	case pximage.ABGR:
		return px[3], px[2], px[1], px[0]
	default:
		return px[0], px[1], px[2], px[3]
	}
}
