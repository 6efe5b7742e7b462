package compress

import (
	"bytes"
	"image/jpeg"
	"testing"

	pximage "github.com/wallstream/pixelstream/internal/image"
)

func solidSegment(w, h uint32, r, g, b, a byte) pximage.Segment {
	data := make([]byte, int(w)*int(h)*4)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = r, g, b, a
	}
	return pximage.Segment{Width: w, Height: h, Format: pximage.RGBA, Order: pximage.TopDown, Data: data}
}

func TestCompressFrameProducesValidJPEGs(t *testing.T) {
	segs := []pximage.Segment{
		solidSegment(64, 64, 0x80, 0x80, 0x80, 0xFF),
		solidSegment(32, 16, 0x10, 0x20, 0x30, 0xFF),
	}
	pool := NewPool(2)
	out, err := pool.CompressFrame(segs, 80, pximage.Subsample420)
	if err != nil {
		t.Fatalf("CompressFrame: %v", err)
	}
	if len(out) != len(segs) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(segs))
	}
	for i, s := range out {
		if !s.Compressed {
			t.Fatalf("segment %d not marked compressed", i)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(s.Data))
		if err != nil {
			t.Fatalf("segment %d: invalid jpeg: %v", i, err)
		}
		if uint32(cfg.Width) != segs[i].Width || uint32(cfg.Height) != segs[i].Height {
			t.Fatalf("segment %d: decoded dims %dx%d, want %dx%d", i, cfg.Width, cfg.Height, segs[i].Width, segs[i].Height)
		}
	}
}

func TestCompressFrameFailsWholeFrameOnBadSegment(t *testing.T) {
	bad := pximage.Segment{Width: 4, Height: 4, Format: pximage.RGBA, Order: pximage.TopDown, Data: []byte{1, 2, 3}}
	pool := NewPool(1)
	_, err := pool.CompressFrame([]pximage.Segment{bad}, 80, pximage.Subsample420)
	if err == nil {
		t.Fatal("expected error for undersized segment data")
	}
	if _, ok := err.(*CompressionFailedError); !ok {
		t.Fatalf("expected *CompressionFailedError, got %T", err)
	}
}
