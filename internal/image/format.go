// Package image holds the domain model for framebuffer sources and the
// tiles a Segmenter cuts from them — distinct from the wire-level records
// in internal/wire, which know nothing about pixel formats.
package image

// PixelFormat names the byte layout of one pixel. All formats the
// pipeline supports are 4 bytes per pixel.
type PixelFormat uint8

const (
	RGBA PixelFormat = iota
	BGRA
	ARGB
	ABGR
)

// BytesPerPixel is constant across the supported formats.
const BytesPerPixel = 4

// RowOrder says whether row 0 sits at the top or bottom of memory.
type RowOrder uint8

const (
	TopDown RowOrder = iota
	BottomUp
)

// Subsampling is the JPEG chroma subsampling mode used by the compressor.
type Subsampling uint8

const (
	Subsample444 Subsampling = iota
	Subsample422
	Subsample420
)
