package image

// Source is a borrowed view onto a caller's framebuffer: a packed pixel
// buffer plus the metadata needed to cut and optionally compress it. The
// byte slice is never retained past a single Segmenter.Generate call
// without being copied.
type Source struct {
	Data   []byte
	Width  uint32
	Height uint32
	Format PixelFormat
	Order  RowOrder

	CompressionPolicy  bool
	CompressionQuality int // 0..100, meaningful only when CompressionPolicy is true
	Subsampling        Subsampling
}

// Stride is the number of bytes per row.
func (s Source) Stride() int {
	return int(s.Width) * BytesPerPixel
}

// Validate checks the buffer is large enough for the declared dimensions.
func (s Source) Validate() error {
	want := int(s.Width) * int(s.Height) * BytesPerPixel
	if len(s.Data) < want {
		return &ErrInvalidSource{Want: want, Got: len(s.Data)}
	}
	return nil
}

// ErrInvalidSource reports a Source whose buffer is smaller than its
// declared dimensions demand.
type ErrInvalidSource struct {
	Want, Got int
}

func (e *ErrInvalidSource) Error() string {
	return "image: source buffer too small"
}
