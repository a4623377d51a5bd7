package engine

import (
	"image"
	"io"
)

// EncodeOptions are the knobs passed to a codec when re-encoding. Quality only
// applies to lossy formats.
type EncodeOptions struct {
	Quality int
}

// Codec decodes and encodes one image format.
type Codec interface {
	Format() Format
	Decode(data []byte) (image.Image, error)
	Encode(w io.Writer, img image.Image, opts EncodeOptions) error
}

// Transformer rewrites the bytes of one image entry.
type Transformer interface {
	Transform(data []byte, format Format) ([]byte, error)
}
