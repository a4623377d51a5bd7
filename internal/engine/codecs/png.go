package codecs

import (
	"bytes"
	"image"
	"image/png"
	"io"

	"github.com/infracollect/epubshrink/internal/engine"
)

// PNG is lossless; it always encodes at the best compression level.
type PNG struct{}

func (PNG) Format() engine.Format {
	return engine.FormatPNG
}

func (PNG) Decode(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

func (PNG) Encode(w io.Writer, img image.Image, _ engine.EncodeOptions) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}
