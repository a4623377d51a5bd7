package codecs

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	"github.com/infracollect/epubshrink/internal/engine"
)

// JPEG re-encodes at the configured quality.
type JPEG struct{}

func (JPEG) Format() engine.Format {
	return engine.FormatJPEG
}

func (JPEG) Decode(data []byte) (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(data))
}

func (JPEG) Encode(w io.Writer, img image.Image, opts engine.EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
