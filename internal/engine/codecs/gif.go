package codecs

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"

	"github.com/infracollect/epubshrink/internal/engine"
)

// grayPalette holds every 8-bit luminance level, so gray images convert to
// paletted ones without loss.
var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// GIF handles single-frame GIFs. Animations are reported as unsupported and
// left alone.
type GIF struct{}

func (GIF) Format() engine.Format {
	return engine.FormatGIF
}

func (GIF) Decode(data []byte) (image.Image, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(g.Image) != 1 {
		return nil, fmt.Errorf("%w: gif has %d frames", engine.ErrUnsupported, len(g.Image))
	}
	return g.Image[0], nil
}

func (GIF) Encode(w io.Writer, img image.Image, _ engine.EncodeOptions) error {
	switch src := img.(type) {
	case *image.Paletted:
		return gif.Encode(w, src, nil)
	case *image.Gray:
		dst := image.NewPaletted(src.Bounds(), grayPalette)
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return gif.Encode(w, dst, nil)
	default:
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	}
}
