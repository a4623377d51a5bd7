// Package transform recompresses single images: grayscale, resize, then
// re-encode in the source format.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/gift"

	"github.com/infracollect/epubshrink/internal/engine"
)

// Transformer applies a Config to image bytes. It holds no state between
// calls and is safe for concurrent use.
type Transformer struct {
	cfg    Config
	codecs *engine.Registry
}

func New(cfg Config, codecs *engine.Registry) *Transformer {
	return &Transformer{cfg: cfg, codecs: codecs}
}

func (t *Transformer) Config() Config {
	return t.cfg
}

// Transform decodes data as format, applies the configured filters and
// re-encodes it in the same format. Undecodable input is reported as a
// *engine.DecodeError.
func (t *Transformer) Transform(data []byte, format engine.Format) ([]byte, error) {
	codec, err := t.codecs.Codec(format)
	if err != nil {
		return nil, err
	}

	return t.recode(codec, data)
}

// recode owns the decoded pixels; nothing outlives the call but the encoded bytes.
func (t *Transformer) recode(codec engine.Codec, data []byte) ([]byte, error) {
	src, err := codec.Decode(data)
	if err != nil {
		if errors.Is(err, engine.ErrUnsupported) {
			return nil, err
		}
		return nil, &engine.DecodeError{Format: codec.Format(), Err: err}
	}

	img := t.apply(src)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, engine.EncodeOptions{Quality: t.cfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", codec.Format(), err)
	}
	return buf.Bytes(), nil
}

// apply runs grayscale then resize. The destination type carries the color
// mode: gray when requested or when the source is gray, the source palette
// for paletted sources, NRGBA otherwise.
func (t *Transformer) apply(src image.Image) image.Image {
	bounds := src.Bounds()

	var filters []gift.Filter
	if t.cfg.Grayscale {
		filters = append(filters, gift.Grayscale())
	}
	if w, h, ok := t.cfg.TargetSize(bounds.Dx(), bounds.Dy()); ok {
		filters = append(filters, gift.Resize(w, h, t.cfg.Resample.resampling()))
	}
	if len(filters) == 0 {
		return src
	}

	g := gift.New(filters...)
	dstBounds := g.Bounds(bounds)

	switch src.(type) {
	case *image.Gray16:
		if !t.cfg.Grayscale {
			dst := image.NewGray16(dstBounds)
			g.Draw(dst, src)
			return dst
		}
	case *image.Gray:
		dst := image.NewGray(dstBounds)
		g.Draw(dst, src)
		return dst
	}
	if t.cfg.Grayscale {
		dst := image.NewGray(dstBounds)
		g.Draw(dst, src)
		return dst
	}

	rgba := image.NewNRGBA(dstBounds)
	g.Draw(rgba, src)

	if paletted, ok := src.(*image.Paletted); ok {
		dst := image.NewPaletted(dstBounds, paletted.Palette)
		draw.FloydSteinberg.Draw(dst, dstBounds, rgba, dstBounds.Min)
		return dst
	}
	return rgba
}
