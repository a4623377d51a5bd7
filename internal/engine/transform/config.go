package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/disintegration/gift"
	"github.com/go-playground/validator/v10"

	"github.com/infracollect/epubshrink/internal/engine"
)

const DefaultJPEGQuality = 75

// Resample names the interpolation filter used when scaling.
type Resample string

const (
	ResampleNearest  Resample = "NEAREST"
	ResampleBox      Resample = "BOX"
	ResampleBilinear Resample = "BILINEAR"
	ResampleBicubic  Resample = "BICUBIC"
	ResampleLanczos  Resample = "LANCZOS"

	DefaultResample = ResampleBicubic
)

// Resamples lists the accepted filter names.
var Resamples = []Resample{ResampleNearest, ResampleBox, ResampleBilinear, ResampleBicubic, ResampleLanczos}

// ParseResample accepts a filter name in any case. An empty name selects
// DefaultResample.
func ParseResample(name string) (Resample, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultResample, nil
	}
	r := Resample(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range Resamples {
		if r == known {
			return r, nil
		}
	}
	return "", &engine.ConfigError{Field: "resample", Err: fmt.Errorf("unknown resample filter %q (available: %v)", name, Resamples)}
}

func (r Resample) resampling() gift.Resampling {
	switch r {
	case ResampleNearest:
		return gift.NearestNeighborResampling
	case ResampleBox:
		return gift.BoxResampling
	case ResampleBilinear:
		return gift.LinearResampling
	case ResampleLanczos:
		return gift.LanczosResampling
	default:
		return gift.CubicResampling
	}
}

// Config drives every image transform of a run. Build it with NewConfig; the
// transformer keeps its own copy so it is never changed afterwards.
type Config struct {
	JPEGQuality   int      `validate:"min=1,max=100"`
	ResizePercent *float64 `validate:"omitempty,gt=0,lte=100"`
	MaxWidth      *int     `validate:"omitempty,gt=0"`
	Resample      Resample `validate:"oneof=NEAREST BOX BILINEAR BICUBIC LANCZOS"`
	Grayscale     bool
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// NewConfig normalizes and validates c. Every failure is a *engine.ConfigError.
func NewConfig(c Config) (Config, error) {
	resample, err := ParseResample(string(c.Resample))
	if err != nil {
		return Config{}, err
	}
	c.Resample = resample

	if c.ResizePercent != nil && c.MaxWidth != nil {
		return Config{}, &engine.ConfigError{
			Field: "resize",
			Err:   errors.New("image resize percent and max width are mutually exclusive"),
		}
	}

	if c.ResizePercent != nil && *c.ResizePercent > 100 {
		return Config{}, &engine.ConfigError{
			Field: "resize_percent",
			Err:   fmt.Errorf("image resize percent %g is above 100: images are only ever shrunk", *c.ResizePercent),
		}
	}

	if err := defaultValidator.Struct(c); err != nil {
		return Config{}, &engine.ConfigError{Err: err}
	}

	if c.ResizePercent != nil {
		percent := *c.ResizePercent
		c.ResizePercent = &percent
	}
	if c.MaxWidth != nil {
		width := *c.MaxWidth
		c.MaxWidth = &width
	}

	return c, nil
}

// TargetSize returns the dimensions an image of w×h is scaled to, and false
// when no resize applies. Sizes never grow and never drop below one pixel.
func (c Config) TargetSize(w, h int) (int, int, bool) {
	switch {
	case c.ResizePercent != nil:
		scale := *c.ResizePercent / 100
		dw := max(1, int(math.Round(float64(w)*scale)))
		dh := max(1, int(math.Round(float64(h)*scale)))
		if dw == w && dh == h {
			return w, h, false
		}
		return dw, dh, true
	case c.MaxWidth != nil && w > *c.MaxWidth:
		dw := *c.MaxWidth
		dh := max(1, int(math.Round(float64(h)*float64(dw)/float64(w))))
		return dw, dh, true
	default:
		return w, h, false
	}
}
