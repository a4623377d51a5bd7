package engine

import (
	"fmt"
	"path"
	"strings"
)

// Format identifies how an archive entry is handled. Every entry is either
// one of the supported raster formats or opaque.
type Format int

const (
	FormatOpaque Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return "opaque"
	}
}

// MarshalText lets reports show the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	for _, candidate := range []Format{FormatOpaque, FormatJPEG, FormatPNG, FormatGIF} {
		if candidate.String() == string(text) {
			*f = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown format %q", text)
}

// IsImage reports whether the format is a transformable raster image.
func (f Format) IsImage() bool {
	return f != FormatOpaque
}

// FormatFromExtension maps an entry name to a format using its extension.
func FormatFromExtension(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".jpe":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".gif":
		return FormatGIF
	default:
		return FormatOpaque
	}
}

// FormatFromMediaType maps a media type such as "image/png" to a format.
func FormatFromMediaType(mediaType string) Format {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	default:
		return FormatOpaque
	}
}
