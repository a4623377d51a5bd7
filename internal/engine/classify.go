package engine

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/infracollect/epubshrink/internal/epub"
)

// Classify decides whether an entry is a transformable image and which codec
// applies. The extension selects candidates; when the content sniffs as a
// supported image, the sniffed format wins. Content that does not sniff as an
// image keeps the extension's format and fails open at decode time.
func Classify(name string, data []byte, encrypted bool) Format {
	if encrypted || strings.HasSuffix(name, "/") {
		return FormatOpaque
	}
	if name == epub.MimetypeName || strings.HasPrefix(name, epub.MetaInfDir) {
		return FormatOpaque
	}

	byExtension := FormatFromExtension(name)
	if byExtension == FormatOpaque {
		return FormatOpaque
	}

	if sniffed := FormatFromMediaType(mimetype.Detect(data).String()); sniffed != FormatOpaque {
		return sniffed
	}

	return byExtension
}
