package encoders

import (
	"path"
	"strings"

	"github.com/infracollect/epubshrink/internal/engine"
)

// ForPath picks the encoder matching the extension of p: YAML for .yaml and
// .yml, indented JSON otherwise.
func ForPath(p string) engine.Encoder {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return NewYAMLEncoder()
	default:
		return NewJSONEncoder("  ")
	}
}
