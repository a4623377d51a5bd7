package encoders

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/infracollect/epubshrink/internal/engine"
)

// YAMLEncoder implements engine.Encoder for YAML format. Field names follow
// the json struct tags.
type YAMLEncoder struct{}

func NewYAMLEncoder() *YAMLEncoder {
	return &YAMLEncoder{}
}

func (e *YAMLEncoder) EncodeReport(ctx context.Context, v any) (io.Reader, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report as YAML: %w", err)
	}
	return bytes.NewReader(data), nil
}

// FileExtension returns "yaml".
func (e *YAMLEncoder) FileExtension() string {
	return "yaml"
}

var _ engine.Encoder = (*YAMLEncoder)(nil)
