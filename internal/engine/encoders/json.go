// Package encoders serializes run reports.
package encoders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/infracollect/epubshrink/internal/engine"
)

// JSONEncoder implements engine.Encoder for JSON format.
type JSONEncoder struct {
	indent string
}

// NewJSONEncoder creates a JSON encoder. An empty indent gives compact
// output.
func NewJSONEncoder(indent string) *JSONEncoder {
	return &JSONEncoder{indent: indent}
}

func (e *JSONEncoder) EncodeReport(ctx context.Context, v any) (io.Reader, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if e.indent != "" {
		encoder.SetIndent("", e.indent)
	}

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode report as JSON: %w", err)
	}

	return &buf, nil
}

// FileExtension returns "json".
func (e *JSONEncoder) FileExtension() string {
	return "json"
}

var _ engine.Encoder = (*JSONEncoder)(nil)
