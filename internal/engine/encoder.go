package engine

import (
	"context"
	"io"
)

// Encoder turns a run report into a document (JSON, YAML).
type Encoder interface {
	// EncodeReport encodes v, a *Report or a list of them, to a reader.
	EncodeReport(ctx context.Context, v any) (io.Reader, error)

	// FileExtension returns extension without dot (e.g., "json").
	FileExtension() string
}
