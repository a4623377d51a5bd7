package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/engine/encoders"
	"github.com/infracollect/epubshrink/internal/engine/sinks"
)

// BookReport is the serializable form of a BookResult.
type BookReport struct {
	Input  string         `json:"input"`
	Output string         `json:"output"`
	Error  string         `json:"error,omitempty"`
	Report *engine.Report `json:"report,omitempty"`
}

// BookReports converts job results for WriteReport.
func BookReports(results []BookResult) []BookReport {
	reports := make([]BookReport, 0, len(results))
	for _, result := range results {
		br := BookReport{Input: result.Input, Output: result.Output, Report: result.Report}
		if result.Err != nil {
			br.Error = result.Err.Error()
		}
		reports = append(reports, br)
	}
	return reports
}

// WriteReport encodes v to p on fs, or to stdout when p is "-". The encoder
// is picked from the file extension.
func WriteReport(ctx context.Context, fs afero.Fs, p string, v any) error {
	encoder := encoders.ForPath(p)

	var sink engine.Sink
	name := filepath.Base(p)
	if p == stdoutPath {
		sink = sinks.NewStreamSink(os.Stdout)
	} else {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve report path: %w", err)
		}
		sink, err = sinks.NewFilesystemSinkFromPath(fs, filepath.Dir(abs))
		if err != nil {
			return err
		}
	}

	reader, err := encoder.EncodeReport(ctx, v)
	if err != nil {
		return err
	}

	if err := sink.Write(ctx, name, reader); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return sink.Close(ctx)
}
