package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/engine/archivers"
	"github.com/infracollect/epubshrink/internal/engine/codecs"
	"github.com/infracollect/epubshrink/internal/engine/sinks"
	"github.com/infracollect/epubshrink/internal/engine/transform"
)

type Runner struct {
	logger    *zap.Logger
	fs        afero.Fs
	stdout    io.Writer
	newS3Sink func(context.Context, sinks.S3Config) (engine.Sink, error)

	opts Options
	cfg  transform.Config
	dest destination
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// New validates opts and resolves the input and output paths. Invalid or
// conflicting options are reported as *engine.ConfigError before any file is
// opened.
func New(logger *zap.Logger, opts Options, runnerOpts ...Option) (*Runner, error) {
	if err := defaultValidator.Struct(opts); err != nil {
		return nil, &engine.ConfigError{Err: err}
	}

	cfg, err := transform.NewConfig(opts.Transform)
	if err != nil {
		return nil, err
	}

	if opts.Concurrency == 0 {
		opts.Concurrency = 1
	}

	r := defaultRunner()
	r.logger = logger
	r.opts = opts
	r.cfg = cfg
	for _, opt := range runnerOpts {
		opt(r)
	}

	dest, err := resolveDestination(r.fs, opts.Input, opts.Output)
	if err != nil {
		return nil, err
	}
	r.dest = dest

	if err := checkInput(r.fs, opts.Input); err != nil {
		return nil, err
	}

	return r, nil
}

// Destination is the resolved output location.
func (r *Runner) Destination() string {
	return r.dest.String()
}

// Run shrinks the input archive and writes the result to the destination.
// Nothing is written unless every entry was rewritten.
func (r *Runner) Run(ctx context.Context) (*engine.Report, error) {
	r.logger.Info("shrinking epub",
		zap.String("input", r.opts.Input),
		zap.String("output", r.dest.String()),
		zap.Int("jpeg_quality", r.cfg.JPEGQuality),
		zap.Bool("grayscale", r.cfg.Grayscale),
		zap.Int("concurrency", r.opts.Concurrency),
	)

	data, err := afero.ReadFile(r.fs, r.opts.Input)
	if err != nil {
		return nil, &engine.ArchiveError{Op: "open", Path: r.opts.Input, Err: err}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &engine.ArchiveError{Op: "open", Path: r.opts.Input, Err: err}
	}

	sink, err := r.buildSink(ctx, zr.Comment)
	if err != nil {
		return nil, err
	}

	rewriter := engine.NewRewriter(
		r.logger.Named("rewriter"),
		transform.New(r.cfg, codecs.NewRegistry()),
		engine.WithConcurrency(r.opts.Concurrency),
	)

	report, err := rewriter.Rewrite(ctx, zr, sink)
	if err != nil {
		return nil, err
	}

	if err := sink.Close(ctx); err != nil {
		var archiveErr *engine.ArchiveError
		if errors.As(err, &archiveErr) {
			return nil, err
		}
		return nil, &engine.ArchiveError{Op: "write", Path: r.dest.String(), Err: err}
	}

	report.InputSize = int64(len(data))
	report.OutputSize = sink.Written()

	r.logger.Info("epub shrunk",
		zap.String("output", r.dest.String()),
		zap.Int64("input_size", report.InputSize),
		zap.Int64("output_size", report.OutputSize),
		zap.String("reduction", fmt.Sprintf("%.1f%%", report.Reduction())),
		zap.Int("transformed", report.Count(engine.ActionTransformed)),
		zap.Int("fallbacks", report.Count(engine.ActionFallback)),
	)

	return report, nil
}

// buildSink wraps the destination sink with a ZIP archive sink carrying the
// input archive comment.
func (r *Runner) buildSink(ctx context.Context, comment string) (*sinks.ArchiveSink, error) {
	inner, err := r.buildInnerSink(ctx)
	if err != nil {
		return nil, err
	}

	archiver, err := archivers.NewZipArchiver(comment)
	if err != nil {
		return nil, &engine.ArchiveError{Op: "write", Path: r.dest.String(), Err: err}
	}

	return sinks.NewArchiveSink(inner, archiver, r.dest.name), nil
}

// buildInnerSink creates the underlying sink (stdout, filesystem, or S3).
func (r *Runner) buildInnerSink(ctx context.Context) (engine.Sink, error) {
	switch {
	case r.dest.stdout:
		return sinks.NewStreamSink(r.stdout), nil

	case r.dest.bucket != "":
		sink, err := r.newS3Sink(ctx, sinks.S3Config{
			Bucket:          r.dest.bucket,
			Prefix:          r.dest.prefix,
			Region:          r.opts.S3.Region,
			Endpoint:        r.opts.S3.Endpoint,
			ForcePathStyle:  r.opts.S3.ForcePathStyle,
			AccessKeyID:     r.opts.S3.AccessKeyID,
			SecretAccessKey: r.opts.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build S3 sink: %w", err)
		}
		return sink, nil

	default:
		sink, err := sinks.NewFilesystemSinkFromPath(r.fs, r.dest.dir)
		if err != nil {
			return nil, &engine.ArchiveError{Op: "write", Path: r.dest.String(), Err: err}
		}
		return sink, nil
	}
}
