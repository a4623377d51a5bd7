package runner

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/engine/sinks"
	"github.com/infracollect/epubshrink/internal/engine/transform"
)

// Options describes one shrink run.
type Options struct {
	Input  string `validate:"required"`
	Output string `validate:"required"`

	Transform   transform.Config `validate:"-"`
	Concurrency int              `validate:"gte=0"`

	S3 S3Options
}

// S3Options configures the client used when Output is an s3:// URL.
type S3Options struct {
	Region          string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
}

// DefaultOptions returns the options of a run with no flags set.
func DefaultOptions() Options {
	return Options{
		Transform: transform.Config{
			JPEGQuality: transform.DefaultJPEGQuality,
			Resample:    transform.DefaultResample,
		},
		Concurrency: 1,
	}
}

type Option func(*Runner)

// WithFs replaces the filesystem used for input and output paths.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithStdout replaces the writer used when the output is "-".
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithS3Uploader makes s3:// outputs go through uploader instead of a client
// built from S3Options.
func WithS3Uploader(uploader sinks.S3Uploader) Option {
	return func(r *Runner) {
		r.newS3Sink = func(_ context.Context, cfg sinks.S3Config) (engine.Sink, error) {
			return sinks.NewS3SinkWithUploader(cfg.Bucket, cfg.Prefix, uploader), nil
		}
	}
}

func defaultRunner() *Runner {
	return &Runner{
		fs:        afero.NewOsFs(),
		stdout:    os.Stdout,
		newS3Sink: sinks.NewS3Sink,
	}
}
