package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
	"go.uber.org/zap"

	v1 "github.com/infracollect/epubshrink/apis/v1"
	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/engine/transform"
)

// iso8601Basic is the compact ISO 8601 form, safe to use in file names.
const iso8601Basic = "20060102T150405Z"

// ParseShrinkJob parses a YAML or JSON job file and validates it. Option
// conflicts are checked for every book so a job never fails halfway because
// of a bad flag combination.
func ParseShrinkJob(data []byte) (v1.ShrinkJob, error) {
	var job v1.ShrinkJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ShrinkJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.ShrinkJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	var errs error
	for i, book := range job.Spec.Books {
		opts := BookOptions(job, book)
		if _, err := transform.NewConfig(opts.Transform); err != nil {
			errs = errors.Join(errs, fmt.Errorf("book %d (%s): %w", i, book.Input, err))
		}
	}
	if errs != nil {
		return v1.ShrinkJob{}, fmt.Errorf("failed to validate job: %w", errs)
	}

	return job, nil
}

// BookOptions merges the defaults, the job options and the book options, in
// that order. A book that picks one resize mode drops the other one inherited
// from the job.
func BookOptions(job v1.ShrinkJob, book v1.Book) Options {
	opts := DefaultOptions()
	opts.Input = book.Input
	opts.Output = book.Output

	applyShrinkOptions(&opts, job.Spec.Options)
	applyShrinkOptions(&opts, book.Options)

	if s3 := job.Spec.S3; s3 != nil {
		opts.S3 = S3Options{
			Region:         lo.FromPtr(s3.Region),
			Endpoint:       lo.FromPtr(s3.Endpoint),
			ForcePathStyle: s3.ForcePathStyle,
		}
		if s3.Credentials != nil {
			opts.S3.AccessKeyID = s3.Credentials.AccessKeyID
			opts.S3.SecretAccessKey = s3.Credentials.SecretAccessKey
		}
	}

	return opts
}

func applyShrinkOptions(dst *Options, src *v1.ShrinkOptions) {
	if src == nil {
		return
	}

	if src.JPEGQuality != nil {
		dst.Transform.JPEGQuality = *src.JPEGQuality
	}

	switch {
	case src.ImageResizePercent != nil && src.ImageResizeMaxWidth != nil:
		// Keep both so the conflict is reported.
		dst.Transform.ResizePercent = lo.ToPtr(*src.ImageResizePercent)
		dst.Transform.MaxWidth = lo.ToPtr(*src.ImageResizeMaxWidth)
	case src.ImageResizePercent != nil:
		dst.Transform.ResizePercent = lo.ToPtr(*src.ImageResizePercent)
		dst.Transform.MaxWidth = nil
	case src.ImageResizeMaxWidth != nil:
		dst.Transform.MaxWidth = lo.ToPtr(*src.ImageResizeMaxWidth)
		dst.Transform.ResizePercent = nil
	}

	if src.ImageResizeResample != nil {
		dst.Transform.Resample = transform.Resample(*src.ImageResizeResample)
	}
	if src.Grayscale != nil {
		dst.Transform.Grayscale = *src.Grayscale
	}
	if src.Concurrency != nil {
		dst.Concurrency = *src.Concurrency
	}
}

// BuildVariables creates the variables map for expansion.
// It includes built-in variables and reads allowed environment variables.
// If a variable is not set, an error is returned.
func BuildVariables(job v1.ShrinkJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(iso8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// BookResult is the outcome of one book of a job. Report is nil when Err is
// set.
type BookResult struct {
	Input  string
	Output string
	Report *engine.Report
	Err    error
}

// RunJob shrinks every book of job in order. A failing book does not stop the
// others; all failures are returned joined.
func RunJob(ctx context.Context, logger *zap.Logger, job v1.ShrinkJob, allowedEnv []string, runnerOpts ...Option) ([]BookResult, error) {
	logger.Info("running job", zap.String("job_name", job.Metadata.Name), zap.Int("books", len(job.Spec.Books)))

	variables, err := BuildVariables(job, allowedEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to build variables: %w", err)
	}
	job = cloneJob(job)
	if err := ExpandTemplates(&job, variables); err != nil {
		return nil, fmt.Errorf("failed to expand templates: %w", err)
	}

	results := make([]BookResult, 0, len(job.Spec.Books))
	var errs error
	for i, book := range job.Spec.Books {
		if err := ctx.Err(); err != nil {
			errs = errors.Join(errs, err)
			break
		}

		bookLogger := logger.With(zap.Int("book", i), zap.String("input", book.Input))
		result := BookResult{Input: book.Input, Output: book.Output}

		result.Report, result.Err = runBook(ctx, bookLogger, BookOptions(job, book), runnerOpts)
		if result.Err != nil {
			bookLogger.Error("failed to shrink book", zap.Error(result.Err))
			errs = errors.Join(errs, fmt.Errorf("book %d (%s): %w", i, book.Input, result.Err))
		}
		results = append(results, result)
	}

	return results, errs
}

// cloneJob copies the parts of job that template expansion writes to.
func cloneJob(job v1.ShrinkJob) v1.ShrinkJob {
	job.Spec.Books = slices.Clone(job.Spec.Books)
	if job.Spec.S3 != nil {
		s3 := *job.Spec.S3
		if s3.Credentials != nil {
			creds := *s3.Credentials
			s3.Credentials = &creds
		}
		job.Spec.S3 = &s3
	}
	return job
}

func runBook(ctx context.Context, logger *zap.Logger, opts Options, runnerOpts []Option) (*engine.Report, error) {
	r, err := New(logger.Named("runner"), opts, runnerOpts...)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}
