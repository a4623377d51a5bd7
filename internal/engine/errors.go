package engine

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks images the transform deliberately leaves alone, such
// as animated GIFs.
var ErrUnsupported = errors.New("unsupported image")

// ConfigError is returned when options are invalid or conflicting. It is
// raised before any I/O happens.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration for %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when an image entry cannot be decoded. The
// rewriter recovers from it by copying the original bytes.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s image: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ArchiveError is returned when the container cannot be read or written. It
// always aborts the run.
type ArchiveError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive %s failed for %q: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
