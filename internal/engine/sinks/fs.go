package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/infracollect/epubshrink/internal/engine"
)

// FilesystemSink writes archives to a filesystem. Each write goes to a
// temporary file next to the destination and is renamed into place once
// complete, so an interrupted write never leaves a truncated archive behind.
type FilesystemSink struct {
	fs afero.Fs
}

func NewFilesystemSink(fs afero.Fs) engine.Sink {
	return &FilesystemSink{fs: fs}
}

// NewFilesystemSinkFromPath returns a sink rooted at dir on fs, creating the
// directory if needed.
func NewFilesystemSinkFromPath(fs afero.Fs, dir string) (engine.Sink, error) {
	cleanPath := filepath.Clean(dir)

	// Ensure the base directory exists
	if err := fs.MkdirAll(cleanPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(fs, cleanPath)), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("filesystem(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "filesystem"
}

func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) (err error) {
	// Ensure parent directories exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			err = errors.Join(err, s.removeIfExists(tmpName))
		}
	}()

	if _, err = io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err = s.fs.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err = s.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

func (s *FilesystemSink) removeIfExists(name string) error {
	exists, err := afero.Exists(s.fs, name)
	if err != nil || !exists {
		return err
	}
	return s.fs.Remove(name)
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
