package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/infracollect/epubshrink/internal/engine"
)

// ArchiveSink collects entries into an archive. On Close, it finalizes the
// archive and writes a single file to the inner sink. Nothing reaches the
// inner sink unless Close is called.
type ArchiveSink struct {
	inner       engine.Sink
	archiver    engine.Archiver
	archiveName string
	written     int64
}

// NewArchiveSink creates a new archive sink that wraps the given inner sink.
// All entries are collected into the archiver, and on Close, the complete archive
// is written to the inner sink with the specified archive name.
func NewArchiveSink(inner engine.Sink, archiver engine.Archiver, archiveName string) *ArchiveSink {
	return &ArchiveSink{
		inner:       inner,
		archiver:    archiver,
		archiveName: archiveName,
	}
}

// Name returns the name of this sink.
func (s *ArchiveSink) Name() string {
	return fmt.Sprintf("archive(%s)->%s", s.archiveName, s.inner.Name())
}

// Kind returns the kind of this sink.
func (s *ArchiveSink) Kind() string {
	return "archive"
}

// AddEntry adds an entry to the archive.
func (s *ArchiveSink) AddEntry(ctx context.Context, entry engine.Entry) error {
	if err := s.archiver.AddEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to add entry to archive: %w", err)
	}
	return nil
}

// Close finalizes the archive and writes it to the inner sink.
func (s *ArchiveSink) Close(ctx context.Context) error {
	reader, err := s.archiver.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	counter := &countingReader{r: reader}
	if err := s.inner.Write(ctx, s.archiveName, counter); err != nil {
		return fmt.Errorf("failed to write archive to sink: %w", err)
	}
	s.written = counter.n

	if err := s.inner.Close(ctx); err != nil {
		return fmt.Errorf("failed to close inner sink: %w", err)
	}

	return nil
}

// Written returns the archive size handed to the inner sink by Close.
func (s *ArchiveSink) Written() int64 {
	return s.written
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
