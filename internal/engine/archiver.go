package engine

import (
	"context"
	"io"
)

// Archiver collects entries into an archive format.
type Archiver interface {
	// AddEntry adds an entry to the archive, keeping its name and metadata.
	AddEntry(ctx context.Context, entry Entry) error

	// Close finalizes the archive and returns a reader for the complete archive data.
	Close() (io.Reader, error)
}

// EntryWriter receives rewritten entries in archive order.
type EntryWriter interface {
	AddEntry(ctx context.Context, entry Entry) error
}
