package archivers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/infracollect/epubshrink/internal/engine"
	"github.com/infracollect/epubshrink/internal/epub"
)

// ZipArchiver creates ZIP archives where every file entry is deflated at the
// best compression level. The OCF mimetype entry and directories are stored.
type ZipArchiver struct {
	buf       *bytes.Buffer
	zipWriter *zip.Writer
	closed    bool
}

// NewZipArchiver creates a new ZIP archiver. The comment is written as the
// archive comment.
func NewZipArchiver(comment string) (*ZipArchiver, error) {
	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if comment != "" {
		if err := zipWriter.SetComment(comment); err != nil {
			return nil, fmt.Errorf("failed to set archive comment: %w", err)
		}
	}

	return &ZipArchiver{
		buf:       buf,
		zipWriter: zipWriter,
	}, nil
}

// MethodFor returns the compression method the archiver uses for an entry.
func MethodFor(entry engine.Entry) uint16 {
	if entry.IsDir() || entry.Name == epub.MimetypeName {
		return zip.Store
	}
	return zip.Deflate
}

// AddEntry adds an entry to the ZIP archive.
func (a *ZipArchiver) AddEntry(ctx context.Context, entry engine.Entry) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}

	// Check context cancellation
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	if entry.IsDir() && len(entry.Data) > 0 {
		return fmt.Errorf("directory entry %s has content", entry.Name)
	}

	header := &zip.FileHeader{
		Name:           entry.Name,
		Comment:        entry.Comment,
		Modified:       entry.Modified,
		CreatorVersion: entry.CreatorVersion,
		ExternalAttrs:  entry.ExternalAttrs,
		Method:         MethodFor(entry),
	}

	w, err := a.zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header for %s: %w", entry.Name, err)
	}

	if entry.IsDir() {
		return nil
	}

	if _, err := w.Write(entry.Data); err != nil {
		return fmt.Errorf("failed to write zip content for %s: %w", entry.Name, err)
	}

	return nil
}

// Close finalizes the ZIP archive and returns a reader for the complete archive data.
func (a *ZipArchiver) Close() (io.Reader, error) {
	if a.closed {
		return nil, fmt.Errorf("archiver already closed")
	}
	a.closed = true

	if err := a.zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}

	return bytes.NewReader(a.buf.Bytes()), nil
}
