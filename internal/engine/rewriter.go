package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/infracollect/epubshrink/internal/epub"
)

type Rewriter struct {
	logger      *zap.Logger
	transformer Transformer
	concurrency int
}

type RewriterOption func(*Rewriter)

// WithConcurrency sets how many entries are read and transformed at once.
// Entries are always written in input order.
func WithConcurrency(n int) RewriterOption {
	return func(r *Rewriter) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewRewriter(logger *zap.Logger, transformer Transformer, opts ...RewriterOption) *Rewriter {
	r := &Rewriter{
		logger:      logger,
		transformer: transformer,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type preparedEntry struct {
	entry   Entry
	outcome Outcome
}

// Rewrite copies every entry of zr into w in the same order. Image entries go
// through the transformer; when that fails the original bytes are written
// instead. Errors reading or writing the container are returned as
// *ArchiveError and leave w incomplete.
func (r *Rewriter) Rewrite(ctx context.Context, zr *zip.Reader, w EntryWriter) (*Report, error) {
	for _, warning := range epub.CheckLayout(zr.File) {
		r.logger.Warn("container layout does not follow OCF", zap.String("warning", warning))
	}

	encrypted, err := epub.EncryptedResources(zr.File)
	if err != nil {
		r.logger.Warn("ignoring unreadable encryption descriptor", zap.Error(err))
		encrypted = map[string]bool{}
	}

	prepared := make([]preparedEntry, len(zr.File))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, f := range zr.File {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ArchiveError{Op: "read", Path: f.Name, Err: err}
			}

			p, err := r.prepare(f, encrypted[f.Name])
			if err != nil {
				return err
			}
			prepared[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Outcomes: make([]Outcome, 0, len(prepared))}
	for _, p := range prepared {
		// Check context cancellation before each write
		if err := ctx.Err(); err != nil {
			return nil, &ArchiveError{Op: "write", Path: p.entry.Name, Err: err}
		}

		if err := w.AddEntry(ctx, p.entry); err != nil {
			return nil, &ArchiveError{Op: "write", Path: p.entry.Name, Err: err}
		}

		report.Outcomes = append(report.Outcomes, p.outcome)
	}

	r.logger.Info("rewrote archive",
		zap.Int("entries", len(report.Outcomes)),
		zap.Int("transformed", report.Count(ActionTransformed)),
		zap.Int("fallbacks", report.Count(ActionFallback)),
	)

	return report, nil
}

func (r *Rewriter) prepare(f *zip.File, encrypted bool) (preparedEntry, error) {
	entry := Entry{
		Name:           f.Name,
		Method:         f.Method,
		Modified:       f.Modified,
		Comment:        f.Comment,
		CreatorVersion: f.CreatorVersion,
		ExternalAttrs:  f.ExternalAttrs,
	}
	logger := r.logger.With(zap.String("entry", f.Name))

	if entry.IsDir() {
		logger.Debug("copying directory entry")
		return preparedEntry{entry: entry, outcome: Outcome{Name: f.Name, Action: ActionCopied}}, nil
	}

	data, err := readFile(f)
	if err != nil {
		return preparedEntry{}, &ArchiveError{Op: "read", Path: f.Name, Err: err}
	}
	entry.Data = data

	outcome := Outcome{
		Name:    f.Name,
		Format:  Classify(f.Name, data, encrypted),
		Action:  ActionCopied,
		SizeIn:  len(data),
		SizeOut: len(data),
	}

	if !outcome.Format.IsImage() {
		logger.Debug("copying entry", zap.Uint16("method", f.Method), zap.Bool("encrypted", encrypted))
		return preparedEntry{entry: entry, outcome: outcome}, nil
	}

	transformed, err := r.transformer.Transform(data, outcome.Format)
	if err != nil {
		// A single image never aborts the run: its original bytes are kept.
		outcome.Action = ActionFallback
		outcome.Reason = err.Error()
		logger.Warn("image left unchanged", zap.Stringer("format", outcome.Format), zap.Error(err))
		return preparedEntry{entry: entry, outcome: outcome}, nil
	}

	entry.Data = transformed
	outcome.Action = ActionTransformed
	outcome.SizeOut = len(transformed)
	logger.Debug("transformed image",
		zap.Stringer("format", outcome.Format),
		zap.Int("size_in", outcome.SizeIn),
		zap.Int("size_out", outcome.SizeOut),
	)

	return preparedEntry{entry: entry, outcome: outcome}, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	return data, nil
}
