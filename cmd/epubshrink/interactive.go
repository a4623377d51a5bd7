package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/infracollect/epubshrink/internal/engine"
)

type interactiveCtxKeyType struct{}

var interactiveCtxKey = interactiveCtxKeyType{}

// isInteractiveEnvironment reports whether a person is watching stderr, where
// the size summary is printed.
func isInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func withInteractive(ctx context.Context, interactive bool) context.Context {
	return context.WithValue(ctx, interactiveCtxKey, interactive)
}

func isInteractive(ctx context.Context) bool {
	interactive, ok := ctx.Value(interactiveCtxKey).(bool)
	if !ok {
		return false
	}
	return interactive
}

// printSummary writes the human readable result of one shrunk book.
func printSummary(w io.Writer, input, output string, report *engine.Report) {
	fmt.Fprintf(w, "%s -> %s\n", input, output)
	fmt.Fprintf(w, "  size: %s -> %s (%.1f%% smaller)\n",
		formatSize(report.InputSize), formatSize(report.OutputSize), report.Reduction())
	fmt.Fprintf(w, "  images: %d recompressed, %d left unchanged\n",
		report.Count(engine.ActionTransformed), report.Count(engine.ActionFallback))
	for _, o := range report.Fallbacks() {
		fmt.Fprintf(w, "    %s: %s\n", o.Name, o.Reason)
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
