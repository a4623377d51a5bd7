package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"
)

// readJobFile reads a job file, or stdin when filename is "-". It returns the
// data and the name to show in messages.
func readJobFile(ctx context.Context, filename string) ([]byte, string, error) {
	if filename == "-" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, "", errors.New("refusing to read a job file from a terminal; pipe it to stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, "<stdin>", nil
	}

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(filename), nil
}
