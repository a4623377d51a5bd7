package runner

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/infracollect/epubshrink/internal/engine"
)

const (
	stdoutPath = "-"
	s3Scheme   = "s3"
)

// destination is where the shrunk archive goes: stdout, an S3 object or a
// file on the runner filesystem.
type destination struct {
	stdout bool

	bucket string
	prefix string

	dir  string
	name string
}

func (d destination) String() string {
	switch {
	case d.stdout:
		return stdoutPath
	case d.bucket != "":
		return fmt.Sprintf("s3://%s/%s", d.bucket, path.Join(d.prefix, d.name))
	default:
		return filepath.Join(d.dir, d.name)
	}
}

// checkInput makes sure input names an existing regular file.
func checkInput(fs afero.Fs, input string) error {
	info, err := fs.Stat(input)
	if err != nil {
		return &engine.ArchiveError{Op: "open", Path: input, Err: err}
	}
	if info.IsDir() {
		return &engine.ArchiveError{Op: "open", Path: input, Err: errors.New("input is a directory")}
	}
	return nil
}

// resolveDestination applies the output path rules: "-" is stdout, s3:// URLs
// are objects (a trailing slash keeps the input file name), an existing
// directory receives a file named after the input, and the input itself is
// never overwritten.
func resolveDestination(fs afero.Fs, input, output string) (destination, error) {
	if output == stdoutPath {
		return destination{stdout: true, name: filepath.Base(input)}, nil
	}

	if strings.HasPrefix(output, s3Scheme+"://") {
		return parseS3Destination(input, output)
	}

	if info, err := fs.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, filepath.Base(input))
	}

	absOutput, err := filepath.Abs(output)
	if err != nil {
		return destination{}, &engine.ConfigError{Field: "output", Err: err}
	}
	absInput, err := filepath.Abs(input)
	if err != nil {
		return destination{}, &engine.ConfigError{Field: "input", Err: err}
	}
	if absOutput == absInput {
		return destination{}, &engine.ConfigError{
			Field: "output",
			Err:   fmt.Errorf("output path %q is the same as the input", output),
		}
	}

	return destination{
		dir:  filepath.Dir(absOutput),
		name: filepath.Base(absOutput),
	}, nil
}

func parseS3Destination(input, output string) (destination, error) {
	u, err := url.Parse(output)
	if err != nil {
		return destination{}, &engine.ConfigError{Field: "output", Err: fmt.Errorf("invalid S3 URL: %w", err)}
	}
	if u.Host == "" {
		return destination{}, &engine.ConfigError{Field: "output", Err: fmt.Errorf("S3 URL %q has no bucket", output)}
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += filepath.Base(input)
	}

	prefix := path.Dir(key)
	if prefix == "." {
		prefix = ""
	}

	return destination{
		bucket: u.Host,
		prefix: prefix,
		name:   path.Base(key),
	}, nil
}
