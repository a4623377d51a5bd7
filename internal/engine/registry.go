package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// UnsupportedFormatError is returned when no codec is registered for a format.
type UnsupportedFormatError struct {
	Format    Format
	Available []string // registered formats
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unsupported image format %q: no codecs registered", e.Format)
	}
	return fmt.Sprintf("unsupported image format %q (available: %v)", e.Format, e.Available)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupported
}

type Registry struct {
	mu     sync.RWMutex
	codecs map[Format]Codec
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[Format]Codec),
	}
}

func (r *Registry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codec.Format()] = codec
}

func (r *Registry) Codec(format Format) (Codec, error) {
	r.mu.RLock()
	codec, ok := r.codecs[format]
	available := r.available()
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedFormatError{Format: format, Available: available}
	}
	return codec, nil
}

func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available()
}

func (r *Registry) available() []string {
	formats := lo.Map(lo.Keys(r.codecs), func(f Format, _ int) string {
		return f.String()
	})
	slices.Sort(formats)
	return formats
}
