// Package codecs provides the image codecs the transform re-encodes with.
package codecs

import "github.com/infracollect/epubshrink/internal/engine"

// Register adds every built-in codec to the registry.
func Register(registry *engine.Registry) {
	registry.Register(JPEG{})
	registry.Register(PNG{})
	registry.Register(GIF{})
}

// NewRegistry returns a registry holding the built-in codecs.
func NewRegistry() *engine.Registry {
	registry := engine.NewRegistry()
	Register(registry)
	return registry
}
