package loader

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that replaces the Loader's module logger.
//
// Parameters:
//   - log: the logger used by the loader and its backend
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(log logger.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.log = log
	}
}

// WithGraph is an option builder that pre-populates the graph cache.
//
// Parameters:
//   - key: the cache key for the graph
//   - g: the graph to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the graph option to a loader
func WithGraph(key string, g *scene.Graph) LoaderBuilderOption {
	return func(l *loader) {
		l.graphCache[key] = g
	}
}
