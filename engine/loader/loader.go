package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// ErrUnsupportedFormat is returned for files whose extension no backend handles.
var ErrUnsupportedFormat = errors.New("unsupported scene format")

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	graphCache map[string]*scene.Graph

	backend loaderBackend
	log     logger.Logger
}

// Loader loads scene graphs from model files and caches them by path. The file format is hidden
// behind a backend selected at construction.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the file is already cached (by path), the cached graph is returned.
	//
	// Parameters:
	//   - path: the file path to the model file (.gltf or .glb)
	//
	// Returns:
	//   - *scene.Graph: the loaded graph
	//   - error: ErrUnsupportedFormat, or a parse or extraction error
	Load(path string) (*scene.Graph, error)

	// Reload imports a model file again, replacing any cached graph for the same path.
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *scene.Graph: the freshly loaded graph
	//   - error: ErrUnsupportedFormat, or a parse or extraction error
	Reload(path string) (*scene.Graph, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded graph
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *scene.Graph: the loaded graph
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*scene.Graph, error)

	// Get retrieves a cached graph by name. Returns nil if not found.
	Get(name string) *scene.Graph

	// Graphs returns a copy of the graph cache keyed by name.
	Graphs() map[string]*scene.Graph

	// Evict drops a cached graph. Evicting an unknown name is a no-op.
	Evict(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		graphCache: make(map[string]*scene.Graph),
		log:        logger.New("loader"),
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.log)
	}
	return l
}

func (l *loader) Load(path string) (*scene.Graph, error) {
	l.mu.RLock()
	cached, ok := l.graphCache[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}
	return l.Reload(path)
}

func (l *loader) Reload(path string) (*scene.Graph, error) {
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	g, err := backend.Load(path)
	if err != nil {
		return nil, err
	}
	l.log.Infof("loaded %s: %d nodes, %d materials", path, len(g.Nodes), len(g.Materials))

	l.mu.Lock()
	l.graphCache[path] = g
	l.mu.Unlock()
	return g, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*scene.Graph, error) {
	if l.backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrUnsupportedFormat)
	}

	g, err := l.backend.LoadReader(r, isGLB, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l.mu.Lock()
	l.graphCache[name] = g
	l.mu.Unlock()
	return g, nil
}

func (l *loader) Get(name string) *scene.Graph {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.graphCache[name]
}

func (l *loader) Graphs() map[string]*scene.Graph {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*scene.Graph, len(l.graphCache))
	for k, v := range l.graphCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	delete(l.graphCache, name)
	l.mu.Unlock()
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		if l.backend != nil {
			return l.backend, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
