package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// loaderBackend defines the generic interface for loading scene graphs from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load imports the file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *scene.Graph: the imported graph
	//   - error: error if loading fails
	Load(path string) (*scene.Graph, error)

	// LoadReader imports a document from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing the document
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//   - baseDir: directory used to resolve external resources
	//
	// Returns:
	//   - *scene.Graph: the imported graph
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool, baseDir string) (*scene.Graph, error)
}
