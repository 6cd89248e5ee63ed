package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfNodeExtractorImpl is the implementation of the gltfNodeExtractor interface.
type gltfNodeExtractorImpl struct {
	parser gltfParser
	log    logger.Logger

	// meshes caches converted meshes so nodes instancing the same mesh share it.
	meshes map[int]*scene.Mesh
}

// gltfNodeExtractor converts the glTF node hierarchy and the geometry of its meshes into scene nodes.
type gltfNodeExtractor interface {
	// ExtractNodes converts every node of the document, in document order.
	//
	// Returns:
	//   - []scene.Node: one scene node per glTF node
	//   - error: error if a mesh or child reference is out of range or an accessor is unreadable
	ExtractNodes() ([]scene.Node, error)

	// ExtractRoots returns the root nodes of the document's default scene, or nil when the
	// document declares no scenes.
	//
	// Returns:
	//   - []int: the root node indices
	//   - error: error if the scene index or a root node is out of range
	ExtractRoots() ([]int, error)

	// ExtractMesh converts one mesh by index. Primitives that are not triangle lists are skipped.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - *scene.Mesh: the converted mesh
	//   - error: error if the mesh index is out of range or an accessor is unreadable
	ExtractMesh(meshIndex int) (*scene.Mesh, error)
}

var _ gltfNodeExtractor = &gltfNodeExtractorImpl{}

// newGLTFNodeExtractor creates a node extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - log: destination for skipped-primitive messages
//
// Returns:
//   - gltfNodeExtractor: the node extractor
func newGLTFNodeExtractor(parser gltfParser, log logger.Logger) gltfNodeExtractor {
	return &gltfNodeExtractorImpl{
		parser: parser,
		log:    log,
		meshes: make(map[int]*scene.Mesh),
	}
}

func (e *gltfNodeExtractorImpl) ExtractNodes() ([]scene.Node, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	nodes := make([]scene.Node, len(doc.Nodes))
	for i := range doc.Nodes {
		src := &doc.Nodes[i]
		node := scene.Node{
			Name:  src.Name,
			Local: gltfNodeMatrix(src),
		}
		for _, c := range src.Children {
			if c < 0 || c >= len(doc.Nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", i, c)
			}
			node.Children = append(node.Children, c)
		}
		if src.Mesh != nil {
			mesh, err := e.ExtractMesh(*src.Mesh)
			if err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			node.Mesh = mesh
		}
		nodes[i] = node
	}
	return nodes, nil
}

func (e *gltfNodeExtractorImpl) ExtractRoots() ([]int, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if len(doc.Scenes) == 0 {
		return nil, nil
	}

	sceneIndex := 0
	if doc.Scene != nil {
		sceneIndex = *doc.Scene
	}
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		return nil, fmt.Errorf("scene index %d out of range", sceneIndex)
	}

	roots := doc.Scenes[sceneIndex].Nodes
	for _, r := range roots {
		if r < 0 || r >= len(doc.Nodes) {
			return nil, fmt.Errorf("scene %d: root node %d out of range", sceneIndex, r)
		}
	}
	return append([]int(nil), roots...), nil
}

func (e *gltfNodeExtractorImpl) ExtractMesh(meshIndex int) (*scene.Mesh, error) {
	if mesh, ok := e.meshes[meshIndex]; ok {
		return mesh, nil
	}

	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	src := &doc.Meshes[meshIndex]
	mesh := &scene.Mesh{Name: src.Name}
	for p := range src.Primitives {
		prim := &src.Primitives[p]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			e.log.Debugf("mesh %d primitive %d: mode %d is not a triangle list, skipped", meshIndex, p, *prim.Mode)
			continue
		}

		out := scene.Primitive{}
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
				return nil, fmt.Errorf("mesh %d primitive %d: material %d out of range", meshIndex, p, *prim.Material)
			}
			m := *prim.Material
			out.Material = &m
		}

		if posIdx, ok := prim.Attributes[gltfAttributePosition]; ok {
			positions, err := e.parser.ReadVec3Accessor(posIdx)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d positions: %w", meshIndex, p, err)
			}
			out.Positions = make([]mgl32.Vec3, len(positions))
			for i, v := range positions {
				out.Positions[i] = mgl32.Vec3(v)
			}
		}
		if prim.Indices != nil {
			indices, err := e.parser.ReadIndicesAccessor(*prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d indices: %w", meshIndex, p, err)
			}
			out.Indices = indices
		}

		mesh.Primitives = append(mesh.Primitives, out)
	}

	e.meshes[meshIndex] = mesh
	return mesh, nil
}

// gltfNodeMatrix returns the node's local matrix: the explicit column-major matrix when present,
// otherwise T * R * S from the translation, rotation quaternion (x, y, z, w) and scale.
func gltfNodeMatrix(node *gltfNode) mgl32.Mat4 {
	if node.Matrix != nil {
		return mgl32.Mat4(*node.Matrix)
	}

	t := mgl32.Ident4()
	if tr := node.Translation; tr != nil {
		t = mgl32.Translate3D(tr[0], tr[1], tr[2])
	}
	r := mgl32.Ident4()
	if q := node.Rotation; q != nil {
		r = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}.Normalize().Mat4()
	}
	s := mgl32.Ident4()
	if sc := node.Scale; sc != nil {
		s = mgl32.Scale3D(sc[0], sc[1], sc[2])
	}
	return t.Mul4(r).Mul4(s)
}
