package scene

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
)

// Scene is everything the trace kernel reads: materials, spheres, triangles, mesh bounds and the
// optional BVH. Apart from Cull it is immutable after Build.
type Scene struct {
	Materials []primitive.Material
	Spheres   []primitive.Sphere
	Triangles []Triangle
	Bounds    []MeshBound
	// BVH is EmptyBVH() unless hierarchy building is enabled.
	BVH []BVHNode

	TriangleCount    uint32
	MaxTriangleCount uint32

	graph      *Graph
	extractor  *Extractor
	bvhEnabled bool
	bvhLeaf    int
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	cullDir      *mgl32.Vec3
	bvh          bool
	bvhLeaf      int
	meshMaterial uint32
}

// WithCulling enables back-face culling against the given camera direction.
func WithCulling(dir mgl32.Vec3) BuildOption {
	return func(c *buildConfig) {
		c.cullDir = &dir
	}
}

// WithBVH enables building a SAH hierarchy over the extracted triangles.
//
// Parameters:
//   - minLeafItems: the largest triangle count that always forms a leaf
func WithBVH(minLeafItems int) BuildOption {
	return func(c *buildConfig) {
		c.bvh = true
		c.bvhLeaf = minLeafItems
	}
}

// WithMeshMaterial sets the registry material for mesh nodes that name none.
func WithMeshMaterial(index uint32) BuildOption {
	return func(c *buildConfig) {
		c.meshMaterial = index
	}
}

// Build assembles a Scene from the primitive registry and a scene graph. The registry is not
// modified: graph materials are appended after the registry's own materials in the scene's copy.
//
// Parameters:
//   - reg: materials and spheres, in kernel index order
//   - g: the mesh source, may be nil
//   - ex: the extractor used now and by later Cull calls
//   - options: build options
//
// Returns:
//   - *Scene: the assembled scene
//   - error: extraction errors, or a mesh material index outside the material list
func Build(reg *primitive.Registry, g *Graph, ex *Extractor, options ...BuildOption) (*Scene, error) {
	cfg := buildConfig{bvhLeaf: 4}
	for _, opt := range options {
		opt(&cfg)
	}
	if g == nil {
		g = &Graph{}
	}

	s := &Scene{
		Materials:  append(reg.Materials(), g.Materials...),
		Spheres:    reg.Spheres(),
		graph:      g,
		extractor:  ex,
		bvhEnabled: cfg.bvh,
		bvhLeaf:    cfg.bvhLeaf,
	}
	if g.MeshNodeCount() > 0 && int(cfg.meshMaterial) >= len(s.Materials) {
		return nil, fmt.Errorf("%w: mesh material %d (have %d)", primitive.ErrUnknownMaterial, cfg.meshMaterial, len(s.Materials))
	}
	ex.Configure(uint32(reg.MaterialCount()), cfg.meshMaterial)

	if err := s.extract(cfg.cullDir); err != nil {
		return nil, err
	}
	return s, nil
}

// Cull re-extracts the triangles with back-face culling against dir. Bounds and the pre-cull
// count do not change; the triangle list, TriangleCount and the BVH do.
//
// Parameters:
//   - dir: the camera direction
//
// Returns:
//   - error: extraction errors
func (s *Scene) Cull(dir mgl32.Vec3) error {
	return s.extract(&dir)
}

func (s *Scene) extract(dir *mgl32.Vec3) error {
	geo, err := s.extractor.Extract(s.graph, dir)
	if err != nil {
		return err
	}
	s.Triangles = geo.Triangles
	s.Bounds = geo.Bounds
	s.TriangleCount = geo.TriangleCount
	s.MaxTriangleCount = geo.MaxTriangleCount
	s.BVH = EmptyBVH()
	if s.bvhEnabled {
		s.BVH, s.Triangles = BuildBVH(s.Triangles, s.bvhLeaf)
	}
	return nil
}

// MarshalMaterials serializes the materials. The result is never empty: an empty list yields one zero record.
func (s *Scene) MarshalMaterials() []byte {
	if len(s.Materials) == 0 {
		return make([]byte, primitive.MaterialSize)
	}
	return marshalRecords(s.Materials, primitive.MaterialSize)
}

// MarshalSpheres serializes the spheres. An empty list yields one zero-radius record, which the kernel skips.
func (s *Scene) MarshalSpheres() []byte {
	if len(s.Spheres) == 0 {
		return make([]byte, primitive.SphereSize)
	}
	return marshalRecords(s.Spheres, primitive.SphereSize)
}

// MarshalTriangles serializes the triangles. An empty list yields one zero record; the kernel only
// reads the first TriangleCount records.
func (s *Scene) MarshalTriangles() []byte {
	if len(s.Triangles) == 0 {
		return make([]byte, TriangleSize)
	}
	return marshalRecords(s.Triangles, TriangleSize)
}

// MarshalBounds serializes the mesh bounds. An empty list yields one inverted box that no ray hits.
func (s *Scene) MarshalBounds() []byte {
	if len(s.Bounds) == 0 {
		lo, hi := emptyBox()
		return marshalRecords([]MeshBound{{Min: lo, Max: hi}}, MeshBoundSize)
	}
	return marshalRecords(s.Bounds, MeshBoundSize)
}

// MarshalBVH serializes the BVH nodes.
func (s *Scene) MarshalBVH() []byte {
	if len(s.BVH) == 0 {
		return marshalRecords(EmptyBVH(), BVHNodeSize)
	}
	return marshalRecords(s.BVH, BVHNodeSize)
}

// WriteStats renders a summary table of the scene to w.
//
// Parameters:
//   - w: destination of the table
func (s *Scene) WriteStats(w io.Writer) {
	emissive := 0
	for _, m := range s.Materials {
		if m.IsEmissive() {
			emissive++
		}
	}
	bvhNodes := 0
	if s.bvhEnabled {
		bvhNodes = len(s.BVH)
	}
	bytes := len(s.MarshalMaterials()) + len(s.MarshalSpheres()) + len(s.MarshalTriangles()) +
		len(s.MarshalBounds()) + len(s.MarshalBVH())

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Resource", "Count", "Size"})
	table.Append([]string{"Materials", fmt.Sprintf("%d (%d emissive)", len(s.Materials), emissive), sizeString(len(s.Materials) * primitive.MaterialSize)})
	table.Append([]string{"Spheres", strconv.Itoa(len(s.Spheres)), sizeString(len(s.Spheres) * primitive.SphereSize)})
	table.Append([]string{"Mesh nodes", strconv.Itoa(len(s.Bounds)), sizeString(len(s.Bounds) * MeshBoundSize)})
	table.Append([]string{"Triangles", fmt.Sprintf("%d / %d", s.TriangleCount, s.MaxTriangleCount), sizeString(len(s.Triangles) * TriangleSize)})
	table.Append([]string{"BVH nodes", strconv.Itoa(bvhNodes), sizeString(bvhNodes * BVHNodeSize)})
	table.SetFooter([]string{"", "Total", sizeString(bytes)})
	table.Render()
}

func sizeString(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
