package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is the mesh-derived part of a Scene produced by one extraction.
type Geometry struct {
	// Triangles in node, then primitive, then index order.
	Triangles []Triangle
	// Bounds holds one record per mesh node that owns at least one usable primitive, in node order.
	Bounds []MeshBound
	// TriangleCount is the number of emitted triangles, after culling.
	TriangleCount uint32
	// MaxTriangleCount is the number of triangles before culling.
	MaxTriangleCount uint32
}

// Extractor turns a scene Graph into world-space triangles and per-node bounds.
// Mesh nodes are processed in parallel on a worker pool that is reused across extractions,
// and results are merged back in node order.
type Extractor struct {
	pool            worker.DynamicWorkerPool
	workers         int
	materialBase    uint32
	defaultMaterial uint32
	log             logger.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithWorkers sets the number of extraction workers.
//
// Parameters:
//   - n: worker count, values below 1 are treated as 1
//
// Returns:
//   - ExtractorOption: a function that sets the worker count
func WithWorkers(n int) ExtractorOption {
	return func(e *Extractor) {
		e.workers = max(n, 1)
	}
}

// WithMaterialBase sets the registry index of the graph's first material. Graph-local material
// indices are offset by this value when written into mesh bounds.
func WithMaterialBase(base uint32) ExtractorOption {
	return func(e *Extractor) {
		e.materialBase = base
	}
}

// WithDefaultMaterial sets the registry material used for mesh nodes whose primitives name no material.
func WithDefaultMaterial(index uint32) ExtractorOption {
	return func(e *Extractor) {
		e.defaultMaterial = index
	}
}

// NewExtractor creates an Extractor.
//
// Parameters:
//   - options: functional options to configure the extractor
//
// Returns:
//   - *Extractor: the extractor
func NewExtractor(options ...ExtractorOption) *Extractor {
	e := &Extractor{
		workers: max(runtime.NumCPU()-1, 1),
		log:     logger.New("scene"),
	}
	for _, opt := range options {
		opt(e)
	}
	e.pool = worker.NewDynamicWorkerPool(e.workers, 256, 1*time.Second)
	return e
}

// Configure replaces the material mapping used by later extractions.
//
// Parameters:
//   - base: registry index of the graph's first material
//   - defaultMaterial: registry material for nodes without one
func (e *Extractor) Configure(base, defaultMaterial uint32) {
	e.materialBase = base
	e.defaultMaterial = defaultMaterial
}

type nodeResult struct {
	triangles []Triangle
	bound     MeshBound
	hasBound  bool
	total     int
	err       error
}

// Extract walks g and emits world-space triangles tagged with their node index.
// Primitives without indices or positions are skipped. An index buffer whose length is not a
// multiple of 3, or that references a missing position, fails the whole extraction with an *IndexError.
//
// When cullDir is non-nil, triangles whose normal normalize(cross(c-a, b-a)) has a positive dot
// product with *cullDir are dropped. Mesh bounds always cover every triangle, culled or not.
//
// Parameters:
//   - g: the scene graph, read-only during extraction
//   - cullDir: the camera direction, or nil to disable culling
//
// Returns:
//   - Geometry: triangles, bounds and counts
//   - error: the first error in node order
func (e *Extractor) Extract(g *Graph, cullDir *mgl32.Vec3) (Geometry, error) {
	if g == nil {
		return Geometry{}, nil
	}
	world, err := g.WorldTransforms()
	if err != nil {
		return Geometry{}, err
	}

	var dir mgl32.Vec3
	if cullDir != nil {
		dir = *cullDir
	}

	results := make([]nodeResult, len(g.Nodes))
	var wg sync.WaitGroup
	for idx := range g.Nodes {
		if g.Nodes[idx].Mesh == nil {
			continue
		}
		wg.Add(1)
		nodeIdx := idx
		e.pool.SubmitTask(worker.Task{
			ID: nodeIdx,
			Do: func() (any, error) {
				defer wg.Done()
				results[nodeIdx] = e.extractNode(g, nodeIdx, world[nodeIdx], cullDir != nil, dir)
				return nil, nil
			},
		})
	}
	wg.Wait()

	var geo Geometry
	total := 0
	for _, r := range results {
		if r.err != nil {
			return Geometry{}, r.err
		}
		total += r.total
		geo.Triangles = append(geo.Triangles, r.triangles...)
		if r.hasBound {
			geo.Bounds = append(geo.Bounds, r.bound)
		}
	}
	geo.TriangleCount = uint32(len(geo.Triangles))
	geo.MaxTriangleCount = uint32(total)
	return geo, nil
}

func (e *Extractor) extractNode(g *Graph, nodeIdx int, world mgl32.Mat4, cull bool, dir mgl32.Vec3) nodeResult {
	node := g.Nodes[nodeIdx]
	lo, hi := emptyBox()
	res := nodeResult{
		bound: MeshBound{Min: lo, Max: hi, Node: uint32(nodeIdx), Material: e.defaultMaterial},
	}
	materialSet := false

	for primIdx, prim := range node.Mesh.Primitives {
		if len(prim.Indices) == 0 || len(prim.Positions) == 0 {
			e.log.Debugf("node %d primitive %d: no indices or positions, skipped", nodeIdx, primIdx)
			continue
		}
		if err := validateIndices(nodeIdx, primIdx, prim); err != nil {
			res.err = err
			return res
		}
		if !materialSet && prim.Material != nil {
			res.bound.Material = e.materialBase + uint32(*prim.Material)
			materialSet = true
		}

		transformed := make([]mgl32.Vec3, len(prim.Positions))
		for i, p := range prim.Positions {
			transformed[i] = common.TransformPoint(world, p)
		}
		for _, i := range prim.Indices {
			res.bound.Min = minVec3(res.bound.Min, transformed[i])
			res.bound.Max = maxVec3(res.bound.Max, transformed[i])
		}
		res.hasBound = true

		for i := 0; i < len(prim.Indices); i += 3 {
			tri := Triangle{
				A:    transformed[prim.Indices[i]],
				B:    transformed[prim.Indices[i+1]],
				C:    transformed[prim.Indices[i+2]],
				Node: uint32(nodeIdx),
			}
			res.total++
			if cull && backFacing(tri, dir) {
				continue
			}
			res.triangles = append(res.triangles, tri)
		}
	}
	return res
}

func validateIndices(nodeIdx, primIdx int, prim Primitive) error {
	if len(prim.Indices)%3 != 0 {
		return &IndexError{
			Node: nodeIdx, Primitive: primIdx, Index: -1,
			Count: len(prim.Indices), Reason: "truncated triangle list",
		}
	}
	for i, v := range prim.Indices {
		if int(v) >= len(prim.Positions) {
			return &IndexError{
				Node: nodeIdx, Primitive: primIdx, Index: i, Value: v,
				Count: len(prim.Positions), Reason: "index out of range",
			}
		}
	}
	return nil
}

// backFacing reports whether the triangle faces away from a viewer looking along dir.
// Degenerate triangles have no normal and are kept.
func backFacing(t Triangle, dir mgl32.Vec3) bool {
	n := t.C.Sub(t.A).Cross(t.B.Sub(t.A))
	l := n.Len()
	if l == 0 {
		return false
	}
	return n.Mul(1/l).Dot(dir) > 0
}
