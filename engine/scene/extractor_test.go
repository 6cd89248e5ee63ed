package scene

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTriangle() Primitive {
	return Primitive{
		Indices:   []uint32{0, 1, 2},
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}
}

func singleTriangleGraph() *Graph {
	return &Graph{Nodes: []Node{{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}}}}
}

func assertVec3Near(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5, "got %v", got)
}

func TestExtractFrontFacingTriangleSurvivesCulling(t *testing.T) {
	ex := NewExtractor(WithWorkers(2))
	dir := mgl32.Vec3{0, 0, 1}

	geo, err := ex.Extract(singleTriangleGraph(), &dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), geo.TriangleCount)
	assert.Equal(t, uint32(1), geo.MaxTriangleCount)
}

func TestExtractBackFacingTriangleIsCulled(t *testing.T) {
	ex := NewExtractor(WithWorkers(2))
	dir := mgl32.Vec3{0, 0, -1}

	geo, err := ex.Extract(singleTriangleGraph(), &dir)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), geo.TriangleCount)
	assert.Equal(t, uint32(1), geo.MaxTriangleCount)
	assert.Empty(t, geo.Triangles)
	// the bound does not depend on culling
	require.Len(t, geo.Bounds, 1)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, geo.Bounds[0].Max)
}

func TestExtractWithoutCullingKeepsEverything(t *testing.T) {
	ex := NewExtractor()
	geo, err := ex.Extract(singleTriangleGraph(), nil)
	require.NoError(t, err)
	assert.Equal(t, geo.MaxTriangleCount, geo.TriangleCount)
	assert.Equal(t, uint32(1), geo.TriangleCount)
}

func TestExtractAppliesWorldTransformAndTagsNode(t *testing.T) {
	g := &Graph{
		Nodes: []Node{
			{Name: "root", Local: mgl32.Translate3D(10, 0, 0), Children: []int{1}},
			{Name: "child", Local: mgl32.Scale3D(2, 2, 2), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}},
		},
	}
	geo, err := NewExtractor().Extract(g, nil)
	require.NoError(t, err)
	require.Len(t, geo.Triangles, 1)

	tri := geo.Triangles[0]
	assert.Equal(t, uint32(1), tri.Node)
	assertVec3Near(t, mgl32.Vec3{10, 0, 0}, tri.A)
	assertVec3Near(t, mgl32.Vec3{12, 0, 0}, tri.B)
	assertVec3Near(t, mgl32.Vec3{10, 2, 0}, tri.C)

	require.Len(t, geo.Bounds, 1)
	assert.Equal(t, uint32(1), geo.Bounds[0].Node)
	assertVec3Near(t, mgl32.Vec3{10, 0, 0}, geo.Bounds[0].Min)
	assertVec3Near(t, mgl32.Vec3{12, 2, 0}, geo.Bounds[0].Max)
}

func TestExtractOrderIsNodePrimitiveIndex(t *testing.T) {
	quad := Primitive{
		Indices:   []uint32{0, 1, 2, 2, 1, 3},
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	}
	var nodes []Node
	for i := range 12 {
		nodes = append(nodes, Node{
			Local: mgl32.Translate3D(float32(i), 0, 0),
			Mesh:  &Mesh{Primitives: []Primitive{quad, unitTriangle()}},
		})
	}
	g := &Graph{Nodes: nodes}

	first, err := NewExtractor(WithWorkers(4)).Extract(g, nil)
	require.NoError(t, err)
	require.Len(t, first.Triangles, 12*3)

	for i, tri := range first.Triangles {
		assert.Equal(t, uint32(i/3), tri.Node, "triangle %d", i)
	}
	// second triangle of the quad starts at its third index
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, first.Triangles[1].A)

	for range 5 {
		again, err := NewExtractor(WithWorkers(8)).Extract(g, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExtractSkipsIncompletePrimitives(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{Local: mgl32.Ident4()},
		{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{
			{Positions: []mgl32.Vec3{{0, 0, 0}}},
			{Indices: []uint32{0, 1, 2}},
			unitTriangle(),
		}}},
		{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{{}}}},
	}}

	geo, err := NewExtractor().Extract(g, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), geo.TriangleCount)
	require.Len(t, geo.Bounds, 1, "only nodes with usable geometry get a bound")
	assert.Equal(t, uint32(1), geo.Bounds[0].Node)
}

func TestExtractRejectsMalformedIndices(t *testing.T) {
	cases := map[string]Primitive{
		"truncated": {
			Indices:   []uint32{0, 1},
			Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		},
		"out of range": {
			Indices:   []uint32{0, 1, 3},
			Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		},
	}
	for name, prim := range cases {
		t.Run(name, func(t *testing.T) {
			g := &Graph{Nodes: []Node{
				{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}},
				{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle(), prim}}},
			}}
			_, err := NewExtractor().Extract(g, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedIndices)

			var idxErr *IndexError
			require.True(t, errors.As(err, &idxErr))
			assert.Equal(t, 1, idxErr.Node)
			assert.Equal(t, 1, idxErr.Primitive)
		})
	}
}

func TestExtractMeshMaterial(t *testing.T) {
	mat := 1
	g := &Graph{Nodes: []Node{
		{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}},
		{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle(), {
			Indices: []uint32{0, 1, 2}, Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Material: &mat,
		}}}},
	}}
	geo, err := NewExtractor(WithMaterialBase(7), WithDefaultMaterial(3)).Extract(g, nil)
	require.NoError(t, err)
	require.Len(t, geo.Bounds, 2)
	assert.Equal(t, uint32(3), geo.Bounds[0].Material)
	assert.Equal(t, uint32(8), geo.Bounds[1].Material)
}

func TestWorldTransformsRejectCycles(t *testing.T) {
	g := &Graph{
		Roots: []int{0},
		Nodes: []Node{
			{Local: mgl32.Ident4(), Children: []int{1}},
			{Local: mgl32.Ident4(), Children: []int{0}},
		},
	}
	_, err := g.WorldTransforms()
	assert.ErrorIs(t, err, ErrGraphCycle)
}

func TestMergeOffsetsIndices(t *testing.T) {
	mat := 0
	a := &Graph{
		Nodes:     []Node{{Local: mgl32.Ident4(), Children: []int{1}}, {Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}}},
		Materials: make([]primitive.Material, 2),
	}
	b := &Graph{
		Nodes: []Node{{Local: mgl32.Translate3D(0, 5, 0), Children: []int{1}}, {Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{{
			Indices: []uint32{0, 1, 2}, Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Material: &mat,
		}}}}},
		Materials: make([]primitive.Material, 1),
	}

	m := Merge(a, nil, b)
	require.Len(t, m.Nodes, 4)
	assert.Equal(t, []int{0, 2}, m.Roots)
	assert.Equal(t, []int{3}, m.Nodes[2].Children)
	assert.Len(t, m.Materials, 3)
	assert.Equal(t, 2, *m.Nodes[3].Mesh.Primitives[0].Material)
	assert.Equal(t, 0, mat, "source graph is not modified")

	geo, err := NewExtractor().Extract(m, nil)
	require.NoError(t, err)
	require.Len(t, geo.Triangles, 2)
	assert.Equal(t, uint32(3), geo.Triangles[1].Node)
	assertVec3Near(t, mgl32.Vec3{0, 5, 0}, geo.Triangles[1].A)
}
