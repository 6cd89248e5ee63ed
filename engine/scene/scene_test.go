package scene

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppendsGraphMaterialsWithoutTouchingRegistry(t *testing.T) {
	reg := primitive.DefaultRegistry()
	mat := 0
	g := &Graph{
		Nodes: []Node{{Local: mgl32.Ident4(), Mesh: &Mesh{Primitives: []Primitive{{
			Indices: []uint32{0, 1, 2}, Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Material: &mat,
		}}}}},
		Materials: []primitive.Material{primitive.NewMaterial(primitive.WithDiffuse(1, 1, 0))},
	}

	s, err := Build(reg, g, NewExtractor(), WithMeshMaterial(3))
	require.NoError(t, err)
	assert.Len(t, s.Materials, 8)
	assert.Equal(t, 7, reg.MaterialCount())
	assert.Len(t, s.Spheres, 7)
	require.Len(t, s.Bounds, 1)
	assert.Equal(t, uint32(7), s.Bounds[0].Material)
}

func TestBuildRejectsUnknownMeshMaterial(t *testing.T) {
	_, err := Build(primitive.NewRegistry(), singleTriangleGraph(), NewExtractor(), WithMeshMaterial(3))
	assert.ErrorIs(t, err, primitive.ErrUnknownMaterial)
}

func TestCullKeepsBoundsAndMaxCount(t *testing.T) {
	reg := primitive.DefaultRegistry()
	s, err := Build(reg, singleTriangleGraph(), NewExtractor(), WithMeshMaterial(3))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.TriangleCount)

	require.NoError(t, s.Cull(mgl32.Vec3{0, 0, -1}))
	assert.Equal(t, uint32(0), s.TriangleCount)
	assert.Equal(t, uint32(1), s.MaxTriangleCount)
	assert.Len(t, s.Bounds, 1)
	assert.LessOrEqual(t, s.TriangleCount, s.MaxTriangleCount)

	require.NoError(t, s.Cull(mgl32.Vec3{0, 0, 1}))
	assert.Equal(t, uint32(1), s.TriangleCount)
}

func TestMarshalNeverEmpty(t *testing.T) {
	s, err := Build(primitive.NewRegistry(), nil, NewExtractor())
	require.NoError(t, err)

	assert.Len(t, s.MarshalMaterials(), primitive.MaterialSize)
	assert.Len(t, s.MarshalSpheres(), primitive.SphereSize)
	assert.Len(t, s.MarshalTriangles(), TriangleSize)
	assert.Len(t, s.MarshalBounds(), MeshBoundSize)
	assert.Len(t, s.MarshalBVH(), BVHNodeSize)

	// inverted box: min.x > max.x
	b := s.MarshalBounds()
	assert.Greater(t, common.Float32At(b, 0), common.Float32At(b, 16))
}

func TestTriangleAndBoundLayout(t *testing.T) {
	tri := Triangle{A: mgl32.Vec3{1, 2, 3}, B: mgl32.Vec3{4, 5, 6}, C: mgl32.Vec3{7, 8, 9}, Node: 5}
	buf := make([]byte, TriangleSize)
	tri.MarshalTo(buf)
	for i, want := range []float32{1, 2, 3, 5, 4, 5, 6, 5, 7, 8, 9, 5} {
		assert.Equal(t, want, common.Float32At(buf, i*4), "float %d", i)
	}
	got, err := UnmarshalTriangle(buf)
	require.NoError(t, err)
	assert.Equal(t, tri, got)

	bound := MeshBound{Min: mgl32.Vec3{-1, -2, -3}, Max: mgl32.Vec3{1, 2, 3}, Node: 4, Material: 2}
	buf = make([]byte, MeshBoundSize)
	bound.MarshalTo(buf)
	assert.Equal(t, float32(2), common.Float32At(buf, 12))
	assert.Equal(t, float32(4), common.Float32At(buf, 28))
	gotBound, err := UnmarshalMeshBound(buf)
	require.NoError(t, err)
	assert.Equal(t, bound, gotBound)
}

func randomTriangles(n int, seed int64) []Triangle {
	r := rand.New(rand.NewSource(seed))
	out := make([]Triangle, n)
	for i := range out {
		c := mgl32.Vec3{r.Float32()*20 - 10, r.Float32()*20 - 10, r.Float32()*20 - 10}
		out[i] = Triangle{
			A:    c,
			B:    c.Add(mgl32.Vec3{r.Float32(), 0, 0}),
			C:    c.Add(mgl32.Vec3{0, r.Float32(), 0.1}),
			Node: uint32(i),
		}
	}
	return out
}

func TestBuildBVHCoversEveryTriangle(t *testing.T) {
	tris := randomTriangles(200, 1)
	nodes, ordered := BuildBVH(tris, 4)

	require.Len(t, ordered, len(tris))
	require.NotEmpty(t, nodes)

	seen := make(map[uint32]bool)
	for i, tri := range ordered {
		seen[tri.Node] = true

		leaf := -1
		for idx, n := range nodes {
			if !n.IsLeaf() {
				continue
			}
			first, count := n.Leaf()
			if i >= first && i < first+count {
				leaf = idx
			}
		}
		require.GreaterOrEqual(t, leaf, 0, "triangle %d not in a leaf", i)

		box := tri.BBox()
		n := nodes[leaf]
		for _, p := range box {
			for a := 0; a < 3; a++ {
				assert.GreaterOrEqual(t, p[a], n.Min[a])
				assert.LessOrEqual(t, p[a], n.Max[a])
			}
		}
	}
	assert.Len(t, seen, len(tris))

	// children of inner nodes are always after the root
	for _, n := range nodes {
		if !n.IsLeaf() {
			assert.Positive(t, n.Left)
			assert.Positive(t, n.Right)
		}
	}
	assert.False(t, nodes[0].IsLeaf())
}

// bvhDepth returns the deepest level of any node below index.
func bvhDepth(nodes []BVHNode, index int32) int {
	n := nodes[index]
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(bvhDepth(nodes, n.Left), bvhDepth(nodes, n.Right))
}

func TestBuildBVHCapsDepth(t *testing.T) {
	tris := randomTriangles(200, 3)

	nodes, ordered := buildBVH(tris, 1, 2)
	assert.LessOrEqual(t, bvhDepth(nodes, 0), 2)
	assert.Len(t, ordered, len(tris))

	covered := 0
	for _, n := range nodes {
		if n.IsLeaf() {
			_, count := n.Leaf()
			covered += count
		}
	}
	assert.Equal(t, len(tris), covered)

	nodes, _ = BuildBVH(tris, 1)
	assert.LessOrEqual(t, bvhDepth(nodes, 0), MaxBVHDepth)
}

func TestBuildBVHSmallInputIsOneLeaf(t *testing.T) {
	nodes, ordered := BuildBVH(randomTriangles(3, 2), 4)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].IsLeaf())
	first, count := nodes[0].Leaf()
	assert.Equal(t, 0, first)
	assert.Equal(t, 3, count)
	assert.Len(t, ordered, 3)

	empty, none := BuildBVH(nil, 4)
	assert.Equal(t, EmptyBVH(), empty)
	assert.Nil(t, none)
}

func TestSceneWithBVHReordersTriangles(t *testing.T) {
	var nodes []Node
	for i := range 30 {
		nodes = append(nodes, Node{Local: mgl32.Translate3D(float32(i*3), 0, 0), Mesh: &Mesh{Primitives: []Primitive{unitTriangle()}}})
	}
	s, err := Build(primitive.DefaultRegistry(), &Graph{Nodes: nodes}, NewExtractor(), WithBVH(2), WithMeshMaterial(3))
	require.NoError(t, err)
	assert.Len(t, s.Triangles, 30)
	assert.Greater(t, len(s.BVH), 1)
	assert.Len(t, s.MarshalBVH(), len(s.BVH)*BVHNodeSize)
}

func TestWriteStats(t *testing.T) {
	s, err := Build(primitive.DefaultRegistry(), singleTriangleGraph(), NewExtractor(), WithMeshMaterial(3))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.WriteStats(&buf)
	out := buf.String()
	assert.Contains(t, out, "Materials")
	assert.Contains(t, out, "7 (3 emissive)")
	assert.Contains(t, out, "1 / 1")
}
