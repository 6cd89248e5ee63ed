package scene

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUTriangleSource is the canonical WGSL definition of the Triangle struct (48 bytes).
//
//go:embed assets/triangle.wgsl
var GPUTriangleSource string

// GPUMeshBoundSource is the canonical WGSL definition of the MeshBound struct (32 bytes).
//
//go:embed assets/mesh_bound.wgsl
var GPUMeshBoundSource string

// GPUBVHNodeSource is the canonical WGSL definition of the BVHNode struct (32 bytes).
//
//go:embed assets/bvh_node.wgsl
var GPUBVHNodeSource string

const (
	// TriangleSize is the serialized size of one Triangle record in bytes.
	TriangleSize = 48
	// MeshBoundSize is the serialized size of one MeshBound record in bytes.
	MeshBoundSize = 32
	// BVHNodeSize is the serialized size of one BVHNode record in bytes.
	BVHNodeSize = 32
)

// Triangle is a world-space triangle emitted by the extractor.
type Triangle struct {
	A, B, C mgl32.Vec3
	// Node is the index of the graph node the triangle came from.
	Node uint32
}

// MeshBound is the world-space AABB of every triangle a mesh node owns.
type MeshBound struct {
	Min, Max mgl32.Vec3
	Node     uint32
	Material uint32
}

// BVHNode is one node of the flattened bounding volume hierarchy.
// An inner node stores its child indices in Left and Right (both > 0). A leaf stores
// -firstTriangle in Left and -triangleCount in Right.
type BVHNode struct {
	Min   mgl32.Vec3
	Left  int32
	Max   mgl32.Vec3
	Right int32
}

// IsLeaf reports whether n is a leaf.
func (n BVHNode) IsLeaf() bool {
	return n.Right < 0
}

// Leaf returns the triangle range of a leaf node.
func (n BVHNode) Leaf() (first, count int) {
	return int(-n.Left), int(-n.Right)
}

// MarshalTo writes the triangle into dst. Each vertex is a vec4 whose w carries the node index.
//
//	offset  0: a.xyz, node
//	offset 16: b.xyz, node
//	offset 32: c.xyz, node
func (t Triangle) MarshalTo(dst []byte) {
	n := float32(t.Node)
	common.PutFloat32s(dst[:TriangleSize],
		t.A[0], t.A[1], t.A[2], n,
		t.B[0], t.B[1], t.B[2], n,
		t.C[0], t.C[1], t.C[2], n,
	)
}

// MarshalTo writes the bound into dst.
//
//	offset  0: min.xyz, material index
//	offset 16: max.xyz, node index
func (b MeshBound) MarshalTo(dst []byte) {
	common.PutFloat32s(dst[:MeshBoundSize],
		b.Min[0], b.Min[1], b.Min[2], float32(b.Material),
		b.Max[0], b.Max[1], b.Max[2], float32(b.Node),
	)
}

// MarshalTo writes the node into dst.
func (n BVHNode) MarshalTo(dst []byte) {
	common.PutFloat32s(dst[:12], n.Min[0], n.Min[1], n.Min[2])
	binary.LittleEndian.PutUint32(dst[12:], uint32(n.Left))
	common.PutFloat32s(dst[16:28], n.Max[0], n.Max[1], n.Max[2])
	binary.LittleEndian.PutUint32(dst[28:], uint32(n.Right))
}

// UnmarshalTriangle decodes one triangle record.
func UnmarshalTriangle(src []byte) (Triangle, error) {
	if len(src) < TriangleSize {
		return Triangle{}, fmt.Errorf("triangle record needs %d bytes, got %d", TriangleSize, len(src))
	}
	f := func(i int) float32 { return common.Float32At(src, i*4) }
	return Triangle{
		A:    mgl32.Vec3{f(0), f(1), f(2)},
		B:    mgl32.Vec3{f(4), f(5), f(6)},
		C:    mgl32.Vec3{f(8), f(9), f(10)},
		Node: uint32(f(3)),
	}, nil
}

// UnmarshalMeshBound decodes one mesh bound record.
func UnmarshalMeshBound(src []byte) (MeshBound, error) {
	if len(src) < MeshBoundSize {
		return MeshBound{}, fmt.Errorf("mesh bound record needs %d bytes, got %d", MeshBoundSize, len(src))
	}
	f := func(i int) float32 { return common.Float32At(src, i*4) }
	return MeshBound{
		Min:      mgl32.Vec3{f(0), f(1), f(2)},
		Material: uint32(f(3)),
		Max:      mgl32.Vec3{f(4), f(5), f(6)},
		Node:     uint32(f(7)),
	}, nil
}

func marshalRecords[T interface{ MarshalTo([]byte) }](items []T, size int) []byte {
	buf := make([]byte, len(items)*size)
	for i, it := range items {
		it.MarshalTo(buf[i*size:])
	}
	return buf
}
