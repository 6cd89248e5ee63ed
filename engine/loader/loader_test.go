package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleBuffer packs three vec3 positions followed by three uint16 indices (padded to 4 bytes).
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, i := range []uint16{0, 1, 2, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

// triangleDocument returns a document with a parent node translated by (0,0,5) and a child node,
// rotated 90 degrees about Y, drawing one red triangle.
func triangleDocument(t *testing.T, extra func(doc map[string]any)) map[string]any {
	t.Helper()
	data := triangleBuffer()
	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{
			map[string]any{"name": "parent", "translation": []float32{0, 0, 5}, "children": []int{1}},
			map[string]any{"name": "child", "mesh": 0, "rotation": []float32{0, float32(math.Sin(math.Pi / 4)), 0, float32(math.Cos(math.Pi / 4))}},
		},
		"meshes": []any{map[string]any{
			"name":       "tri",
			"primitives": []any{map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1, "material": 0}},
		}},
		"materials": []any{map[string]any{
			"name":                 "red",
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{1, 0, 0, 1}, "roughnessFactor": 0.25},
			"emissiveFactor":       []float32{0, 0, 2},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"buffers": []any{map[string]any{
			"byteLength": len(data),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data),
		}},
	}
	if extra != nil {
		extra(doc)
	}
	return doc
}

func writeDocument(t *testing.T, dir, name string, doc map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoadGLTFBuildsGraph(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "tri.gltf", triangleDocument(t, nil))

	l := NewLoader(BackendTypeGLTF)
	g, err := l.Load(path)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, []int{0}, g.Roots)
	assert.Equal(t, []int{1}, g.Nodes[0].Children)
	require.NotNil(t, g.Nodes[1].Mesh)
	require.Len(t, g.Nodes[1].Mesh.Primitives, 1)

	prim := g.Nodes[1].Mesh.Primitives[0]
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, prim.Positions[1])
	require.NotNil(t, prim.Material)
	assert.Equal(t, 0, *prim.Material)

	require.Len(t, g.Materials, 1)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, g.Materials[0].Diffuse)
	assert.InDelta(t, 0.25, g.Materials[0].Roughness, 1e-6)
	assert.InDelta(t, 1.0, g.Materials[0].Metalness, 1e-6)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, g.Materials[0].Specular)
	assert.Equal(t, mgl32.Vec3{0, 0, 2}, g.Materials[0].Emissive)

	world, err := g.WorldTransforms()
	require.NoError(t, err)
	// (1,0,0) rotated 90 degrees about Y is (0,0,-1), then lifted to z=5.
	p := world[1].Mul4x1(prim.Positions[1].Vec4(1)).Vec3()
	want := mgl32.Vec3{0, 0, 4}
	assert.InDeltaSlice(t, want[:], p[:], 1e-5, "got %v", p)

	assert.Same(t, g, l.Get(path))
	again, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, g, again)
}

func TestLoadGLTFMatrixNode(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "m.gltf", triangleDocument(t, func(doc map[string]any) {
		nodes := doc["nodes"].([]any)
		nodes[0] = map[string]any{
			"children": []int{1},
			"matrix":   []float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 1, 2, 3, 1},
		}
		nodes[1] = map[string]any{"mesh": 0}
	}))

	g, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	world, err := g.WorldTransforms()
	require.NoError(t, err)
	p := world[1].Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.Equal(t, mgl32.Vec3{3, 2, 3}, p)
}

func TestLoadGLTFSkipsNonTrianglePrimitives(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "lines.gltf", triangleDocument(t, func(doc map[string]any) {
		mesh := doc["meshes"].([]any)[0].(map[string]any)
		mesh["primitives"] = []any{
			map[string]any{"attributes": map[string]int{"POSITION": 0}, "indices": 1, "mode": 1},
			map[string]any{"attributes": map[string]int{"POSITION": 0}},
		}
	}))

	g, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)
	prims := g.Nodes[1].Mesh.Primitives
	require.Len(t, prims, 1)
	assert.Nil(t, prims[0].Indices)
	assert.Len(t, prims[0].Positions, 3)
	assert.Nil(t, prims[0].Material)
}

func TestLoadGLTFErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		mod   func(doc map[string]any)
		match string
	}{
		{
			name:  "bad version",
			mod:   func(doc map[string]any) { doc["asset"] = map[string]any{"version": "1.0"} },
			match: "invalid glTF version",
		},
		{
			name: "accessor past buffer",
			mod: func(doc map[string]any) {
				doc["accessors"].([]any)[0].(map[string]any)["count"] = 30
			},
			match: "buffer size mismatch",
		},
		{
			name:  "root out of range",
			mod:   func(doc map[string]any) { doc["scenes"] = []any{map[string]any{"nodes": []int{7}}} },
			match: "root node 7 out of range",
		},
		{
			name: "material out of range",
			mod: func(doc map[string]any) {
				doc["materials"] = []any{}
			},
			match: "material 0 out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDocument(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".gltf", triangleDocument(t, tt.mod))
			_, err := NewLoader(BackendTypeGLTF).Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.match)
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader(BackendTypeGLTF).Load("scene.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadReaderGLB(t *testing.T) {
	doc := triangleDocument(t, nil)
	data := triangleBuffer()
	doc["buffers"] = []any{map[string]any{"byteLength": len(data)}}
	jsonData, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}

	var glb bytes.Buffer
	total := 12 + 8 + len(jsonData) + 8 + len(data)
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)}))
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonData)), ChunkType: gltfGLBChunkJSON}))
	glb.Write(jsonData)
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(data)), ChunkType: gltfGLBChunkBIN}))
	glb.Write(data)

	l := NewLoader(BackendTypeGLTF)
	g, err := l.LoadReader("mem", &glb, true)
	require.NoError(t, err)
	assert.Equal(t, 1, g.MeshNodeCount())
	assert.Contains(t, l.Graphs(), "mem")

	l.Evict("mem")
	assert.Nil(t, l.Get("mem"))
}

func TestLoadedGraphBuildsScene(t *testing.T) {
	path := writeDocument(t, t.TempDir(), "tri.gltf", triangleDocument(t, nil))
	g, err := NewLoader(BackendTypeGLTF).Load(path)
	require.NoError(t, err)

	reg := primitive.DefaultRegistry()
	s, err := scene.Build(reg, g, scene.NewExtractor(scene.WithWorkers(2)), scene.WithMeshMaterial(3))
	require.NoError(t, err)
	require.Len(t, s.Bounds, 1)
	assert.Equal(t, uint32(reg.MaterialCount()), s.Bounds[0].Material)
	assert.Equal(t, uint32(1), s.TriangleCount)
}

const descriptionYAML = `
materials:
  - { diffuse: [0.3, 0.5, 1.0], roughness: 0.7, specular: [1, 1, 1], metalness: 0 }
spheres:
  - { position: [-4, 0, 0], radius: 0.8, material: 0 }
  - { position: [0, 4, 0], radius: 1, emissive: [4, 4, 4] }
meshes:
  - path: a.gltf
  - path: b.gltf
camera:
  position: [0, 1, 12]
`

func TestLoadDescription(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "a.gltf", triangleDocument(t, nil))
	writeDocument(t, dir, "b.gltf", triangleDocument(t, func(doc map[string]any) {
		doc["nodes"].([]any)[0].(map[string]any)["name"] = "second"
	}))
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(descriptionYAML), 0o644))

	src, err := LoadDescription(context.Background(), path, NewLoader(BackendTypeGLTF))
	require.NoError(t, err)

	assert.Equal(t, path, src.Path)
	assert.Equal(t, 2, src.Registry.MaterialCount())
	spheres := src.Registry.Spheres()
	require.Len(t, spheres, 2)
	assert.Equal(t, uint32(0), spheres[0].Material)
	assert.Equal(t, uint32(1), spheres[1].Material)
	inline := src.Registry.Materials()[1]
	assert.True(t, inline.IsEmissive())
	assert.Equal(t, primitive.DefaultSphereRoughness, inline.Roughness)

	require.NotNil(t, src.Graph)
	require.Len(t, src.Graph.Nodes, 4)
	assert.Equal(t, "parent", src.Graph.Nodes[0].Name)
	assert.Equal(t, "second", src.Graph.Nodes[2].Name)
	assert.Equal(t, []int{0, 2}, src.Graph.Roots)
	assert.Len(t, src.Graph.Materials, 2)
	assert.Equal(t, []string{filepath.Join(dir, "a.gltf"), filepath.Join(dir, "b.gltf")}, src.MeshPaths)

	require.NotNil(t, src.Camera)
	require.NotNil(t, src.Camera.Position)
	assert.Equal(t, [3]float32{0, 1, 12}, *src.Camera.Position)
	assert.Nil(t, src.Camera.Target)
}

func TestLoadDescriptionEmptyPathIsSample(t *testing.T) {
	src, err := LoadDescription(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, len(primitive.DefaultMaterials()), src.Registry.MaterialCount())
	assert.Nil(t, src.Graph)
}

func TestDescriptionErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
		text string
	}{
		{name: "empty", yaml: "", err: ErrNoScene},
		{name: "nothing to draw", yaml: "materials: [{ roughness: 1 }]\n", err: ErrNoScene},
		{name: "bad material", yaml: "spheres: [{ radius: 1, material: 2 }]\n", err: primitive.ErrUnknownMaterial},
		{name: "unknown key", yaml: "lights: []\n", text: "field lights not found"},
		{name: "missing mesh", yaml: "meshes: [{ path: gone.gltf }]\n", text: "mesh 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescription(strings.NewReader(tt.yaml))
			if err == nil {
				_, err = d.Resolve(context.Background(), t.TempDir(), NewLoader(BackendTypeGLTF))
			}
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			if tt.text != "" {
				assert.Contains(t, err.Error(), tt.text)
			}
		})
	}
}
