package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceKernelBindingTable(t *testing.T) {
	p, err := TracePipeline()
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	cs := p.Shader(shader.ShaderTypeCompute)
	assert.Equal(t, [3]uint32{16, 16, 1}, cs.WorkgroupSize())

	want := map[int]shader.AnnotationArg{
		0: shader.AnnotationArgCamera,
		1: shader.AnnotationArgSphere,
		2: shader.AnnotationArgTriangle,
		3: shader.AnnotationArgMaterial,
		4: shader.AnnotationArgMeshBound,
		5: shader.AnnotationArgHistory,
		6: shader.AnnotationArgOutput,
		7: shader.AnnotationArgBVHNode,
	}
	got := make(map[int]shader.AnnotationArg)
	for _, d := range cs.Declarations() {
		require.Equal(t, 0, *d.Group)
		got[*d.Binding] = d.Resource()
	}
	assert.Equal(t, want, got)

	entries := p.BindGroupLayouts()[0].Entries
	require.Len(t, entries, 8)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[5].Texture.SampleType)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, entries[6].StorageTexture.Format)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, entries[7].Buffer.Type)
}

func TestKernelStructsMatchHostRecordSizes(t *testing.T) {
	p, err := TracePipeline()
	require.NoError(t, err)
	cs := p.Shader(shader.ShaderTypeCompute)

	for name, want := range map[string]int{
		"Camera":    camera.GPUCameraUniformSize,
		"Material":  primitive.MaterialSize,
		"Sphere":    primitive.SphereSize,
		"Triangle":  scene.TriangleSize,
		"MeshBound": scene.MeshBoundSize,
		"BVHNode":   scene.BVHNodeSize,
	} {
		size, _, ok := cs.StructLayout(name)
		require.True(t, ok, name)
		assert.Equal(t, uint64(want), size, name)
	}
}

func TestPresentPipelineBindings(t *testing.T) {
	p, err := PresentPipeline()
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	vs := p.Shader(shader.ShaderTypeVertex)
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", p.Shader(shader.ShaderTypeFragment).EntryPoint())

	roles := map[int]shader.AnnotationArg{}
	for _, d := range vs.Declarations() {
		roles[*d.Binding] = d.Resource()
	}
	assert.Equal(t, map[int]shader.AnnotationArg{0: shader.AnnotationArgSampler, 1: shader.AnnotationArgHistory}, roles)
}

func TestUsageTranslation(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, (BufferUsageStorage | BufferUsageCopyDst).wgpu())
	assert.Equal(t, wgpu.TextureUsageStorageBinding|wgpu.TextureUsageCopySrc, (TextureUsageStorageBinding | TextureUsageCopySrc).wgpu())
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, TextureFormatRGBA16Float.wgpu())
	assert.Equal(t, uint32(8), TextureFormatRGBA16Float.BytesPerTexel())
	assert.Equal(t, uint32(4), TextureFormatRGBA8Unorm.BytesPerTexel())
}

func TestChooseSurfaceFormatPrefersLinear(t *testing.T) {
	f, ok := chooseSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm})
	require.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, f)

	f, ok = chooseSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float})
	require.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, f)

	_, ok = chooseSurfaceFormat(nil)
	assert.False(t, ok)
}
