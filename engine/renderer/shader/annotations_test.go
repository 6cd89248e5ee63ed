package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("struct Foo {}", 1)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = parseAnnotation("  //@oxy:group 0 3 storage_read materials array<material>", 7)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, AnnotationTypeBindingGroup, a.Type)
	assert.Equal(t, 7, a.Line)
	assert.Equal(t, 0, *a.Group)
	assert.Equal(t, 3, *a.Binding)
	assert.Equal(t, AnnotationArgMaterial, a.Resource())

	a, err = parseAnnotation("//@oxy:provider 0 0 accumulation", 2)
	require.NoError(t, err)
	assert.Equal(t, AnnotationArgAccumulation, a.Resource(), "identity stands in for a missing role")

	a, err = parseAnnotation("//@oxy:include bvh_node", 3)
	require.NoError(t, err)
	assert.Empty(t, a.Resource())
}

func TestParseAnnotationErrors(t *testing.T) {
	tests := []struct {
		line     string
		contains string
	}{
		{"//@oxy:", "empty @oxy annotation"},
		{"//@oxy:paint 0 0", "unknown @oxy annotation"},
		{"//@oxy:include", "exactly one struct"},
		{"//@oxy:group 0 0 storage_uniform camera", "takes group, binding"},
		{"//@oxy:group x 0 storage_uniform camera camera", "invalid group"},
		{"//@oxy:group 0 y storage_uniform camera camera", "invalid binding"},
		{"//@oxy:group 0 0 private camera camera", "unknown address space"},
		{"//@oxy:group 0 0 storage_read things array<thing>", "unknown struct"},
		{"//@oxy:provider 0 0 lights", "unknown provider"},
		{"//@oxy:provider 0 0 accumulation depth", "unknown role"},
		{"//@oxy:provider 0 0", "optional role"},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			_, err := parseAnnotation(tc.line, 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestPreProcessorResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:group 0 0 storage_uniform camera camera")
	require.NoError(t, err)
	assert.Len(t, pp.Declarations(), 1)

	out, err := pp.Process("fn f() {}")
	require.NoError(t, err)
	assert.Equal(t, "fn f() {}", out)
	assert.Empty(t, pp.Declarations())
}

func TestRoundUpAlignAndArrays(t *testing.T) {
	assert.Equal(t, uint64(16), roundUpAlign(16, 12))
	assert.Equal(t, uint64(7), roundUpAlign(0, 7))

	l, ok := resolveTypeLayout("array<vec3<f32>, 3>", nil)
	require.True(t, ok)
	assert.Equal(t, uint64(48), l.size)

	_, ok = resolveTypeLayout("array<Unknown>", nil)
	assert.False(t, ok)
	assert.Equal(t, []string{"a: array<f32, 4>", " b: u32"}, splitAtTopLevelCommas("a: array<f32, 4>, b: u32"))
}
