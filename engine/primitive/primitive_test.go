package primitive

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialRoundTrip(t *testing.T) {
	for i, m := range DefaultMaterials() {
		got, err := UnmarshalMaterial(m.Marshal())
		require.NoError(t, err)
		assert.Equal(t, m, got, "material %d", i)
	}
}

func TestSphereRoundTrip(t *testing.T) {
	for i, s := range DefaultSpheres() {
		got, err := UnmarshalSphere(s.Marshal())
		require.NoError(t, err)
		assert.Equal(t, s, got, "sphere %d", i)
	}
}

func TestRegistryMaterialLayout(t *testing.T) {
	r := NewRegistry()
	a := NewMaterial(WithDiffuse(0.1, 0.2, 0.3), WithRoughness(0.4), WithSpecular(0.5, 0.6, 0.7), WithMetalness(0.8), WithEmissive(1, 2, 3))
	b := NewMaterial(WithDiffuse(0.9, 0.8, 0.7), WithRoughness(0.6))
	assert.Equal(t, uint32(0), r.AddMaterial(a))
	assert.Equal(t, uint32(1), r.AddMaterial(b))

	buf := r.MarshalMaterials()
	require.Len(t, buf, 2*MaterialSize)

	offsets := map[int]float32{
		0: 0.1, 4: 0.2, 8: 0.3, 12: 0.4,
		16: 0.5, 20: 0.6, 24: 0.7, 28: 0.8,
		32: 1, 36: 2, 40: 3, 44: 0,
		MaterialSize + 0:  0.9,
		MaterialSize + 12: 0.6,
		MaterialSize + 16: 0,
	}
	for off, want := range offsets {
		assert.Equal(t, want, common.Float32At(buf, off), "offset %d", off)
	}

	decoded, err := UnmarshalMaterials(buf)
	require.NoError(t, err)
	assert.Equal(t, []Material{a, b}, decoded)
}

func TestRegistrySphereLayout(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, 7, r.MaterialCount())
	require.Equal(t, 7, r.SphereCount())

	buf := r.MarshalSpheres()
	require.Len(t, buf, 7*SphereSize)

	// ground sphere is the fourth record
	ground := buf[3*SphereSize:]
	assert.Equal(t, float32(-500), common.Float32At(ground, 4))
	assert.Equal(t, float32(498), common.Float32At(ground, 12))
	assert.Equal(t, float32(3), common.Float32At(ground, 16))

	decoded, err := UnmarshalSpheres(buf)
	require.NoError(t, err)
	assert.Equal(t, r.Spheres(), decoded)
}

func TestAddSphereRejectsUnknownMaterial(t *testing.T) {
	r := NewRegistry()
	r.AddMaterial(NewMaterial())

	_, err := r.AddSphere(NewSphere(WithMaterialIndex(1)))
	assert.ErrorIs(t, err, ErrUnknownMaterial)
	assert.Equal(t, 0, r.SphereCount())
}

func TestInlineSphereMaterialDefaultsRoughness(t *testing.T) {
	m := InlineSphereMaterial(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, nil)
	assert.Equal(t, DefaultSphereRoughness, m.Roughness)
	assert.False(t, m.IsEmissive())

	r := float32(0.2)
	m = InlineSphereMaterial(mgl32.Vec3{}, mgl32.Vec3{5, 5, 5}, &r)
	assert.Equal(t, float32(0.2), m.Roughness)
	assert.True(t, m.IsEmissive())
}

func TestUnmarshalRejectsPartialRecords(t *testing.T) {
	_, err := UnmarshalMaterial(make([]byte, MaterialSize-1))
	assert.ErrorIs(t, err, ErrRecordSize)
	_, err = UnmarshalSpheres(make([]byte, SphereSize+4))
	assert.ErrorIs(t, err, ErrRecordSize)
}

func TestNewSphereDefaults(t *testing.T) {
	s := NewSphere()
	assert.Equal(t, float32(1), s.Radius)
	assert.Equal(t, uint32(0), s.Material)
}
