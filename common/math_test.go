package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := mgl32.Vec3{3, 2, 5}
	view := LookAt(eye, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	got := TransformPoint(view, eye)
	assert.InDeltaSlice(t, []float32{0, 0, 0}, got[:], 1e-5, "eye maps to %v", got)

	// The target lies straight down -Z in view space.
	target := TransformPoint(view, mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 0, target.X(), 1e-5)
	assert.InDelta(t, 0, target.Y(), 1e-5)
	assert.Less(t, target.Z(), float32(0))
}

func TestInvert4(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.7))
	inv, ok := Invert4(m)
	require.True(t, ok)
	ident, product := mgl32.Ident4(), m.Mul4(inv)
	assert.InDeltaSlice(t, ident[:], product[:], 1e-5)

	_, ok = Invert4(mgl32.Mat4{})
	assert.False(t, ok)
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(100)
	proj := Perspective(1.2, 16.0/9.0, near, far)

	clipNear := proj.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	clipFar := proj.Mul4x1(mgl32.Vec4{0, 0, -far, 1})
	assert.InDelta(t, 0, clipNear.Z()/clipNear.W(), 1e-5)
	assert.InDelta(t, 1, clipFar.Z()/clipFar.W(), 1e-4)
}

func TestWorkgroupCount(t *testing.T) {
	cases := []struct {
		n, size, want uint32
	}{
		{0, 16, 0},
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{1920, 16, 120},
		{1080, 16, 68},
		{5, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WorkgroupCount(c.n, c.size), "n=%d size=%d", c.n, c.size)
	}

	assert.Equal(t, [3]uint32{50, 38, 1}, Extent{Width: 800, Height: 600}.Workgroups())
}

func TestFloat32RoundTrip(t *testing.T) {
	buf := make([]byte, 12)
	PutFloat32s(buf, 1.5, -2, 0.25)
	assert.Equal(t, float32(1.5), Float32At(buf, 0))
	assert.Equal(t, float32(-2), Float32At(buf, 4))
	assert.Equal(t, float32(0.25), Float32At(buf, 8))
}
