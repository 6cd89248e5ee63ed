package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCamera(options ...CameraBuilderOption) Camera {
	base := []CameraBuilderOption{
		WithPosition(0, 0, 10),
		WithTarget(0, 0, 0),
		WithViewport(800, 600),
	}
	return NewCamera(append(base, options...)...)
}

// assertVec3Near compares element-wise with an absolute tolerance; mgl32's ApproxEqual is relative
// and rejects tiny residues against an exact zero.
func assertVec3Near(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	assert.InDeltaSlice(t, want[:], got[:], delta, "got %v", got)
}

func assertInverses(t *testing.T, c Camera) {
	t.Helper()
	ident := mgl32.Ident4()
	view := c.ViewMatrix().Mul4(c.InverseViewMatrix())
	proj := c.ProjectionMatrix().Mul4(c.InverseProjectionMatrix())
	assert.InDeltaSlice(t, ident[:], view[:], 1e-4, "view x inverse(view) != I")
	assert.InDeltaSlice(t, ident[:], proj[:], 1e-4, "projection x inverse(projection) != I")
}

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera(WithPosition(0, 0, 5))
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, c.Up())
	assert.InDelta(t, 2*math.Pi/5, c.FovY(), 1e-6)
	assert.Equal(t, uint32(1), c.Width())
	assert.Equal(t, uint32(1), c.Height())
	assert.Equal(t, float32(0.01), c.Near())
	assert.Equal(t, float32(100), c.Far())
	assert.Equal(t, uint32(1), c.Timestep())
	assertInverses(t, c)
}

func TestInversesHoldForManyConfigurations(t *testing.T) {
	configs := [][]CameraBuilderOption{
		{WithPosition(3, 4, 5), WithTarget(-1, 0, 2)},
		{WithPosition(0, 10, 0.5), WithTarget(0, 0, 0), WithFovY(0.4)},
		{WithPosition(-7, -2, 1), WithTarget(1, 1, 1), WithViewport(1920, 1080), WithClipPlanes(0.1, 500)},
		{WithPosition(0, 0, -3), WithTarget(0, 0, 0), WithUp(1, 0, 0), WithViewport(300, 900)},
	}
	for _, opts := range configs {
		assertInverses(t, newTestCamera(opts...))
	}
}

func TestApplyDeltaResetsTimestepAndUpdatesMatrices(t *testing.T) {
	deltas := [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-1, -1, -1}, {0, 0, -1}}
	for _, d := range deltas {
		c := newTestCamera()
		for range 5 {
			c.AdvanceTimestep()
		}
		require.Equal(t, uint32(6), c.Timestep())

		before := c.ViewMatrix()
		changed := c.ApplyDelta(d[0], d[1], d[2])

		assert.True(t, changed, "delta %v", d)
		assert.Equal(t, uint32(1), c.Timestep(), "delta %v", d)
		assert.NotEqual(t, before, c.ViewMatrix(), "delta %v", d)
		assertInverses(t, c)
	}
}

func TestApplyZeroDeltaIsNoop(t *testing.T) {
	c := newTestCamera()
	c.SetTimestep(9)
	before := c.ViewMatrix()

	assert.False(t, c.ApplyDelta(0, 0, 0))
	assert.Equal(t, uint32(9), c.Timestep())
	assert.Equal(t, before, c.ViewMatrix())
}

func TestApplyDeltaOrbitKeepsRadius(t *testing.T) {
	c := newTestCamera(WithOrbitStep(0.1))
	c.ApplyDelta(3, 2, 0)

	assert.InDelta(t, 10, c.Position().Sub(c.Target()).Len(), 1e-4)
	assert.Equal(t, mgl32.Vec3{}, c.Target())
}

func TestApplyDeltaYawRotatesAboutUp(t *testing.T) {
	c := newTestCamera(WithOrbitStep(float32(math.Pi / 2)))
	c.ApplyDelta(1, 0, 0)

	// (0, 0, 10) rotated a quarter turn about +Y lands on +X.
	assertVec3Near(t, mgl32.Vec3{10, 0, 0}, c.Position(), 1e-4)
}

func TestApplyDeltaZoomScalesRadius(t *testing.T) {
	c := newTestCamera(WithZoomFactor(0.5))
	c.ApplyDelta(0, 0, 1)
	assert.InDelta(t, 15, c.Position().Len(), 1e-4)

	c.ApplyDelta(0, 0, -1)
	assert.InDelta(t, 7.5, c.Position().Len(), 1e-4)
}

func TestApplyDeltaZoomClampsToMinRadius(t *testing.T) {
	c := newTestCamera(WithZoomFactor(2), WithMinRadius(0.5))
	c.ApplyDelta(0, 0, -1)
	assert.InDelta(t, 0.5, c.Position().Len(), 1e-5)
}

func TestApplyDeltaPitchStopsAtPole(t *testing.T) {
	c := newTestCamera(WithOrbitStep(0.2))
	for range 50 {
		c.ApplyDelta(0, 1, 0)
	}
	dir := c.Direction()
	assert.Less(t, math.Abs(float64(dir.Dot(mgl32.Vec3{0, 1, 0}))), 1.0)
	assertInverses(t, c)
}

func TestDirection(t *testing.T) {
	c := newTestCamera()
	assertVec3Near(t, mgl32.Vec3{0, 0, -1}, c.Direction(), 1e-6)

	c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 4})
	assertVec3Near(t, mgl32.Vec3{0, 0, 1}, c.Direction(), 1e-6)
	assert.Equal(t, uint32(1), c.Timestep())
}

func TestResizeResetsTimestep(t *testing.T) {
	c := newTestCamera()
	for range 3 {
		c.AdvanceTimestep()
	}

	c.Resize(1920, 1080)

	assert.Equal(t, uint32(1), c.Timestep())
	assert.Equal(t, uint32(1920), c.Width())
	assert.Equal(t, uint32(1080), c.Height())
	assert.InDelta(t, 1920.0/1080.0, c.Aspect(), 1e-6)

	var u GPUCameraUniform
	require.NoError(t, u.Unmarshal(c.Serialize()))
	assert.Equal(t, float32(1920), u.Width)
	assert.Equal(t, float32(1080), u.Height)
	assert.Equal(t, float32(1), u.Timestep)
	assertInverses(t, c)
}

func TestSerializeLayout(t *testing.T) {
	c := newTestCamera(WithClipPlanes(0.5, 250))
	c.SetTriangleCounts(12, 40)
	c.SetTimestep(7)

	buf := c.Serialize()
	require.Len(t, buf, GPUCameraUniformSize)

	invView := c.InverseViewMatrix()
	invProj := c.InverseProjectionMatrix()
	for i := range 16 {
		assert.Equal(t, invView[i], common.Float32At(buf, i*4), "inverse view [%d]", i)
		assert.Equal(t, invProj[i], common.Float32At(buf, 64+i*4), "inverse projection [%d]", i)
	}
	assert.Equal(t, float32(800), common.Float32At(buf, 128))
	assert.Equal(t, float32(600), common.Float32At(buf, 132))
	assert.Equal(t, float32(0.5), common.Float32At(buf, 136))
	assert.Equal(t, float32(250), common.Float32At(buf, 140))
	assert.Equal(t, float32(7), common.Float32At(buf, 144))
	assert.Equal(t, []byte{12, 0, 0, 0}, buf[148:152])
	assert.Equal(t, make([]byte, 8), buf[152:160])

	var u GPUCameraUniform
	assert.Equal(t, GPUCameraUniformSize, u.Size())
	require.NoError(t, u.Unmarshal(buf))
	assert.Equal(t, c.Uniform(), u)
	assert.Equal(t, uint32(40), c.MaxTriangleCount())
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	var u GPUCameraUniform
	assert.ErrorIs(t, u.Unmarshal(make([]byte, 10)), ErrUniformSize)
}
