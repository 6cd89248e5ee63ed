package accumulator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T, extent common.Extent) (*Scheduler, *renderertest.Recorder, camera.Camera) {
	t.Helper()
	rec := renderertest.New()
	cam := camera.NewCamera(camera.WithPosition(0, 0, 10), camera.WithViewport(extent.Width, extent.Height))
	s, err := NewScheduler(rec, cam, extent)
	require.NoError(t, err)
	return s, rec, cam
}

func TestStaticFramesCountUp(t *testing.T) {
	s, _, cam := newScheduler(t, common.Extent{Width: 64, Height: 64})
	cam.SetTimestep(42)

	for want := uint32(1); want <= 10; want++ {
		d := s.Begin(FrameInput{})
		assert.Equal(t, want, d.Timestep)
		assert.Equal(t, want, cam.Timestep())
		if want == 1 {
			assert.Equal(t, StateReset, d.State, "first frame")
		} else {
			assert.Equal(t, StateAccumulate, d.State)
		}
	}
}

func TestAnyChangeResets(t *testing.T) {
	inputs := []FrameInput{{Moved: true}, {Resized: true}, {Reloaded: true}, {Moved: true, Reloaded: true}}
	for _, in := range inputs {
		s, _, cam := newScheduler(t, common.Extent{Width: 32, Height: 32})
		for range 5 {
			s.Begin(FrameInput{})
		}
		require.Equal(t, uint32(5), cam.Timestep())

		d := s.Begin(in)
		assert.Equal(t, Decision{State: StateReset, Timestep: 1}, d, "%+v", in)
		assert.Equal(t, uint32(1), cam.Timestep())
		assert.Equal(t, uint32(2), s.Begin(FrameInput{}).Timestep)
	}
}

func TestInvalidateResetsNextFrameOnly(t *testing.T) {
	s, _, _ := newScheduler(t, common.Extent{Width: 32, Height: 32})
	s.Begin(FrameInput{})
	s.Begin(FrameInput{})

	s.Invalidate()
	assert.Equal(t, StateReset, s.Begin(FrameInput{}).State)
	assert.Equal(t, StateAccumulate, s.Begin(FrameInput{}).State)
}

func TestTexturesAreDistinctAndTyped(t *testing.T) {
	s, rec, _ := newScheduler(t, common.Extent{Width: 20, Height: 10})

	require.NotEqual(t, s.Read(), s.Write())
	history := rec.Textures[s.Read()]
	output := rec.Textures[s.Write()]
	require.NotNil(t, history)
	require.NotNil(t, output)

	assert.Equal(t, renderer.TextureFormatRGBA16Float, history.Format)
	assert.Equal(t, renderer.TextureFormatRGBA16Float, output.Format)
	assert.NotZero(t, history.Usage&renderer.TextureUsageTextureBinding)
	assert.NotZero(t, history.Usage&renderer.TextureUsageCopyDst)
	assert.NotZero(t, output.Usage&renderer.TextureUsageStorageBinding)
	assert.NotZero(t, output.Usage&renderer.TextureUsageCopySrc)
	assert.Equal(t, common.Extent{Width: 20, Height: 10}, history.Extent)
}

func TestResizeReallocatesAndResets(t *testing.T) {
	s, rec, cam := newScheduler(t, common.Extent{Width: 800, Height: 600})
	for range 3 {
		s.Begin(FrameInput{})
	}
	oldRead, oldWrite := s.Read(), s.Write()

	next := common.Extent{Width: 1920, Height: 1080}
	require.NoError(t, s.Resize(next))
	cam.Resize(next.Width, next.Height)

	assert.NotContains(t, rec.Textures, oldRead)
	assert.NotContains(t, rec.Textures, oldWrite)
	assert.Equal(t, next, rec.Textures[s.Read()].Extent)
	assert.Equal(t, next, rec.Textures[s.Write()].Extent)

	d := s.Begin(FrameInput{})
	assert.Equal(t, StateReset, d.State)
	u := cam.Uniform()
	assert.Equal(t, float32(1), u.Timestep)
	assert.Equal(t, float32(1920), u.Width)
	assert.Equal(t, float32(1080), u.Height)
}

func TestResizeIgnoresEmptyExtent(t *testing.T) {
	s, _, _ := newScheduler(t, common.Extent{Width: 64, Height: 64})
	s.Begin(FrameInput{})
	read := s.Read()

	require.NoError(t, s.Resize(common.Extent{}))
	assert.Equal(t, read, s.Read())
	assert.Equal(t, StateAccumulate, s.Begin(FrameInput{}).State)
}

func TestNewSchedulerRejectsEmptyExtent(t *testing.T) {
	_, err := NewScheduler(renderertest.New(), camera.NewCamera(), common.Extent{Width: 0, Height: 10})
	assert.Error(t, err)
}

func TestDispatchThenCopyBack(t *testing.T) {
	s, rec, _ := newScheduler(t, common.Extent{Width: 33, Height: 16})
	trace, err := renderer.TracePipeline()
	require.NoError(t, err)
	require.NoError(t, rec.RegisterPipelines(trace))

	provider := bind_group_provider.NewBindGroupProvider("accumulation",
		bind_group_provider.WithTexture(5, s.Read()),
		bind_group_provider.WithTexture(6, s.Write()),
	)
	rec.TextureData[s.Write()] = []byte{1, 2, 3, 4}

	require.NoError(t, rec.BeginFrame())
	require.NoError(t, s.Dispatch(renderer.PipelineTrace, provider))
	require.NoError(t, rec.Submit())

	assert.Equal(t, []string{"begin", "dispatch", "copy", "submit"}, rec.Kinds())
	assert.Equal(t, [3]uint32{3, 1, 1}, rec.Ops[1].Workgroup)
	copyOp := rec.Ops[2]
	assert.Equal(t, s.Write(), copyOp.Src)
	assert.Equal(t, s.Read(), copyOp.Dst)
	assert.Equal(t, []byte{1, 2, 3, 4}, rec.TextureData[s.Read()])
}

func TestDispatchOutsideFrameFails(t *testing.T) {
	s, rec, _ := newScheduler(t, common.Extent{Width: 16, Height: 16})
	trace, err := renderer.TracePipeline()
	require.NoError(t, err)
	require.NoError(t, rec.RegisterPipelines(trace))

	err = s.Dispatch(renderer.PipelineTrace, bind_group_provider.NewBindGroupProvider("empty"))
	assert.ErrorIs(t, err, renderer.ErrNoFrame)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reset", StateReset.String())
	assert.Equal(t, "accumulate", StateAccumulate.String())
	assert.Equal(t, "State(7)", State(7).String())
}
