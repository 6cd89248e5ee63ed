// Package accumulator owns the two accumulation textures and decides, frame by frame, whether the
// trace kernel restarts its running average or blends into it.
//
// The kernel reads the history texture and writes the output texture; after the dispatch the
// output is copied onto the history so that the next frame reads this frame's result. The two
// textures are always distinct, so a dispatch never reads and writes the same texture.
package accumulator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
)

var log = logger.New("accumulator")

// State is the accumulation state of one frame.
type State int

const (
	// StateReset discards history: the frame's image is its own average.
	StateReset State = iota

	// StateAccumulate blends the frame into the previous frame's result with weight 1/timestep.
	StateAccumulate
)

func (s State) String() string {
	switch s {
	case StateReset:
		return "reset"
	case StateAccumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FrameInput is what changed since the previous frame.
type FrameInput struct {
	// Moved is set when the camera applied a non-zero delta.
	Moved bool
	// Resized is set when the viewport changed size.
	Resized bool
	// Reloaded is set when scene or material data was re-uploaded.
	Reloaded bool
}

// Changed reports whether anything invalidates the history.
func (in FrameInput) Changed() bool {
	return in.Moved || in.Resized || in.Reloaded
}

// Decision is the scheduler's verdict for one frame.
type Decision struct {
	State State
	// Timestep is the value written into the camera: 1 on reset, the previous value plus one otherwise.
	Timestep uint32
}

// Timestepper is the accumulation counter the kernel reads, carried by the camera uniform.
type Timestepper interface {
	SetTimestep(timestep uint32)
	AdvanceTimestep() uint32
}

// Scheduler drives the reset/accumulate state machine and the texture pair behind it.
// It is owned by the frame loop and is not safe for concurrent use.
type Scheduler struct {
	gpu     renderer.Renderer
	clock   Timestepper
	extent  common.Extent
	history common.TextureHandle
	output  common.TextureHandle
	pending bool
}

// Texture usages of the two slots. The history is sampled and receives the copy-back; the output
// is the storage target and the copy source.
const (
	historyUsage = renderer.TextureUsageTextureBinding | renderer.TextureUsageCopyDst | renderer.TextureUsageCopySrc
	outputUsage  = renderer.TextureUsageStorageBinding | renderer.TextureUsageCopySrc
)

// NewScheduler allocates both accumulation textures at extent. The first frame is always a reset.
//
// Parameters:
//   - gpu: the renderer that owns the textures
//   - clock: the timestep carrier, normally the camera
//   - extent: the viewport size, both dimensions non-zero
//
// Returns:
//   - *Scheduler: the scheduler
//   - error: a texture allocation error
func NewScheduler(gpu renderer.Renderer, clock Timestepper, extent common.Extent) (*Scheduler, error) {
	s := &Scheduler{gpu: gpu, clock: clock, pending: true}
	if err := s.allocate(extent); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) allocate(extent common.Extent) error {
	if extent.Empty() {
		return fmt.Errorf("accumulation textures need a non-empty extent, got %dx%d", extent.Width, extent.Height)
	}
	history, err := s.gpu.CreateTexture("accumulation_history", extent, renderer.TextureFormatRGBA16Float, historyUsage)
	if err != nil {
		return fmt.Errorf("create history texture: %w", err)
	}
	output, err := s.gpu.CreateTexture("accumulation_output", extent, renderer.TextureFormatRGBA16Float, outputUsage)
	if err != nil {
		s.gpu.ReleaseTexture(history)
		return fmt.Errorf("create output texture: %w", err)
	}
	s.history, s.output, s.extent = history, output, extent
	return nil
}

func (s *Scheduler) release() {
	s.gpu.ReleaseTexture(s.history)
	s.gpu.ReleaseTexture(s.output)
	s.history, s.output = 0, 0
}

// Begin decides this frame's state and synchronizes the timestep before the camera is serialized.
//
// Parameters:
//   - in: what changed since the previous frame
//
// Returns:
//   - Decision: the state and the timestep the kernel will see
func (s *Scheduler) Begin(in FrameInput) Decision {
	if in.Changed() || s.pending {
		s.pending = false
		s.clock.SetTimestep(1)
		return Decision{State: StateReset, Timestep: 1}
	}
	return Decision{State: StateAccumulate, Timestep: s.clock.AdvanceTimestep()}
}

// Invalidate forces the next frame to reset, as after a scene reload.
func (s *Scheduler) Invalidate() {
	s.pending = true
}

// Resize recreates both textures at extent and forces a reset. An empty extent (a minimized
// window) keeps the current textures.
//
// Parameters:
//   - extent: the new viewport size
//
// Returns:
//   - error: a texture allocation error; the scheduler then holds no textures
func (s *Scheduler) Resize(extent common.Extent) error {
	if extent.Empty() {
		return nil
	}
	s.pending = true
	if extent == s.extent {
		return nil
	}
	log.Debugf("reallocating accumulation textures %dx%d -> %dx%d", s.extent.Width, s.extent.Height, extent.Width, extent.Height)
	s.release()
	return s.allocate(extent)
}

// Read returns the history texture: the previous frame's result, bound read-only.
func (s *Scheduler) Read() common.TextureHandle {
	return s.history
}

// Write returns the output texture the kernel writes this frame's result to.
func (s *Scheduler) Write() common.TextureHandle {
	return s.output
}

// Extent returns the size of both textures.
func (s *Scheduler) Extent() common.Extent {
	return s.extent
}

// Dispatch records the trace dispatch over the full extent followed by the copy of the output onto
// the history. It must be called inside a frame, before the present pass.
//
// Parameters:
//   - pipelineKey: the registered compute pipeline
//   - provider: the group 0 resources, with Read and Write bound
//
// Returns:
//   - error: a dispatch or copy error
func (s *Scheduler) Dispatch(pipelineKey string, provider bind_group_provider.BindGroupProvider) error {
	if err := s.gpu.DispatchCompute(pipelineKey, provider, s.extent.Workgroups()); err != nil {
		return fmt.Errorf("dispatch %s: %w", pipelineKey, err)
	}
	if err := s.gpu.CopyTexture(s.output, s.history, s.extent); err != nil {
		return fmt.Errorf("copy accumulation: %w", err)
	}
	return nil
}

// Release frees both textures.
func (s *Scheduler) Release() {
	s.release()
}
