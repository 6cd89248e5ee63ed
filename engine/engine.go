// Package engine runs the progressive path tracer: it owns the frame context (camera, held keys,
// accumulation state, scene buffers) and drives one frame per display refresh.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

var log = logger.New("engine")

// ErrFramePanic wraps a panic recovered while recording a frame.
var ErrFramePanic = errors.New("frame panicked")

// engine implements the Engine interface. Every field is owned by the goroutine calling Run or
// Step; only sceneQueue is written from elsewhere.
type engine struct {
	gpu    renderer.Renderer
	window window.Window
	camera camera.Camera
	scene  *scene.Scene

	keys       *input.KeySet
	controller *input.Controller
	scheduler  *accumulator.Scheduler

	trace   bind_group_provider.BindGroupProvider
	present bind_group_provider.BindGroupProvider
	res     *resources

	cull          bool
	pendingResize *common.Extent
	sceneQueue    chan *scene.Scene

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64
	frames           uint64
}

// Engine is the frame loop of the tracer.
//
// Each frame, in order: pending scene reloads and resizes are applied, held keys become a camera
// delta, the accumulation scheduler decides between reset and accumulate and sets the camera
// timestep, the triangles are re-culled on reset when culling is enabled, the camera uniform is
// uploaded, and the trace dispatch, the copy-back and the present pass are submitted together.
type Engine interface {
	// Run steps frames until the window closes, ctx is cancelled, the frame limit set by
	// WithMaxFrames is reached, or a frame fails.
	//
	// Parameters:
	//   - ctx: stops the loop between frames
	//
	// Returns:
	//   - error: nil on a normal stop, otherwise the failing frame's error. A lost surface wraps
	//     renderer.ErrSurfaceLost and a recovered panic wraps ErrFramePanic.
	Run(ctx context.Context) error

	// Step records and submits exactly one frame.
	//
	// Returns:
	//   - accumulator.Decision: the frame's accumulation state and timestep
	//   - error: an upload, dispatch or present error, or ErrFramePanic
	Step() (accumulator.Decision, error)

	// Camera returns the camera. It must only be mutated from the frame loop's goroutine.
	Camera() camera.Camera

	// Scene returns the scene currently uploaded.
	Scene() *scene.Scene

	// Keys returns the held-key set the window callbacks write into.
	Keys() *input.KeySet

	// Frames returns the number of submitted frames.
	Frames() uint64

	// Extent returns the size of the accumulation image.
	Extent() common.Extent

	// QueueScene hands a rebuilt scene to the frame loop. It is safe to call from any goroutine;
	// the scene is uploaded at the start of the next frame, which then resets. A scene queued
	// before the previous one was taken replaces it.
	//
	// Parameters:
	//   - s: the rebuilt scene
	QueueScene(s *scene.Scene)

	// Resize schedules an accumulation resize for the next frame. Empty extents are ignored.
	//
	// Parameters:
	//   - extent: the new framebuffer size
	Resize(extent common.Extent)

	// Snapshot reads the accumulated image back from the GPU. It blocks until the copy completes
	// and must not be called while a frame is being recorded.
	//
	// Returns:
	//   - Snapshot: the RGBA16F texels and their extent
	//   - error: a readback error
	Snapshot() (Snapshot, error)

	// ReadResource reads back the buffer bound for a kernel resource such as "triangle" or "camera".
	//
	// Parameters:
	//   - resource: the struct key of the binding
	//
	// Returns:
	//   - []byte: the buffer contents
	//   - error: an unknown resource or a readback error
	ReadResource(resource string) ([]byte, error)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Release frees the accumulation textures and scene buffers. The renderer itself belongs to the caller.
	Release()
}

var _ Engine = &engine{}

// NewEngine registers the trace and present pipelines with gpu, uploads sc, allocates the
// accumulation textures at the camera's viewport size and binds everything the kernels declare.
//
// Parameters:
//   - gpu: the renderer
//   - cam: the camera; its viewport sets the image size
//   - sc: the initial scene
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: pipeline, allocation or binding errors
func NewEngine(gpu renderer.Renderer, cam camera.Camera, sc *scene.Scene, options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		gpu:        gpu,
		camera:     cam,
		scene:      sc,
		keys:       input.NewKeySet(),
		controller: input.NewController(),
		sceneQueue: make(chan *scene.Scene, 1),
		profiler:   profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}

	tracePipeline, err := renderer.TracePipeline()
	if err != nil {
		return nil, err
	}
	presentPipeline, err := renderer.PresentPipeline()
	if err != nil {
		return nil, err
	}
	if err := gpu.RegisterPipelines(tracePipeline, presentPipeline); err != nil {
		return nil, fmt.Errorf("register pipelines: %w", err)
	}

	e.scheduler, err = accumulator.NewScheduler(gpu, cam, common.Extent{Width: cam.Width(), Height: cam.Height()})
	if err != nil {
		return nil, err
	}

	e.trace = bind_group_provider.NewBindGroupProvider(renderer.PipelineTrace)
	e.present = bind_group_provider.NewBindGroupProvider(renderer.PipelinePresent)
	e.res, err = newResources(gpu, boundPipeline{tracePipeline, e.trace}, boundPipeline{presentPipeline, e.present})
	if err != nil {
		e.Release()
		return nil, err
	}
	if err := e.uploadScene(); err != nil {
		e.Release()
		return nil, err
	}
	e.bindAccumulation()

	if e.window != nil {
		e.attachWindow()
	}
	return e, nil
}

// attachWindow routes window events into the frame context. The callbacks run inside Poll, on
// the frame loop's goroutine.
func (e *engine) attachWindow() {
	e.window.SetKeyDownCallback(e.keys.Press)
	e.window.SetKeyUpCallback(e.keys.Release)
	e.window.SetScrollCallback(e.keys.Scroll)
	e.window.SetFocusCallback(func(focused bool) {
		if !focused {
			e.keys.Clear()
		}
	})
	e.window.SetResizeCallback(e.Resize)
}

func (e *engine) Run(ctx context.Context) error {
	log.Infof("starting frame loop at %dx%d", e.scheduler.Extent().Width, e.scheduler.Extent().Height)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if e.window != nil && !e.window.Poll() {
			return nil
		}

		start := time.Now()
		if _, err := e.Step(); err != nil {
			log.Errorf("frame %d: %v", e.frames, err)
			return err
		}
		if e.maxFrames > 0 && e.frames >= e.maxFrames {
			return nil
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Step() (decision accumulator.Decision, err error) {
	// A panic leaves the frame half recorded; the loop stops instead of submitting it.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in frame %d: %v", e.frames, r)
			err = fmt.Errorf("%w: %v", ErrFramePanic, r)
		}
	}()

	var in accumulator.FrameInput
	select {
	case next := <-e.sceneQueue:
		e.scene = next
		if err := e.uploadScene(); err != nil {
			return decision, fmt.Errorf("upload reloaded scene: %w", err)
		}
		in.Reloaded = true
	default:
	}

	if e.pendingResize != nil {
		extent := *e.pendingResize
		e.pendingResize = nil
		resized, err := e.resize(extent)
		if err != nil {
			return decision, err
		}
		in.Resized = resized
	}

	d := e.controller.Delta(e.keys)
	in.Moved = e.camera.ApplyDelta(d.Yaw, d.Pitch, d.Zoom)

	decision = e.scheduler.Begin(in)
	if decision.State == accumulator.StateReset && e.cull {
		if err := e.recull(); err != nil {
			return decision, err
		}
	}

	if err := e.res.write(resourceCamera, e.camera.Serialize()); err != nil {
		return decision, err
	}

	if err := e.gpu.BeginFrame(); err != nil {
		return decision, err
	}
	if err := e.scheduler.Dispatch(renderer.PipelineTrace, e.trace); err != nil {
		return decision, err
	}
	if err := e.gpu.Present(renderer.PipelinePresent, e.present); err != nil {
		return decision, err
	}
	if err := e.gpu.Submit(); err != nil {
		return decision, err
	}

	e.frames++
	if e.profilingEnabled {
		e.profiler.Tick(decision.Timestep)
	}
	return decision, nil
}

// recull re-extracts the triangles against the current view direction and re-uploads the
// triangle and BVH buffers.
func (e *engine) recull() error {
	if err := e.scene.Cull(e.camera.Direction()); err != nil {
		return fmt.Errorf("cull: %w", err)
	}
	e.camera.SetTriangleCounts(e.scene.TriangleCount, e.scene.MaxTriangleCount)
	if err := e.res.upload(resourceTriangle, e.scene.MarshalTriangles()); err != nil {
		return err
	}
	return e.res.upload(resourceBVHNode, e.scene.MarshalBVH())
}

// uploadScene writes every scene buffer, growing buffers that are too small.
func (e *engine) uploadScene() error {
	e.camera.SetTriangleCounts(e.scene.TriangleCount, e.scene.MaxTriangleCount)
	uploads := []struct {
		resource string
		data     []byte
	}{
		{resourceSphere, e.scene.MarshalSpheres()},
		{resourceMaterial, e.scene.MarshalMaterials()},
		{resourceTriangle, e.scene.MarshalTriangles()},
		{resourceMeshBound, e.scene.MarshalBounds()},
		{resourceBVHNode, e.scene.MarshalBVH()},
	}
	for _, u := range uploads {
		if err := e.res.upload(u.resource, u.data); err != nil {
			return err
		}
	}
	log.Debugf("uploaded scene: %d spheres, %d/%d triangles, %d mesh nodes",
		len(e.scene.Spheres), e.scene.TriangleCount, e.scene.MaxTriangleCount, len(e.scene.Bounds))
	return nil
}

// resize applies a new framebuffer size and reports whether it differed from the current one.
func (e *engine) resize(extent common.Extent) (bool, error) {
	if extent == e.scheduler.Extent() {
		return false, nil
	}
	log.Infof("resize %dx%d -> %dx%d", e.scheduler.Extent().Width, e.scheduler.Extent().Height, extent.Width, extent.Height)
	e.camera.Resize(extent.Width, extent.Height)
	if err := e.gpu.Resize(extent); err != nil {
		return false, fmt.Errorf("resize surface: %w", err)
	}
	if err := e.scheduler.Resize(extent); err != nil {
		return false, err
	}
	e.bindAccumulation()
	return true, nil
}

// bindAccumulation points the history and output bindings at the scheduler's current textures.
func (e *engine) bindAccumulation() {
	e.res.bindTextures(e.scheduler.Read(), e.scheduler.Write())
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Scene() *scene.Scene {
	return e.scene
}

func (e *engine) Keys() *input.KeySet {
	return e.keys
}

func (e *engine) Frames() uint64 {
	return e.frames
}

func (e *engine) Extent() common.Extent {
	return e.scheduler.Extent()
}

func (e *engine) QueueScene(s *scene.Scene) {
	select {
	case e.sceneQueue <- s:
	default:
		// A reload is pending: drop it and queue the newer scene.
		select {
		case <-e.sceneQueue:
		default:
		}
		e.sceneQueue <- s
	}
}

func (e *engine) Resize(extent common.Extent) {
	if extent.Empty() {
		return
	}
	e.pendingResize = &extent
}

func (e *engine) ReadResource(resource string) ([]byte, error) {
	return e.res.read(resource)
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Release() {
	if e.res != nil {
		e.res.release()
	}
	if e.scheduler != nil {
		e.scheduler.Release()
	}
}
