package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer is the GPU contract the frame loop drives. It owns every GPU resource and hands out
// handles; callers never see API objects, so the loop can run against a recording fake in tests.
//
// One frame is recorded between BeginFrame and Submit:
//  1. DispatchCompute runs the trace kernel
//  2. CopyTexture copies the freshly written accumulation texture onto the history texture
//  3. Present samples the history texture onto the swapchain
//  4. Submit sends the commands and presents the surface
type Renderer interface {
	// Pipeline retrieves the registered Pipeline associated with the given key, or nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU pipeline objects for each Pipeline and caches it by
	// PipelineKey. Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// CreateBuffer allocates a GPU buffer. Sizes are rounded up to a multiple of 4 and to at
	// least 4 bytes, so an empty record list still yields a bindable buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: requested size in bytes
	//   - usage: usage flags
	//
	// Returns:
	//   - common.BufferHandle: the buffer handle
	//   - error: an error if allocation fails
	CreateBuffer(label string, size uint64, usage BufferUsage) (common.BufferHandle, error)

	// CreateTexture allocates a 2D texture with a single mip level.
	//
	// Parameters:
	//   - label: debug label
	//   - extent: size in texels, both dimensions non-zero
	//   - format: texel format
	//   - usage: usage flags
	//
	// Returns:
	//   - common.TextureHandle: the texture handle
	//   - error: an error if allocation fails
	CreateTexture(label string, extent common.Extent, format TextureFormat, usage TextureUsage) (common.TextureHandle, error)

	// CreateSampler creates a sampler. Zero descriptor fields select clamp to edge and linear filtering.
	CreateSampler(label string, desc common.SamplerDescriptor) (common.SamplerHandle, error)

	// ReleaseBuffer frees a buffer. Unknown handles are ignored.
	ReleaseBuffer(h common.BufferHandle)

	// ReleaseTexture frees a texture. Unknown handles are ignored.
	ReleaseTexture(h common.TextureHandle)

	// WriteBuffer queues an upload of data at offset. The write is visible to commands submitted
	// after it.
	//
	// Parameters:
	//   - h: the destination buffer
	//   - offset: byte offset into the buffer
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: ErrUnknownHandle, or an overflow error when data does not fit
	WriteBuffer(h common.BufferHandle, offset uint64, data []byte) error

	// WriteBuffers performs each write against the buffer bound at its provider binding.
	//
	// Parameters:
	//   - writes: the writes, applied in order
	//
	// Returns:
	//   - error: the first failing write
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame opens the command encoder for one frame.
	BeginFrame() error

	// DispatchCompute records a compute pass of the registered compute pipeline with the
	// provider's resources bound as group 0.
	//
	// Parameters:
	//   - pipelineKey: the registered compute pipeline
	//   - provider: the group 0 resources
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: ErrNoFrame, ErrUnknownPipeline, or a bind group error
	DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// CopyTexture records a copy of extent texels from src to dst. Both textures must share a format.
	CopyTexture(src, dst common.TextureHandle, extent common.Extent) error

	// Present acquires the swapchain texture and records a render pass of the registered render
	// pipeline drawing one fullscreen triangle.
	//
	// Returns:
	//   - error: wraps ErrSurfaceLost when the swapchain texture cannot be acquired
	Present(pipelineKey string, provider bind_group_provider.BindGroupProvider) error

	// Submit finishes the frame, submits it, and presents the surface when Present acquired one.
	Submit() error

	// ReadBuffer copies the first size bytes of a buffer created with BufferUsageCopySrc back to
	// the host. It blocks until the GPU has finished.
	ReadBuffer(h common.BufferHandle, size uint64) ([]byte, error)

	// ReadTexture copies a texture created with TextureUsageCopySrc back to the host, rows tightly
	// packed. It blocks until the GPU has finished.
	//
	// Parameters:
	//   - h: the source texture
	//   - extent: the region to read, starting at the origin
	//
	// Returns:
	//   - []byte: Width*Height texels
	//   - error: an error if the copy or map fails
	ReadTexture(h common.TextureHandle, extent common.Extent) ([]byte, error)

	// Resize reconfigures the swapchain. An empty extent is ignored.
	Resize(extent common.Extent) error

	// SetPresentMode sets the surface present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Release frees every resource and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing to win's surface and configures the swapchain to the
// window's current size.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: wraps ErrEnvironmentUnavailable when no adapter or device can be obtained
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.backend = backend
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.ConfigureSurface(win.Extent()); err != nil {
		r.backend.Release()
		return nil, err
	}
	return r, nil
}

func (r *renderer) Resize(extent common.Extent) error {
	return r.backend.ConfigureSurface(extent)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) lookup(key string) (pipeline.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pipelineCache[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, key)
	}
	return p, nil
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("register %s: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("register %s: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage BufferUsage) (common.BufferHandle, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) CreateTexture(label string, extent common.Extent, format TextureFormat, usage TextureUsage) (common.TextureHandle, error) {
	return r.backend.CreateTexture(label, extent, format, usage)
}

func (r *renderer) CreateSampler(label string, desc common.SamplerDescriptor) (common.SamplerHandle, error) {
	return r.backend.CreateSampler(label, desc)
}

func (r *renderer) ReleaseBuffer(h common.BufferHandle) {
	r.backend.ReleaseBuffer(h)
}

func (r *renderer) ReleaseTexture(h common.TextureHandle) {
	r.backend.ReleaseTexture(h)
}

func (r *renderer) WriteBuffer(h common.BufferHandle, offset uint64, data []byte) error {
	return r.backend.WriteBuffer(h, offset, data)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	for _, w := range writes {
		h := w.Provider.Buffer(w.Binding)
		if h == 0 {
			return fmt.Errorf("%w: no buffer at binding %d of %s", ErrUnknownHandle, w.Binding, w.Provider.Label())
		}
		if err := r.backend.WriteBuffer(h, w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DispatchCompute(p, provider, workGroupCount)
}

func (r *renderer) CopyTexture(src, dst common.TextureHandle, extent common.Extent) error {
	return r.backend.CopyTexture(src, dst, extent)
}

func (r *renderer) Present(pipelineKey string, provider bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.Present(p, provider)
}

func (r *renderer) Submit() error {
	return r.backend.Submit()
}

func (r *renderer) ReadBuffer(h common.BufferHandle, size uint64) ([]byte, error) {
	return r.backend.ReadBuffer(h, size)
}

func (r *renderer) ReadTexture(h common.TextureHandle, extent common.Extent) ([]byte, error) {
	return r.backend.ReadTexture(h, extent)
}

func (r *renderer) Release() {
	r.mu.Lock()
	clear(r.pipelineCache)
	r.mu.Unlock()
	r.backend.Release()
}
