package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	extent  common.Extent
	format  TextureFormat
}

type wgpuPipeline struct {
	compute *wgpu.ComputePipeline
	render  *wgpu.RenderPipeline
	layouts []*wgpu.BindGroupLayout
}

type wgpuBindGroup struct {
	version uint64
	group   *wgpu.BindGroup
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	nextHandle uint32
	buffers    map[common.BufferHandle]*wgpuBuffer
	textures   map[common.TextureHandle]*wgpuTexture
	samplers   map[common.SamplerHandle]*wgpu.Sampler
	pipelines  map[string]*wgpuPipeline
	// bindGroups is keyed by pipeline key and provider label.
	bindGroups map[string]*wgpuBindGroup

	// Frame state between BeginFrame and Submit.
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the swapchain. A zero extent is ignored.
	ConfigureSurface(extent common.Extent) error
	SetPresentMode(mode PresentMode)

	RegisterComputePipeline(p pipeline.Pipeline) error
	RegisterRenderPipeline(p pipeline.Pipeline) error

	CreateBuffer(label string, size uint64, usage BufferUsage) (common.BufferHandle, error)
	CreateTexture(label string, extent common.Extent, format TextureFormat, usage TextureUsage) (common.TextureHandle, error)
	CreateSampler(label string, desc common.SamplerDescriptor) (common.SamplerHandle, error)
	ReleaseBuffer(h common.BufferHandle)
	ReleaseTexture(h common.TextureHandle)
	WriteBuffer(h common.BufferHandle, offset uint64, data []byte) error

	BeginFrame() error
	DispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	CopyTexture(src, dst common.TextureHandle, extent common.Extent) error
	Present(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error
	Submit() error

	ReadBuffer(h common.BufferHandle, size uint64) ([]byte, error)
	ReadTexture(h common.TextureHandle, extent common.Extent) ([]byte, error)

	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend requests an adapter and device compatible with the window surface.
// Every failure wraps ErrEnvironmentUnavailable.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		buffers:     make(map[common.BufferHandle]*wgpuBuffer),
		textures:    make(map[common.TextureHandle]*wgpuTexture),
		samplers:    make(map[common.SamplerHandle]*wgpu.Sampler),
		pipelines:   make(map[string]*wgpuPipeline),
		bindGroups:  make(map[string]*wgpuBindGroup),
	}
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("%w: no surface descriptor", ErrEnvironmentUnavailable)
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)
	if w.surface == nil {
		return nil, fmt.Errorf("%w: surface creation failed", ErrEnvironmentUnavailable)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: request adapter: %w", ErrEnvironmentUnavailable, err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Trace Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: request device: %w", ErrEnvironmentUnavailable, err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

// chooseSurfaceFormat prefers a linear 8-bit format: the present shader applies gamma itself.
func chooseSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f, true
		}
	}
	return formats[0], true
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(extent common.Extent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if extent.Empty() {
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	format, ok := chooseSurfaceFormat(capabilities.Formats)
	if !ok || len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("%w: surface reports no formats", ErrEnvironmentUnavailable)
	}
	b.surfaceFormat = &format

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       extent.Width,
		Height:      extent.Height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// createLayouts realizes the merged bind group layouts of p, indexed by group.
func (b *wgpuRendererBackendImpl) createLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	descriptors := p.BindGroupLayouts()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range descriptors {
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader(shader.ShaderTypeCompute)
	module, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return fmt.Errorf("compile %s: %w", computeShader.Key(), err)
	}
	defer module.Release()

	layouts, err := b.createLayouts(p)
	if err != nil {
		return err
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	b.pipelines[p.PipelineKey()] = &wgpuPipeline{compute: created, layouts: layouts}
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return fmt.Errorf("render pipeline %s: surface not configured", p.PipelineKey())
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return fmt.Errorf("compile %s: %w", vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("compile %s: %w", fragmentShader.Key(), err)
	}
	defer fs.Release()

	layouts, err := b.createLayouts(p)
	if err != nil {
		return err
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    *b.surfaceFormat,
				WriteMask: p.WriteMask(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	b.pipelines[p.PipelineKey()] = &wgpuPipeline{render: created, layouts: layouts}
	return nil
}

func (b *wgpuRendererBackendImpl) handle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, size uint64, usage BufferUsage) (common.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Storage bindings must be non-empty and copies work in multiples of 4.
	size = max(4, (size+3)&^3)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage.wgpu(),
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %s: %w", label, err)
	}
	h := common.BufferHandle(b.handle())
	b.buffers[h] = &wgpuBuffer{buffer: buf, size: size}
	return h, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, extent common.Extent, format TextureFormat, usage TextureUsage) (common.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if extent.Empty() {
		return 0, fmt.Errorf("create texture %s: empty extent %dx%d", label, extent.Width, extent.Height)
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage.wgpu(),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format.wgpu(),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("create texture view %s: %w", label, err)
	}
	h := common.TextureHandle(b.handle())
	b.textures[h] = &wgpuTexture{texture: tex, view: view, extent: extent, format: format}
	return h, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, desc common.SamplerDescriptor) (common.SamplerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("create sampler %s: %w", label, err)
	}
	h := common.SamplerHandle(b.handle())
	b.samplers[h] = samp
	return h, nil
}

func (b *wgpuRendererBackendImpl) ReleaseBuffer(h common.BufferHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buf, ok := b.buffers[h]; ok {
		buf.buffer.Release()
		delete(b.buffers, h)
	}
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(h common.TextureHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tex, ok := b.textures[h]; ok {
		tex.view.Release()
		tex.texture.Release()
		delete(b.textures, h)
	}
}

func (b *wgpuRendererBackendImpl) WriteBuffer(h common.BufferHandle, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownHandle, h)
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, h, buf.size)
	}
	if len(data) == 0 {
		return nil
	}
	b.queue.WriteBuffer(buf.buffer, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("previous frame not yet submitted")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

// bindGroup returns the realized bind group for provider under pipeline key, rebuilding it when the
// provider's version moved. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) bindGroup(key string, p *wgpuPipeline, provider bind_group_provider.BindGroupProvider) (*wgpu.BindGroup, error) {
	cacheKey := key + "/" + provider.Label()
	if cached, ok := b.bindGroups[cacheKey]; ok && cached.version == provider.Version() {
		return cached.group, nil
	}
	if len(p.layouts) == 0 || p.layouts[0] == nil {
		return nil, fmt.Errorf("pipeline %s declares no group 0", key)
	}

	providerEntries := provider.Entries()
	entries := make([]wgpu.BindGroupEntry, 0, len(providerEntries))
	for _, e := range providerEntries {
		entry := wgpu.BindGroupEntry{Binding: uint32(e.Binding)}
		switch e.Kind {
		case bind_group_provider.EntryKindBuffer:
			buf, ok := b.buffers[e.Buffer]
			if !ok {
				return nil, fmt.Errorf("%w: buffer %d at binding %d of %s", ErrUnknownHandle, e.Buffer, e.Binding, provider.Label())
			}
			entry.Buffer = buf.buffer
			entry.Size = wgpu.WholeSize
		case bind_group_provider.EntryKindTexture:
			tex, ok := b.textures[e.Texture]
			if !ok {
				return nil, fmt.Errorf("%w: texture %d at binding %d of %s", ErrUnknownHandle, e.Texture, e.Binding, provider.Label())
			}
			entry.TextureView = tex.view
		case bind_group_provider.EntryKindSampler:
			samp, ok := b.samplers[e.Sampler]
			if !ok {
				return nil, fmt.Errorf("%w: sampler %d at binding %d of %s", ErrUnknownHandle, e.Sampler, e.Binding, provider.Label())
			}
			entry.Sampler = samp
		}
		entries = append(entries, entry)
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  p.layouts[0],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %s: %w", provider.Label(), err)
	}
	if cached, ok := b.bindGroups[cacheKey]; ok {
		cached.group.Release()
	}
	b.bindGroups[cacheKey] = &wgpuBindGroup{version: provider.Version(), group: group}
	return group, nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	realized, ok := b.pipelines[p.PipelineKey()]
	if !ok || realized.compute == nil {
		return fmt.Errorf("%w: compute %s", ErrUnknownPipeline, p.PipelineKey())
	}
	group, err := b.bindGroup(p.PipelineKey(), realized, provider)
	if err != nil {
		return err
	}

	pass := b.frameEncoder.BeginComputePass(nil)
	pass.SetPipeline(realized.compute)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) CopyTexture(src, dst common.TextureHandle, extent common.Extent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	from, ok := b.textures[src]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownHandle, src)
	}
	to, ok := b.textures[dst]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownHandle, dst)
	}

	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: from.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: to.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) Present(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	if b.frameSurface != nil {
		return fmt.Errorf("surface already acquired this frame")
	}
	realized, ok := b.pipelines[p.PipelineKey()]
	if !ok || realized.render == nil {
		return fmt.Errorf("%w: render %s", ErrUnknownPipeline, p.PipelineKey())
	}
	group, err := b.bindGroup(p.PipelineKey(), realized, provider)
	if err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	b.frameSurface = surfaceTexture
	b.frameView = view

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(realized.render)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Submit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	defer b.releaseFrame()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	if b.frameSurface != nil {
		b.surface.Present()
	}
	return nil
}

// releaseFrame drops the per-frame objects. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
}

// readback copies through a MapRead staging buffer and blocks until the map completes.
// record encodes the copy into staging. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) readback(size uint64, record func(encoder *wgpu.CommandEncoder, staging *wgpu.Buffer)) ([]byte, error) {
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	record(encoder, staging)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status, mapped = s, true
	}); err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("readback map failed: %s", status.String())
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (b *wgpuRendererBackendImpl) ReadBuffer(h common.BufferHandle, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.buffers[h]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownHandle, h)
	}
	size = min((size+3)&^3, src.size)
	return b.readback(size, func(encoder *wgpu.CommandEncoder, staging *wgpu.Buffer) {
		encoder.CopyBufferToBuffer(src.buffer, 0, staging, 0, size)
	})
}

func (b *wgpuRendererBackendImpl) ReadTexture(h common.TextureHandle, extent common.Extent) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownHandle, h)
	}
	rowBytes := extent.Width * src.format.BytesPerTexel()
	align := uint32(wgpu.CopyBytesPerRowAlignment)
	paddedRow := (rowBytes + align - 1) / align * align

	padded, err := b.readback(uint64(paddedRow)*uint64(extent.Height), func(encoder *wgpu.CommandEncoder, staging *wgpu.Buffer) {
		encoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{Texture: src.texture, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyBuffer{
				Buffer: staging,
				Layout: wgpu.TextureDataLayout{BytesPerRow: paddedRow, RowsPerImage: extent.Height},
			},
			&wgpu.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
		)
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, rowBytes*extent.Height)
	for y := range extent.Height {
		start := y * paddedRow
		out = append(out, padded[start:start+rowBytes]...)
	}
	return out, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	for _, g := range b.bindGroups {
		g.group.Release()
	}
	for _, p := range b.pipelines {
		if p.compute != nil {
			p.compute.Release()
		}
		if p.render != nil {
			p.render.Release()
		}
		for _, l := range p.layouts {
			if l != nil {
				l.Release()
			}
		}
	}
	for _, s := range b.samplers {
		s.Release()
	}
	for _, t := range b.textures {
		t.view.Release()
		t.texture.Release()
	}
	for _, buf := range b.buffers {
		buf.buffer.Release()
	}
	clear(b.bindGroups)
	clear(b.pipelines)
	clear(b.samplers)
	clear(b.textures)
	clear(b.buffers)

	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}
