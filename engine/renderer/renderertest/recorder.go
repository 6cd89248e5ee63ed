// Package renderertest provides a recording renderer.Renderer for GPU-free tests of code that
// drives frames.
package renderertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
)

// Op is one recorded frame command.
type Op struct {
	// Kind is one of "begin", "dispatch", "copy", "present", "submit".
	Kind string

	Pipeline  string
	Workgroup [3]uint32

	// Entries is a copy of the provider bindings at record time.
	Entries []bind_group_provider.Entry

	Src, Dst common.TextureHandle
	Extent   common.Extent
}

// Buffer is the host copy of a created buffer.
type Buffer struct {
	Label string
	Usage renderer.BufferUsage
	Data  []byte
}

// Texture describes a created texture.
type Texture struct {
	Label  string
	Extent common.Extent
	Format renderer.TextureFormat
	Usage  renderer.TextureUsage
}

// Recorder implements renderer.Renderer in memory. Buffer writes land in Buffer.Data and can be
// read back; textures read back as zeros unless TextureData is set.
type Recorder struct {
	mu sync.Mutex

	next      uint32
	pipelines map[string]pipeline.Pipeline
	inFrame   bool

	Buffers     map[common.BufferHandle]*Buffer
	Textures    map[common.TextureHandle]*Texture
	Samplers    map[common.SamplerHandle]common.SamplerDescriptor
	TextureData map[common.TextureHandle][]byte

	// Ops lists every frame command in record order.
	Ops []Op
	// Resizes lists every Resize extent.
	Resizes []common.Extent
	// Released counts ReleaseBuffer and ReleaseTexture calls on live handles.
	Released int

	// PresentErr, when set, is returned by every Present call.
	PresentErr error
	// PanicOnDispatch makes DispatchCompute panic with this value when non-nil.
	PanicOnDispatch any
	// Closed reports whether Release was called.
	Closed bool
}

var _ renderer.Renderer = &Recorder{}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		pipelines:   make(map[string]pipeline.Pipeline),
		Buffers:     make(map[common.BufferHandle]*Buffer),
		Textures:    make(map[common.TextureHandle]*Texture),
		Samplers:    make(map[common.SamplerHandle]common.SamplerDescriptor),
		TextureData: make(map[common.TextureHandle][]byte),
	}
}

func (r *Recorder) handle() uint32 {
	r.next++
	return r.next
}

func (r *Recorder) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *Recorder) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := r.pipelines[p.PipelineKey()]; !ok {
			r.pipelines[p.PipelineKey()] = p
		}
	}
	return nil
}

func (r *Recorder) CreateBuffer(label string, size uint64, usage renderer.BufferUsage) (common.BufferHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size = max(4, (size+3)&^3)
	h := common.BufferHandle(r.handle())
	r.Buffers[h] = &Buffer{Label: label, Usage: usage, Data: make([]byte, size)}
	return h, nil
}

func (r *Recorder) CreateTexture(label string, extent common.Extent, format renderer.TextureFormat, usage renderer.TextureUsage) (common.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if extent.Empty() {
		return 0, fmt.Errorf("create texture %s: empty extent", label)
	}
	h := common.TextureHandle(r.handle())
	r.Textures[h] = &Texture{Label: label, Extent: extent, Format: format, Usage: usage}
	return h, nil
}

func (r *Recorder) CreateSampler(label string, desc common.SamplerDescriptor) (common.SamplerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := common.SamplerHandle(r.handle())
	r.Samplers[h] = desc
	return h, nil
}

func (r *Recorder) ReleaseBuffer(h common.BufferHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Buffers[h]; ok {
		delete(r.Buffers, h)
		r.Released++
	}
}

func (r *Recorder) ReleaseTexture(h common.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Textures[h]; ok {
		delete(r.Textures, h)
		delete(r.TextureData, h)
		r.Released++
	}
}

func (r *Recorder) WriteBuffer(h common.BufferHandle, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(h, offset, data)
}

func (r *Recorder) write(h common.BufferHandle, offset uint64, data []byte) error {
	buf, ok := r.Buffers[h]
	if !ok {
		return fmt.Errorf("%w: buffer %d", renderer.ErrUnknownHandle, h)
	}
	if offset+uint64(len(data)) > uint64(len(buf.Data)) {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, h, len(buf.Data))
	}
	copy(buf.Data[offset:], data)
	return nil
}

func (r *Recorder) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range writes {
		if err := r.write(w.Provider.Buffer(w.Binding), w.Offset, w.Data); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFrame {
		return fmt.Errorf("previous frame not yet submitted")
	}
	r.inFrame = true
	r.Ops = append(r.Ops, Op{Kind: "begin"})
	return nil
}

// checkBindings verifies every provider entry names a live resource.
func (r *Recorder) checkBindings(provider bind_group_provider.BindGroupProvider) error {
	for _, e := range provider.Entries() {
		live := false
		switch e.Kind {
		case bind_group_provider.EntryKindBuffer:
			_, live = r.Buffers[e.Buffer]
		case bind_group_provider.EntryKindTexture:
			_, live = r.Textures[e.Texture]
		case bind_group_provider.EntryKindSampler:
			_, live = r.Samplers[e.Sampler]
		}
		if !live {
			return fmt.Errorf("%w: binding %d of %s", renderer.ErrUnknownHandle, e.Binding, provider.Label())
		}
	}
	return nil
}

func (r *Recorder) DispatchCompute(pipelineKey string, provider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PanicOnDispatch != nil {
		panic(r.PanicOnDispatch)
	}
	if !r.inFrame {
		return renderer.ErrNoFrame
	}
	p, ok := r.pipelines[pipelineKey]
	if !ok || p.Type() != pipeline.PipelineTypeCompute {
		return fmt.Errorf("%w: %q", renderer.ErrUnknownPipeline, pipelineKey)
	}
	if err := r.checkBindings(provider); err != nil {
		return err
	}
	r.Ops = append(r.Ops, Op{Kind: "dispatch", Pipeline: pipelineKey, Workgroup: workGroupCount, Entries: provider.Entries()})
	return nil
}

func (r *Recorder) CopyTexture(src, dst common.TextureHandle, extent common.Extent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return renderer.ErrNoFrame
	}
	if _, ok := r.Textures[src]; !ok {
		return fmt.Errorf("%w: texture %d", renderer.ErrUnknownHandle, src)
	}
	if _, ok := r.Textures[dst]; !ok {
		return fmt.Errorf("%w: texture %d", renderer.ErrUnknownHandle, dst)
	}
	if data, ok := r.TextureData[src]; ok {
		r.TextureData[dst] = append([]byte(nil), data...)
	}
	r.Ops = append(r.Ops, Op{Kind: "copy", Src: src, Dst: dst, Extent: extent})
	return nil
}

func (r *Recorder) Present(pipelineKey string, provider bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return renderer.ErrNoFrame
	}
	if r.PresentErr != nil {
		return r.PresentErr
	}
	p, ok := r.pipelines[pipelineKey]
	if !ok || p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("%w: %q", renderer.ErrUnknownPipeline, pipelineKey)
	}
	if err := r.checkBindings(provider); err != nil {
		return err
	}
	r.Ops = append(r.Ops, Op{Kind: "present", Pipeline: pipelineKey, Entries: provider.Entries()})
	return nil
}

func (r *Recorder) Submit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return renderer.ErrNoFrame
	}
	r.inFrame = false
	r.Ops = append(r.Ops, Op{Kind: "submit"})
	return nil
}

func (r *Recorder) ReadBuffer(h common.BufferHandle, size uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.Buffers[h]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", renderer.ErrUnknownHandle, h)
	}
	size = min(size, uint64(len(buf.Data)))
	return append([]byte(nil), buf.Data[:size]...), nil
}

func (r *Recorder) ReadTexture(h common.TextureHandle, extent common.Extent) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tex, ok := r.Textures[h]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", renderer.ErrUnknownHandle, h)
	}
	n := int(extent.Width) * int(extent.Height) * int(tex.Format.BytesPerTexel())
	out := make([]byte, n)
	copy(out, r.TextureData[h])
	return out, nil
}

func (r *Recorder) Resize(extent common.Extent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Resizes = append(r.Resizes, extent)
	return nil
}

func (r *Recorder) SetPresentMode(renderer.PresentMode) {}

func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
}

// Kinds returns the Kind of every recorded op, in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Ops))
	for i, op := range r.Ops {
		out[i] = op.Kind
	}
	return out
}

// Reset clears the recorded ops.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ops = nil
}
