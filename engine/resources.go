package engine

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// Resource keys, as named by the kernels' annotations.
const (
	resourceCamera    = string(shader.AnnotationArgCamera)
	resourceSphere    = string(shader.AnnotationArgSphere)
	resourceMaterial  = string(shader.AnnotationArgMaterial)
	resourceTriangle  = string(shader.AnnotationArgTriangle)
	resourceMeshBound = string(shader.AnnotationArgMeshBound)
	resourceBVHNode   = string(shader.AnnotationArgBVHNode)

	roleHistory = string(shader.AnnotationArgHistory)
	roleOutput  = string(shader.AnnotationArgOutput)
	roleSampler = string(shader.AnnotationArgSampler)
)

// sizedByLength holds the resources whose element count the kernels take from arrayLength, so their
// buffers must match the uploaded data exactly. The triangle count travels in the camera uniform
// instead, which lets the triangle buffer keep its capacity across culling passes.
var sizedByLength = map[string]bool{
	resourceSphere:    true,
	resourceMaterial:  true,
	resourceMeshBound: true,
	resourceBVHNode:   true,
}

// boundPipeline pairs a pipeline with the provider feeding its group 0.
type boundPipeline struct {
	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
}

// slot is one binding of one provider.
type slot struct {
	provider bind_group_provider.BindGroupProvider
	binding  int
}

type gpuBuffer struct {
	handle common.BufferHandle
	size   uint64
}

// resources owns the scene buffers and the present sampler, and keeps every provider binding
// pointed at the current handles. Bindings are discovered from the shaders' annotations, so the
// host never hardcodes a binding index.
type resources struct {
	gpu     renderer.Renderer
	buffers map[string]*gpuBuffer
	slots   map[string][]slot
	sampler common.SamplerHandle
}

// newResources reflects every annotation of the pipelines, creates the camera uniform buffer and
// the sampler, and binds both.
//
// Parameters:
//   - gpu: the renderer owning the buffers
//   - pipelines: each pipeline with its provider
//
// Returns:
//   - *resources: the resource set
//   - error: a declaration outside group 0, or an allocation error
func newResources(gpu renderer.Renderer, pipelines ...boundPipeline) (*resources, error) {
	r := &resources{
		gpu:     gpu,
		buffers: make(map[string]*gpuBuffer),
		slots:   make(map[string][]slot),
	}
	for _, bp := range pipelines {
		for _, s := range bp.pipeline.Shaders() {
			for _, decl := range s.Declarations() {
				if decl.Group == nil || decl.Binding == nil {
					continue
				}
				if *decl.Group != 0 {
					return nil, fmt.Errorf("%s line %d: only group 0 is bound, got group %d", s.Key(), decl.Line, *decl.Group)
				}
				key := string(decl.Resource())
				sl := slot{provider: bp.provider, binding: *decl.Binding}
				if !slices.Contains(r.slots[key], sl) {
					r.slots[key] = append(r.slots[key], sl)
				}
			}
		}
	}

	cam, err := gpu.CreateBuffer(resourceCamera, camera.GPUCameraUniformSize,
		renderer.BufferUsageUniform|renderer.BufferUsageCopyDst|renderer.BufferUsageCopySrc)
	if err != nil {
		return nil, fmt.Errorf("create camera buffer: %w", err)
	}
	r.buffers[resourceCamera] = &gpuBuffer{handle: cam, size: camera.GPUCameraUniformSize}
	r.bindBuffer(resourceCamera, cam)

	if len(r.slots[roleSampler]) > 0 {
		r.sampler, err = gpu.CreateSampler(roleSampler, common.SamplerDescriptor{})
		if err != nil {
			r.release()
			return nil, fmt.Errorf("create sampler: %w", err)
		}
		for _, sl := range r.slots[roleSampler] {
			sl.provider.SetSampler(sl.binding, r.sampler)
		}
	}
	return r, nil
}

func (r *resources) bindBuffer(key string, h common.BufferHandle) {
	for _, sl := range r.slots[key] {
		sl.provider.SetBuffer(sl.binding, h)
	}
}

// bindTextures points the history and output roles at the accumulation textures.
func (r *resources) bindTextures(history, output common.TextureHandle) {
	for _, sl := range r.slots[roleHistory] {
		sl.provider.SetTexture(sl.binding, history)
	}
	for _, sl := range r.slots[roleOutput] {
		sl.provider.SetTexture(sl.binding, output)
	}
}

// upload writes data into the storage buffer of key, replacing the buffer when data outgrows it or,
// for arrayLength-sized resources, when the size changes at all. Resources no kernel declares are
// skipped.
func (r *resources) upload(key string, data []byte) error {
	if len(r.slots[key]) == 0 {
		log.Debugf("no binding declares %q, skipping upload", key)
		return nil
	}
	buf := r.buffers[key]
	size := uint64(len(data))
	if buf == nil || buf.size < size || (sizedByLength[key] && buf.size != size) {
		h, err := r.gpu.CreateBuffer(key, size,
			renderer.BufferUsageStorage|renderer.BufferUsageCopyDst|renderer.BufferUsageCopySrc)
		if err != nil {
			return fmt.Errorf("create %s buffer: %w", key, err)
		}
		if buf != nil {
			log.Debugf("replacing %s buffer %d -> %d bytes", key, buf.size, size)
			r.gpu.ReleaseBuffer(buf.handle)
		}
		buf = &gpuBuffer{handle: h, size: size}
		r.buffers[key] = buf
		r.bindBuffer(key, h)
	}
	return r.write(key, data)
}

// write uploads into an existing buffer, addressed through its first binding when one exists.
func (r *resources) write(key string, data []byte) error {
	buf, ok := r.buffers[key]
	if !ok {
		return fmt.Errorf("%w: no buffer for %q", renderer.ErrUnknownHandle, key)
	}
	var err error
	if slots := r.slots[key]; len(slots) > 0 {
		err = r.gpu.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: slots[0].provider, Binding: slots[0].binding, Data: data},
		})
	} else {
		err = r.gpu.WriteBuffer(buf.handle, 0, data)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// read copies the buffer of key back to the host.
func (r *resources) read(key string) ([]byte, error) {
	buf, ok := r.buffers[key]
	if !ok {
		return nil, fmt.Errorf("%w: no buffer for %q", renderer.ErrUnknownHandle, key)
	}
	return r.gpu.ReadBuffer(buf.handle, buf.size)
}

func (r *resources) release() {
	for _, buf := range r.buffers {
		r.gpu.ReleaseBuffer(buf.handle)
	}
	clear(r.buffers)
}
