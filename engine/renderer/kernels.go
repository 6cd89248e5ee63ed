package renderer

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// Pipeline keys of the two built-in passes.
const (
	PipelineTrace   = "trace"
	PipelinePresent = "present"
)

var (
	//go:embed assets/trace.wgsl
	TraceKernelSource string

	//go:embed assets/present.wgsl
	PresentShaderSource string
)

// TracePipeline builds the compute pipeline of the path tracing kernel.
//
// Returns:
//   - pipeline.Pipeline: the unregistered pipeline
//   - error: an annotation or reflection error in the kernel source
func TracePipeline() (pipeline.Pipeline, error) {
	cs, err := shader.NewShader(PipelineTrace, shader.ShaderTypeCompute, TraceKernelSource)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(PipelineTrace, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs)), nil
}

// PresentPipeline builds the render pipeline that tone maps the accumulation texture onto the
// swapchain. Both stages come from one source.
func PresentPipeline() (pipeline.Pipeline, error) {
	vs, err := shader.NewShader(PipelinePresent+"_vs", shader.ShaderTypeVertex, PresentShaderSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(PipelinePresent+"_fs", shader.ShaderTypeFragment, PresentShaderSource)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(PipelinePresent, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	), nil
}
