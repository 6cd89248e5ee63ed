package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader is compiled for.
type ShaderType int

const (
	// ShaderTypeCompute is a shader with a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex half of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment half of a render pipeline.
	ShaderTypeFragment
)

// String returns the WGSL stage attribute name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	structLayouts              map[string]wgslTypeLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed and reflected WGSL shader, ready for pipeline creation.
type Shader interface {
	// Key returns the unique shader identifier.
	Key() string

	// Source returns the expanded WGSL source.
	Source() string

	// ShaderType returns the stage the shader was loaded for.
	ShaderType() ShaderType

	// EntryPoint returns the name of the function carrying the stage attribute.
	EntryPoint() string

	// WorkgroupSize returns @workgroup_size for compute shaders, [0 0 0] otherwise.
	WorkgroupSize() [3]uint32

	// BindGroupLayoutDescriptors returns the reflected layouts keyed by group index. Entries are
	// sorted by binding and their visibility is this shader's stage.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the variable declared at group and binding, or "".
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name
	BindGroupVarName(group, binding int) string

	// StructLayout returns the host-shareable size and alignment of a struct declared in the source.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - size: the struct size in bytes, rounded up to its alignment
	//   - align: the struct alignment
	//   - ok: false when no such struct was parsed
	StructLayout(name string) (size, align uint64, ok bool)

	// Module returns the shader module descriptor for the backend.
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group and provider annotations of the source, in order.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source. Kernel sources are embedded in the binary, so
// this never touches the filesystem.
//
// Parameters:
//   - key: unique identifier used for pipeline lookups and labels
//   - shaderType: the stage whose entry point and visibility are reflected
//   - source: raw WGSL, possibly with @oxy: annotations
//
// Returns:
//   - Shader: the reflected shader
//   - error: an annotation error or a missing entry point
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}

	pp := NewPreProcessor()
	expanded, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       expanded,
		shaderType:   shaderType,
		declarations: append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: expanded},
		},
	}

	s.entryPoint = parseEntryPoint(expanded, shaderType)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no @%s entry point", key, shaderType)
	}
	if shaderType == ShaderTypeCompute {
		s.workGroupSize = parseWorkgroupSize(expanded)
	}

	s.structLayouts = computeStructSizes(parseStructBlocks(stripComments(expanded)))
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(expanded, stageVisibility(shaderType))
	return s, nil
}

// MustShader is NewShader for sources embedded at build time, where an error is a programming bug.
func MustShader(key string, shaderType ShaderType, source string) Shader {
	s, err := NewShader(key, shaderType, source)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) StructLayout(name string) (uint64, uint64, bool) {
	l, ok := s.structLayouts[name]
	return l.size, l.align, ok
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func stageVisibility(t ShaderType) wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	default:
		return wgpu.ShaderStageNone
	}
}
