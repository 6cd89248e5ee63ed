// Package shader loads the tracer's WGSL kernels. A kernel source may carry //@oxy: annotation lines
// that inject the host record structs (camera, materials, spheres, triangles, mesh bounds, BVH nodes)
// and declare which engine resource feeds each binding. The package expands those annotations and
// reflects bind group layouts, the entry point and the workgroup size from the expanded source.
//
// Annotation syntax:
//
//	//@oxy:include <struct>
//	//@oxy:group <group> <binding> <address_space> <var_name> <struct|array<struct>>
//	//@oxy:provider <group> <binding> <identity> [role]
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of a parsed annotation line.
type AnnotationType string

const (
	// annotationTypeInclude pastes the WGSL source of a registered struct. It is consumed by the
	// pre-processor and never shows up in Declarations.
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup expands into a @group/@binding variable declaration of a registered
	// struct type (or a runtime array of one) and is recorded as a declaration.
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider names the engine resource behind a hand-written binding such as a
	// texture or a sampler. It emits no WGSL.
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation is one parsed @oxy: line.
type Annotation struct {
	Type AnnotationType

	// Args depends on Type:
	//   - include:  [0] struct key
	//   - group:    [0] address space, [1] variable name, [2] struct key or array<struct key>
	//   - provider: [0] identity, [1] optional role
	Args []AnnotationArg

	// Line is 1-based within the raw source.
	Line int

	// Group and Binding are nil for include annotations.
	Group   *int
	Binding *int
}

// Resource returns the key that tells the engine which resource to bind: the element struct key
// for group annotations and the role (or the identity when no role is given) for provider annotations.
//
// Returns:
//   - AnnotationArg: the resource key, empty for include annotations
func (a Annotation) Resource() AnnotationArg {
	switch a.Type {
	case AnnotationTypeBindingGroup:
		return AnnotationArg(elementType(string(a.Args[2])))
	case AnnotationTypeProvider:
		return a.Args[len(a.Args)-1]
	default:
		return ""
	}
}

// AnnotationArg is a typed annotation argument.
type AnnotationArg string

// Struct keys. Each maps to a host record with an embedded .wgsl asset.
const (
	// AnnotationArgCamera is the Camera uniform (engine/camera/assets/camera_uniform.wgsl).
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgMaterial is the Material record (engine/primitive/assets/material.wgsl).
	AnnotationArgMaterial AnnotationArg = "material"

	// AnnotationArgSphere is the Sphere record (engine/primitive/assets/sphere.wgsl).
	AnnotationArgSphere AnnotationArg = "sphere"

	// AnnotationArgTriangle is the Triangle record (engine/scene/assets/triangle.wgsl).
	AnnotationArgTriangle AnnotationArg = "triangle"

	// AnnotationArgMeshBound is the MeshBound record (engine/scene/assets/mesh_bound.wgsl).
	AnnotationArgMeshBound AnnotationArg = "mesh_bound"

	// AnnotationArgBVHNode is the BVHNode record (engine/scene/assets/bvh_node.wgsl).
	AnnotationArgBVHNode AnnotationArg = "bvh_node"
)

// Address spaces for group annotations.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identities.
const (
	// AnnotationArgAccumulation owns the two accumulation textures and the present sampler.
	AnnotationArgAccumulation AnnotationArg = "accumulation"
)

// Binding roles within the accumulation provider.
const (
	// AnnotationArgHistory is the texture holding the running average from previous frames.
	AnnotationArgHistory AnnotationArg = "history"

	// AnnotationArgOutput is the storage texture the trace kernel writes this frame's average to.
	AnnotationArgOutput AnnotationArg = "output"

	// AnnotationArgSampler is the filtering sampler the present pass reads the history with.
	AnnotationArgSampler AnnotationArg = "sampler"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgMaterial,
	AnnotationArgSphere,
	AnnotationArgTriangle,
	AnnotationArgMeshBound,
	AnnotationArgBVHNode,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgAccumulation,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgHistory,
	AnnotationArgOutput,
	AnnotationArgSampler,
}

// elementType strips an array<...> wrapper.
func elementType(typeArg string) string {
	if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
		return strings.TrimSuffix(inner, ">")
	}
	return typeArg
}

// parseAnnotation parses one source line. Lines without the prefix yield (nil, nil).
//
// Parameters:
//   - line: the raw WGSL line
//   - lineNum: its 1-based line number
//
// Returns:
//   - *Annotation: the annotation, or nil for ordinary lines
//   - error: malformed annotations and unknown arguments
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	_, after, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:include takes exactly one struct", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct %q in @oxy:include", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy:group takes group, binding, address space, name and type", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy:group", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(elementType(args[5]))) {
			return nil, fmt.Errorf("line %d: unknown struct %q in @oxy:group", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy:provider takes group, binding, identity and an optional role", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider %q in @oxy:provider", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown role %q in @oxy:provider", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group %q: %w", lineNum, groupArg, err)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding %q: %w", lineNum, bindingArg, err)
	}
	return group, binding, nil
}
