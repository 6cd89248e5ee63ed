package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/Carmen-Shannon/oxy-trace/engine/scene"
)

// registryEntry pairs an embedded struct source with the WGSL type name it declares.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces include annotations with struct sources and group annotations with
	// @group/@binding declarations. Group and provider annotations are recorded, in source order,
	// for Declarations. The record is reset on every call.
	//
	// Parameters:
	//   - source: raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: the first malformed annotation
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations from the last Process call.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that knows every host record struct.
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:    {Source: camera.GPUCameraUniformSource, Type: "Camera"},
			AnnotationArgMaterial:  {Source: primitive.GPUMaterialSource, Type: "Material"},
			AnnotationArgSphere:    {Source: primitive.GPUSphereSource, Type: "Sphere"},
			AnnotationArgTriangle:  {Source: scene.GPUTriangleSource, Type: "Triangle"},
			AnnotationArgMeshBound: {Source: scene.GPUMeshBoundSource, Type: "MeshBound"},
			AnnotationArgBVHNode:   {Source: scene.GPUBVHNodeSource, Type: "BVHNode"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			// a struct declared twice is a WGSL redefinition error
			if included[a.Args[0]] {
				return "", fmt.Errorf("line %d: struct %q included twice", a.Line, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, p.structRegistry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup:
			typeArg := string(a.Args[2])
			wgslType := p.structRegistry[AnnotationArg(elementType(typeArg))].Type
			if typeArg != elementType(typeArg) {
				wgslType = "array<" + wgslType + ">"
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
