package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/engine/primitive"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor converts glTF metallic-roughness materials into tracer materials.
// Only the constant factors are read; textures are not sampled by the trace kernel.
type gltfMaterialExtractor interface {
	// ExtractMaterial converts a single material by index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - primitive.Material: the converted material
	//   - error: error if the index is out of range
	ExtractMaterial(materialIndex int) (primitive.Material, error)

	// ExtractAllMaterials converts every material of the document, in document order.
	//
	// Returns:
	//   - []primitive.Material: the converted materials
	//   - error: error if no document is loaded
	ExtractAllMaterials() ([]primitive.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (primitive.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return primitive.Material{}, fmt.Errorf("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return primitive.Material{}, fmt.Errorf("material index %d out of range", materialIndex)
	}
	return gltfConvertMaterial(&doc.Materials[materialIndex]), nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]primitive.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	result := make([]primitive.Material, len(doc.Materials))
	for i := range doc.Materials {
		result[i] = gltfConvertMaterial(&doc.Materials[i])
	}
	return result, nil
}

// gltfConvertMaterial applies the glTF defaults (white base colour, fully metallic, fully rough,
// no emission) and then the factors present in the document. Specular is always white.
func gltfConvertMaterial(mat *gltfMaterial) primitive.Material {
	result := primitive.Material{
		Diffuse:   mgl32.Vec3{1, 1, 1},
		Specular:  mgl32.Vec3{1, 1, 1},
		Metalness: 1,
		Roughness: 1,
	}

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			c := *pbr.BaseColorFactor
			result.Diffuse = mgl32.Vec3{c[0], c[1], c[2]}
		}
		if pbr.MetallicFactor != nil {
			result.Metalness = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.Roughness = *pbr.RoughnessFactor
		}
	}
	if mat.EmissiveFactor != nil {
		result.Emissive = mgl32.Vec3(*mat.EmissiveFactor)
	}
	return result
}
