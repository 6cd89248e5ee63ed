package primitive

import "github.com/go-gl/mathgl/mgl32"

// DefaultSphereRoughness is the roughness given to a sphere's inline material when none is specified.
const DefaultSphereRoughness float32 = 0.5

// Material is a surface description referenced by index from spheres and mesh nodes.
// The index of a material is its position in the Registry.
type Material struct {
	Diffuse   mgl32.Vec3
	Roughness float32
	Specular  mgl32.Vec3
	Metalness float32
	Emissive  mgl32.Vec3
}

// MaterialOption configures a Material built with NewMaterial.
type MaterialOption func(*Material)

// NewMaterial creates a Material. Omitted fields are zero, matching a black, perfectly smooth dielectric.
//
// Parameters:
//   - options: variadic list of MaterialOption functions
//
// Returns:
//   - Material: the configured material
func NewMaterial(options ...MaterialOption) Material {
	var m Material
	for _, opt := range options {
		opt(&m)
	}
	return m
}

// WithDiffuse sets the diffuse albedo.
func WithDiffuse(r, g, b float32) MaterialOption {
	return func(m *Material) { m.Diffuse = mgl32.Vec3{r, g, b} }
}

// WithRoughness sets the roughness in [0, 1].
func WithRoughness(roughness float32) MaterialOption {
	return func(m *Material) { m.Roughness = roughness }
}

// WithSpecular sets the specular tint.
func WithSpecular(r, g, b float32) MaterialOption {
	return func(m *Material) { m.Specular = mgl32.Vec3{r, g, b} }
}

// WithMetalness sets the metalness in [0, 1].
func WithMetalness(metalness float32) MaterialOption {
	return func(m *Material) { m.Metalness = metalness }
}

// WithEmissive sets the emitted radiance. Values above 1 are expected for light sources.
func WithEmissive(r, g, b float32) MaterialOption {
	return func(m *Material) { m.Emissive = mgl32.Vec3{r, g, b} }
}

// InlineSphereMaterial builds the material for a sphere declared with inline surface properties
// instead of a material index. A nil roughness becomes DefaultSphereRoughness and the specular tint is white.
//
// Parameters:
//   - diffuse: diffuse albedo
//   - emissive: emitted radiance
//   - roughness: optional roughness
//
// Returns:
//   - Material: the material to register for the sphere
func InlineSphereMaterial(diffuse, emissive mgl32.Vec3, roughness *float32) Material {
	m := Material{
		Diffuse:   diffuse,
		Roughness: DefaultSphereRoughness,
		Specular:  mgl32.Vec3{1, 1, 1},
		Emissive:  emissive,
	}
	if roughness != nil {
		m.Roughness = *roughness
	}
	return m
}

// IsEmissive reports whether the material emits light.
func (m Material) IsEmissive() bool {
	return m.Emissive[0] > 0 || m.Emissive[1] > 0 || m.Emissive[2] > 0
}
