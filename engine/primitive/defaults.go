package primitive

// DefaultMaterials returns the sample material set: four surfaces followed by three emitters.
//
// Returns:
//   - []Material: the materials in registry order
func DefaultMaterials() []Material {
	return []Material{
		// blue
		NewMaterial(WithDiffuse(0.3, 0.5, 1.0), WithRoughness(0.7), WithSpecular(1, 1, 1)),
		// red
		NewMaterial(WithDiffuse(1.0, 0.3, 0.3), WithRoughness(0.99), WithSpecular(1, 1, 1)),
		// reflective
		NewMaterial(WithDiffuse(0.8, 0.8, 0.6), WithRoughness(0.1), WithSpecular(0.8, 0.8, 0.6), WithMetalness(1)),
		// ground
		NewMaterial(WithDiffuse(0.9, 0.9, 0.9), WithRoughness(1.0), WithSpecular(1, 1, 1)),
		// lights
		NewMaterial(WithRoughness(1.0), WithEmissive(20, 20, 10)),
		NewMaterial(WithRoughness(1.0), WithEmissive(20, 10, 20)),
		NewMaterial(WithRoughness(1.0), WithEmissive(10, 20, 20)),
	}
}

// DefaultSpheres returns the sample spheres. They reference DefaultMaterials by index.
//
// Returns:
//   - []Sphere: the spheres in registry order
func DefaultSpheres() []Sphere {
	return []Sphere{
		NewSphere(WithPosition(-4, 0, 0), WithRadius(0.8), WithMaterialIndex(0)),
		NewSphere(WithPosition(-0.2, 0, 0), WithRadius(0.4), WithMaterialIndex(1)),
		NewSphere(WithPosition(3, 0, 0), WithRadius(1.5), WithMaterialIndex(2)),
		NewSphere(WithPosition(0, -500, 0), WithRadius(498), WithMaterialIndex(3)),
		NewSphere(WithPosition(0, 2, 0), WithRadius(0.8), WithMaterialIndex(4)),
		NewSphere(WithPosition(-2, -1, 5), WithRadius(0.5), WithMaterialIndex(5)),
		NewSphere(WithPosition(0, 0, -5), WithRadius(0.5), WithMaterialIndex(6)),
	}
}

// DefaultRegistry returns a Registry populated with DefaultMaterials and DefaultSpheres.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range DefaultMaterials() {
		r.AddMaterial(m)
	}
	for _, s := range DefaultSpheres() {
		// indices are known to be valid
		_, _ = r.AddSphere(s)
	}
	return r
}
