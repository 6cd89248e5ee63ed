package primitive

import "github.com/go-gl/mathgl/mgl32"

// Sphere is an analytic sphere shaded with the material at index Material.
type Sphere struct {
	Position mgl32.Vec3
	Radius   float32
	Material uint32
}

// SphereOption configures a Sphere built with NewSphere.
type SphereOption func(*Sphere)

// NewSphere creates a unit sphere at the origin using material 0, then applies options.
//
// Parameters:
//   - options: variadic list of SphereOption functions
//
// Returns:
//   - Sphere: the configured sphere
func NewSphere(options ...SphereOption) Sphere {
	s := Sphere{Radius: 1}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// WithPosition sets the sphere center.
func WithPosition(x, y, z float32) SphereOption {
	return func(s *Sphere) { s.Position = mgl32.Vec3{x, y, z} }
}

// WithRadius sets the sphere radius.
func WithRadius(radius float32) SphereOption {
	return func(s *Sphere) { s.Radius = radius }
}

// WithMaterialIndex sets the index into the material registry.
func WithMaterialIndex(index uint32) SphereOption {
	return func(s *Sphere) { s.Material = index }
}
