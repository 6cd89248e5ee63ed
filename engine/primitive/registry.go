package primitive

import (
	"errors"
	"fmt"
)

// ErrUnknownMaterial is returned when a sphere references a material index outside the registry.
var ErrUnknownMaterial = errors.New("material index out of range")

// Registry holds materials and spheres in the exact order the trace kernel indexes them.
// It is not safe for concurrent mutation; the frame loop owns it.
type Registry struct {
	materials []Material
	spheres   []Sphere
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddMaterial appends m and returns its index.
//
// Parameters:
//   - m: the material to register
//
// Returns:
//   - uint32: the index spheres and mesh nodes use to reference m
func (r *Registry) AddMaterial(m Material) uint32 {
	r.materials = append(r.materials, m)
	return uint32(len(r.materials) - 1)
}

// AddSphere appends s after checking that its material is registered.
//
// Parameters:
//   - s: the sphere to register
//
// Returns:
//   - uint32: the index of s
//   - error: ErrUnknownMaterial when s.Material is not a registered index
func (r *Registry) AddSphere(s Sphere) (uint32, error) {
	if int(s.Material) >= len(r.materials) {
		return 0, fmt.Errorf("sphere %d: %w: %d (have %d)", len(r.spheres), ErrUnknownMaterial, s.Material, len(r.materials))
	}
	r.spheres = append(r.spheres, s)
	return uint32(len(r.spheres) - 1), nil
}

// Materials returns a copy of the registered materials in index order.
func (r *Registry) Materials() []Material {
	return append([]Material(nil), r.materials...)
}

// Spheres returns a copy of the registered spheres in index order.
func (r *Registry) Spheres() []Sphere {
	return append([]Sphere(nil), r.spheres...)
}

// MaterialCount returns the number of registered materials.
func (r *Registry) MaterialCount() int {
	return len(r.materials)
}

// SphereCount returns the number of registered spheres.
func (r *Registry) SphereCount() int {
	return len(r.spheres)
}

// MarshalMaterials serializes every material, in index order, into one contiguous buffer.
//
// Returns:
//   - []byte: MaterialCount()*MaterialSize bytes
func (r *Registry) MarshalMaterials() []byte {
	buf := make([]byte, len(r.materials)*MaterialSize)
	for i, m := range r.materials {
		m.MarshalTo(buf[i*MaterialSize:])
	}
	return buf
}

// MarshalSpheres serializes every sphere, in index order, into one contiguous buffer.
//
// Returns:
//   - []byte: SphereCount()*SphereSize bytes
func (r *Registry) MarshalSpheres() []byte {
	buf := make([]byte, len(r.spheres)*SphereSize)
	for i, s := range r.spheres {
		s.MarshalTo(buf[i*SphereSize:])
	}
	return buf
}
