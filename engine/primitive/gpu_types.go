package primitive

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUMaterialSource is the canonical WGSL definition of the Material struct.
// Matches the Material record layout exactly (48 bytes, three vec4<f32>).
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// GPUSphereSource is the canonical WGSL definition of the Sphere struct.
// Matches the Sphere record layout exactly (32 bytes, two vec4<f32>).
//
//go:embed assets/sphere.wgsl
var GPUSphereSource string

const (
	// MaterialSize is the serialized size of one Material record in bytes.
	MaterialSize = 48
	// SphereSize is the serialized size of one Sphere record in bytes.
	SphereSize = 32
)

// ErrRecordSize is returned when a byte slice does not hold a whole number of records.
var ErrRecordSize = errors.New("buffer length is not a multiple of the record size")

// MarshalTo writes the material into dst, which must hold at least MaterialSize bytes.
//
//	offset  0: diffuse   (vec3<f32>)
//	offset 12: roughness (f32)
//	offset 16: specular  (vec3<f32>)
//	offset 28: metalness (f32)
//	offset 32: emissive  (vec3<f32>)
//	offset 44: padding
func (m Material) MarshalTo(dst []byte) {
	common.PutFloat32s(dst[:MaterialSize],
		m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], m.Roughness,
		m.Specular[0], m.Specular[1], m.Specular[2], m.Metalness,
		m.Emissive[0], m.Emissive[1], m.Emissive[2], 0,
	)
}

// Marshal serializes the material into a new MaterialSize byte buffer.
//
// Returns:
//   - []byte: the serialized record
func (m Material) Marshal() []byte {
	buf := make([]byte, MaterialSize)
	m.MarshalTo(buf)
	return buf
}

// UnmarshalMaterial decodes one material record.
//
// Parameters:
//   - src: at least MaterialSize bytes
//
// Returns:
//   - Material: the decoded material
//   - error: when src is too short
func UnmarshalMaterial(src []byte) (Material, error) {
	if len(src) < MaterialSize {
		return Material{}, fmt.Errorf("material: %w: got %d bytes", ErrRecordSize, len(src))
	}
	f := func(i int) float32 { return common.Float32At(src, i*4) }
	return Material{
		Diffuse:   mgl32.Vec3{f(0), f(1), f(2)},
		Roughness: f(3),
		Specular:  mgl32.Vec3{f(4), f(5), f(6)},
		Metalness: f(7),
		Emissive:  mgl32.Vec3{f(8), f(9), f(10)},
	}, nil
}

// MarshalTo writes the sphere into dst, which must hold at least SphereSize bytes.
//
//	offset  0: position (vec3<f32>)
//	offset 12: radius   (f32)
//	offset 16: material index stored as f32
//	offset 20: padding (3 x f32)
func (s Sphere) MarshalTo(dst []byte) {
	common.PutFloat32s(dst[:SphereSize],
		s.Position[0], s.Position[1], s.Position[2], s.Radius,
		float32(s.Material), 0, 0, 0,
	)
}

// Marshal serializes the sphere into a new SphereSize byte buffer.
//
// Returns:
//   - []byte: the serialized record
func (s Sphere) Marshal() []byte {
	buf := make([]byte, SphereSize)
	s.MarshalTo(buf)
	return buf
}

// UnmarshalSphere decodes one sphere record.
//
// Parameters:
//   - src: at least SphereSize bytes
//
// Returns:
//   - Sphere: the decoded sphere
//   - error: when src is too short
func UnmarshalSphere(src []byte) (Sphere, error) {
	if len(src) < SphereSize {
		return Sphere{}, fmt.Errorf("sphere: %w: got %d bytes", ErrRecordSize, len(src))
	}
	f := func(i int) float32 { return common.Float32At(src, i*4) }
	return Sphere{
		Position: mgl32.Vec3{f(0), f(1), f(2)},
		Radius:   f(3),
		Material: uint32(f(4)),
	}, nil
}

// UnmarshalMaterials decodes a concatenation of material records.
func UnmarshalMaterials(src []byte) ([]Material, error) {
	if len(src)%MaterialSize != 0 {
		return nil, fmt.Errorf("materials: %w: got %d bytes", ErrRecordSize, len(src))
	}
	out := make([]Material, 0, len(src)/MaterialSize)
	for off := 0; off < len(src); off += MaterialSize {
		m, _ := UnmarshalMaterial(src[off:])
		out = append(out, m)
	}
	return out, nil
}

// UnmarshalSpheres decodes a concatenation of sphere records.
func UnmarshalSpheres(src []byte) ([]Sphere, error) {
	if len(src)%SphereSize != 0 {
		return nil, fmt.Errorf("spheres: %w: got %d bytes", ErrRecordSize, len(src))
	}
	out := make([]Sphere, 0, len(src)/SphereSize)
	for off := 0; off < len(src); off += SphereSize {
		s, _ := UnmarshalSphere(src[off:])
		out = append(out, s)
	}
	return out, nil
}
