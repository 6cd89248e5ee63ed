package camera

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the Camera uniform struct.
// Matches GPUCameraUniform layout exactly (160 bytes, std140 aligned).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniformSize is the size of the serialized camera uniform in bytes.
const GPUCameraUniformSize = 160

// ErrUniformSize is returned when decoding a buffer that is not a whole camera uniform.
var ErrUniformSize = errors.New("camera uniform has wrong size")

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL Camera struct layout exactly (see GPUCameraUniformSource).
// Field order is part of the kernel ABI and must not change.
type GPUCameraUniform struct {
	InverseView       [16]float32 // offset   0: inverse view matrix (mat4x4<f32>)
	InverseProjection [16]float32 // offset  64: inverse projection matrix (mat4x4<f32>)
	Width             float32     // offset 128: viewport width in pixels
	Height            float32     // offset 132: viewport height in pixels
	Near              float32     // offset 136: near plane
	Far               float32     // offset 140: far plane
	Timestep          float32     // offset 144: accumulation counter, 1 = reset
	TriangleCount     uint32      // offset 148: triangles uploaded after culling
	_pad              [2]uint32   // offset 152: padding to 160 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, GPUCameraUniformSize)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.InverseView[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.InverseProjection[i]))
	}
	binary.LittleEndian.PutUint32(buf[128:], math.Float32bits(g.Width))
	binary.LittleEndian.PutUint32(buf[132:], math.Float32bits(g.Height))
	binary.LittleEndian.PutUint32(buf[136:], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[140:], math.Float32bits(g.Far))
	binary.LittleEndian.PutUint32(buf[144:], math.Float32bits(g.Timestep))
	binary.LittleEndian.PutUint32(buf[148:], g.TriangleCount)
	return buf
}

// Unmarshal decodes a serialized camera uniform into g.
//
// Parameters:
//   - buf: exactly GPUCameraUniformSize bytes
//
// Returns:
//   - error: ErrUniformSize when buf has the wrong length
func (g *GPUCameraUniform) Unmarshal(buf []byte) error {
	if len(buf) != GPUCameraUniformSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrUniformSize, len(buf), GPUCameraUniformSize)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	for i := range 16 {
		g.InverseView[i] = f(i * 4)
		g.InverseProjection[i] = f(64 + i*4)
	}
	g.Width = f(128)
	g.Height = f(132)
	g.Near = f(136)
	g.Far = f(140)
	g.Timestep = f(144)
	g.TriangleCount = binary.LittleEndian.Uint32(buf[148:])
	return nil
}
