package common

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// WorkgroupSize is the edge length, in texels, of one compute workgroup of the trace kernel.
const WorkgroupSize = 16

// Perspective builds a perspective projection matrix for WebGPU clip space (depth in [0, 1]).
// The matrix is column-major.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// LookAt builds a right-handed view matrix that transforms world coordinates into camera space.
// A zero-length forward or lateral axis is left unnormalized; callers must not pass a degenerate basis.
//
// Parameters:
//   - eye: camera position in world space
//   - center: point the camera looks at
//   - up: up hint, typically (0, 1, 0)
//
// Returns:
//   - mgl32.Mat4: the view matrix
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	z := safeNormalize(eye.Sub(center))
	x := safeNormalize(up.Cross(z))
	y := z.Cross(x)

	return mgl32.Mat4{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// Invert4 returns the inverse of m. If m is singular the zero matrix and false are returned.
//
// Parameters:
//   - m: source matrix (column-major)
//
// Returns:
//   - mgl32.Mat4: the inverse of m
//   - bool: true if m was invertible
func Invert4(m mgl32.Mat4) (mgl32.Mat4, bool) {
	if m.Det() == 0 {
		return mgl32.Mat4{}, false
	}
	return m.Inv(), true
}

// TransformPoint applies m to p as a homogeneous point (w = 1) and drops the resulting w.
//
// Parameters:
//   - m: affine transform
//   - p: point to transform
//
// Returns:
//   - mgl32.Vec3: the transformed point
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// WorkgroupCount returns how many workgroups of the given size are needed to cover n invocations.
//
// Parameters:
//   - n: number of invocations along one axis
//   - size: workgroup size along that axis
//
// Returns:
//   - uint32: ceil(n / size), or 0 when size is 0
func WorkgroupCount(n, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (n + size - 1) / size
}

// PutFloat32s writes vals as consecutive little-endian float32 values into dst starting at offset 0.
// dst must hold at least 4*len(vals) bytes.
func PutFloat32s(dst []byte, vals ...float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// Float32At reads the little-endian float32 stored at byte offset off.
func Float32At(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}
