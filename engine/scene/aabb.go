package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const maxFloat = math.MaxFloat32

func minVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

func maxVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

// emptyBox returns an inverted box that any point expands.
func emptyBox() (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{maxFloat, maxFloat, maxFloat}, mgl32.Vec3{-maxFloat, -maxFloat, -maxFloat}
}

// halfArea is half the surface area of the box spanned by lo and hi.
func halfArea(lo, hi mgl32.Vec3) float32 {
	s := hi.Sub(lo)
	return s[0]*s[1] + s[1]*s[2] + s[0]*s[2]
}

// BBox returns the axis-aligned bounds of the triangle.
func (t Triangle) BBox() [2]mgl32.Vec3 {
	return [2]mgl32.Vec3{minVec3(minVec3(t.A, t.B), t.C), maxVec3(maxVec3(t.A, t.B), t.C)}
}

// Center returns the triangle centroid.
func (t Triangle) Center() mgl32.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}
