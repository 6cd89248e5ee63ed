package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// minPoleAngle keeps orbiting from pitching the view direction onto the up axis.
const minPoleAngle float32 = 0.01

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fovY   float32
	width  uint32
	height uint32
	near   float32
	far    float32

	orbitStep  float32
	zoomFactor float32
	minRadius  float32

	timestep         uint32
	triangleCount    uint32
	maxTriangleCount uint32

	projectionMatrix        mgl32.Mat4
	viewMatrix              mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4
	inverseViewMatrix       mgl32.Mat4
}

// Camera defines the interface of the path tracer's camera.
// It owns the view basis, derives the projection and view matrices together with their inverses,
// and carries the accumulation timestep that is uploaded with every frame.
//
// Position, target and up must describe a non-degenerate basis: a zero-length up vector or a
// position equal to the target yields undefined matrices.
type Camera interface {
	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	Target() mgl32.Vec3

	// Up returns the up hint. It is not renormalized.
	Up() mgl32.Vec3

	// Direction returns the normalized vector from position to target.
	// It is computed on every call.
	//
	// Returns:
	//   - mgl32.Vec3: the unit view direction
	Direction() mgl32.Vec3

	// FovY returns the vertical field of view in radians.
	FovY() float32

	// Width returns the viewport width in pixels.
	Width() uint32

	// Height returns the viewport height in pixels.
	Height() uint32

	// Aspect returns width / height.
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix.
	ProjectionMatrix() mgl32.Mat4

	// InverseViewMatrix returns the inverse of the current view matrix.
	InverseViewMatrix() mgl32.Mat4

	// InverseProjectionMatrix returns the inverse of the current projection matrix.
	InverseProjectionMatrix() mgl32.Mat4

	// Timestep returns the accumulation counter. 1 marks the first frame of a new accumulation.
	Timestep() uint32

	// SetTimestep overwrites the accumulation counter.
	//
	// Parameters:
	//   - timestep: the new counter value, 1 to restart accumulation
	SetTimestep(timestep uint32)

	// AdvanceTimestep increments the accumulation counter by one and returns the new value.
	//
	// Returns:
	//   - uint32: the incremented counter
	AdvanceTimestep() uint32

	// TriangleCount returns the number of triangles uploaded for the kernel after culling.
	TriangleCount() uint32

	// MaxTriangleCount returns the number of triangles in the scene before culling.
	MaxTriangleCount() uint32

	// SetTriangleCounts records the post-cull and pre-cull triangle counts of the current scene.
	//
	// Parameters:
	//   - visible: triangles emitted after culling
	//   - total: triangles in the scene before culling
	SetTriangleCounts(visible, total uint32)

	// UpdateMatrices recomputes the projection and view matrices and both inverses from the current fields.
	UpdateMatrices()

	// ApplyDelta orbits the camera around its target and zooms along the view direction.
	// Yaw rotates about the up axis, pitch about the lateral axis cross(up, toTarget), and the
	// orbit radius is then scaled by 1 + zoom*zoomFactor. Any non-zero delta resets the
	// timestep to 1 and recomputes the matrices.
	//
	// Parameters:
	//   - yaw: signed yaw steps
	//   - pitch: signed pitch steps
	//   - zoom: signed zoom steps, positive moves away from the target
	//
	// Returns:
	//   - bool: true if the delta was non-zero and the camera changed
	ApplyDelta(yaw, pitch, zoom float32) bool

	// Resize updates the viewport, recomputes the matrices and resets the timestep to 1.
	//
	// Parameters:
	//   - width, height: new viewport size in pixels
	Resize(width, height uint32)

	// LookAt moves the camera to position, aims it at target, recomputes the matrices and resets the timestep to 1.
	//
	// Parameters:
	//   - position: new eye position
	//   - target: new look-at point
	LookAt(position, target mgl32.Vec3)

	// Uniform returns the GPU uniform block for the current state.
	//
	// Returns:
	//   - GPUCameraUniform: the uniform in kernel layout
	Uniform() GPUCameraUniform

	// Serialize returns the uniform block as bytes ready for upload.
	//
	// Returns:
	//   - []byte: GPUCameraUniformSize bytes
	Serialize() []byte
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera. Defaults: up (0, 1, 0), fovY 2π/5, a 1x1 viewport, near 0.01, far 100,
// timestep 1. Position and target default to the origin, so callers are expected to set them.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera with its matrices computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		up:         mgl32.Vec3{0, 1, 0},
		fovY:       2 * math.Pi / 5,
		width:      1,
		height:     1,
		near:       0.01,
		far:        100,
		orbitStep:  0.03,
		zoomFactor: 0.05,
		minRadius:  0.05,
		timestep:   1,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Direction() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target.Sub(c.position).Normalize()
}

func (c *cameraImpl) FovY() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fovY
}

func (c *cameraImpl) Width() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

func (c *cameraImpl) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect()
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Timestep() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestep
}

func (c *cameraImpl) SetTimestep(timestep uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestep = timestep
}

func (c *cameraImpl) AdvanceTimestep() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timestep++
	return c.timestep
}

func (c *cameraImpl) TriangleCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triangleCount
}

func (c *cameraImpl) MaxTriangleCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxTriangleCount
}

func (c *cameraImpl) SetTriangleCounts(visible, total uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triangleCount = visible
	c.maxTriangleCount = total
}

func (c *cameraImpl) UpdateMatrices() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) ApplyDelta(yaw, pitch, zoom float32) bool {
	if yaw == 0 && pitch == 0 && zoom == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	offset := c.position.Sub(c.target)
	upAxis := c.up.Normalize()

	if yaw != 0 {
		offset = mgl32.HomogRotate3D(yaw*c.orbitStep, upAxis).Mul4x1(offset.Vec4(0)).Vec3()
	}

	if pitch != 0 {
		// lateral axis: cross(up, toTarget)
		lateral := c.up.Cross(offset.Mul(-1))
		if lateral.Len() > 0 {
			rotated := mgl32.HomogRotate3D(pitch*c.orbitStep, lateral.Normalize()).Mul4x1(offset.Vec4(0)).Vec3()
			if angleTo(rotated, upAxis) > minPoleAngle && angleTo(rotated, upAxis.Mul(-1)) > minPoleAngle {
				offset = rotated
			}
		}
	}

	if zoom != 0 {
		radius := offset.Len()
		scaled := radius * (1 + zoom*c.zoomFactor)
		if scaled < c.minRadius {
			scaled = c.minRadius
		}
		if radius > 0 {
			offset = offset.Mul(scaled / radius)
		}
	}

	c.position = c.target.Add(offset)
	c.timestep = 1
	c.updateMatrices()
	return true
}

func (c *cameraImpl) Resize(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width = width
	c.height = height
	c.timestep = 1
	c.updateMatrices()
}

func (c *cameraImpl) LookAt(position, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.target = target
	c.timestep = 1
	c.updateMatrices()
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		InverseView:       c.inverseViewMatrix,
		InverseProjection: c.inverseProjectionMatrix,
		Width:             float32(c.width),
		Height:            float32(c.height),
		Near:              c.near,
		Far:               c.far,
		Timestep:          float32(c.timestep),
		TriangleCount:     c.triangleCount,
	}
}

func (c *cameraImpl) Serialize() []byte {
	u := c.Uniform()
	return u.Marshal()
}

// aspect returns width / height, treating a zero height as 1.
// Caller must hold the mutex.
func (c *cameraImpl) aspect() float32 {
	if c.height == 0 {
		return float32(c.width)
	}
	return float32(c.width) / float32(c.height)
}

// updateMatrices recomputes the forward matrices and their inverses in one step.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.projectionMatrix = common.Perspective(c.fovY, c.aspect(), c.near, c.far)
	c.viewMatrix = common.LookAt(c.position, c.target, c.up)
	c.inverseProjectionMatrix, _ = common.Invert4(c.projectionMatrix)
	c.inverseViewMatrix, _ = common.Invert4(c.viewMatrix)
}

func angleTo(a, b mgl32.Vec3) float32 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	cos := a.Dot(b) / (la * lb)
	return math32.Acos(mgl32.Clamp(cos, -1, 1))
}
