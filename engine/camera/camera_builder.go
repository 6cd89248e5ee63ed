package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's eye position.
//
// Parameters:
//   - x, y, z: position in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - x, y, z: target in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = mgl32.Vec3{x, y, z}
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = mgl32.Vec3{x, y, z}
	}
}

// WithFovY sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fovY: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFovY(fovY float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fovY = fovY
	}
}

// WithViewport sets the viewport size in pixels.
//
// Parameters:
//   - width, height: viewport dimensions
//
// Returns:
//   - CameraBuilderOption: a function that sets the viewport
func WithViewport(width, height uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width = width
		c.height = height
	}
}

// WithClipPlanes sets the near and far clipping distances.
//
// Parameters:
//   - near: near plane distance (must be > 0)
//   - far: far plane distance (must be > near)
//
// Returns:
//   - CameraBuilderOption: a function that sets the clipping planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithOrbitStep sets the angle, in radians, of one unit of yaw or pitch passed to ApplyDelta.
func WithOrbitStep(step float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.orbitStep = step
	}
}

// WithZoomFactor sets k in the radius scale 1 + zoom*k applied by ApplyDelta.
func WithZoomFactor(k float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.zoomFactor = k
	}
}

// WithMinRadius sets the closest distance to the target that zooming can reach.
func WithMinRadius(r float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.minRadius = r
	}
}
