package input

import "github.com/Carmen-Shannon/oxy-trace/common"

// Delta is one frame of signed unit camera steps. Each axis is -1, 0 or 1.
type Delta struct {
	Yaw   float32
	Pitch float32
	// Zoom is positive away from the target.
	Zoom float32
	// Roll is bound but not consumed by the orbit camera.
	Roll float32
}

// IsZero reports whether the delta moves nothing the camera consumes.
func (d Delta) IsZero() bool {
	return d.Yaw == 0 && d.Pitch == 0 && d.Zoom == 0
}

// Axis binds the keys that push one axis positive and the keys that push it negative. Holding keys
// of both directions cancels out.
type Axis struct {
	Positive []uint32
	Negative []uint32
}

func (a Axis) resolve(keys *KeySet) float32 {
	var v float32
	if anyHeld(keys, a.Positive) {
		v++
	}
	if anyHeld(keys, a.Negative) {
		v--
	}
	return v
}

func anyHeld(keys *KeySet, codes []uint32) bool {
	for _, c := range codes {
		if keys.Held(c) {
			return true
		}
	}
	return false
}

// Bindings maps keys to the four axes.
type Bindings struct {
	Yaw, Pitch, Zoom, Roll Axis
}

// DefaultBindings: A/D and Left/Right yaw, W/S and Up/Down pitch, E/PageDown zoom out,
// Q/PageUp zoom in, R/F roll.
func DefaultBindings() Bindings {
	return Bindings{
		Yaw:   Axis{Positive: []uint32{common.KeyD, common.KeyRight}, Negative: []uint32{common.KeyA, common.KeyLeft}},
		Pitch: Axis{Positive: []uint32{common.KeyW, common.KeyUp}, Negative: []uint32{common.KeyS, common.KeyDown}},
		Zoom:  Axis{Positive: []uint32{common.KeyE, common.KeyPageDown}, Negative: []uint32{common.KeyQ, common.KeyPageUp}},
		Roll:  Axis{Positive: []uint32{common.KeyR}, Negative: []uint32{common.KeyF}},
	}
}

// Controller resolves held keys into a Delta. It holds no state beyond its bindings.
type Controller struct {
	bindings Bindings
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithBindings replaces the default key bindings.
//
// Parameters:
//   - b: the bindings to use
//
// Returns:
//   - ControllerOption: option function to apply
func WithBindings(b Bindings) ControllerOption {
	return func(c *Controller) {
		c.bindings = b
	}
}

// NewController creates a Controller with DefaultBindings unless overridden.
func NewController(options ...ControllerOption) *Controller {
	c := &Controller{bindings: DefaultBindings()}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Delta resolves this frame's delta. Scroll accumulated in keys is consumed: scrolling toward the
// user zooms out. Zoom stays within [-1, 1] when keys and scroll agree.
//
// Parameters:
//   - keys: the held-key state
//
// Returns:
//   - Delta: signed unit steps per axis
func (c *Controller) Delta(keys *KeySet) Delta {
	d := Delta{
		Yaw:   c.bindings.Yaw.resolve(keys),
		Pitch: c.bindings.Pitch.resolve(keys),
		Zoom:  c.bindings.Zoom.resolve(keys),
		Roll:  c.bindings.Roll.resolve(keys),
	}
	switch s := keys.TakeScroll(); {
	case s > 0:
		d.Zoom--
	case s < 0:
		d.Zoom++
	}
	d.Zoom = max(-1, min(1, d.Zoom))
	return d
}
