package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/profiler"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default once-a-second profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithWindow attaches a window: its key, scroll, focus and resize events feed the frame loop and
// Run stops when it closes. Without a window the engine runs headless until its context ends.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithController replaces the default key bindings.
func WithController(c *input.Controller) EngineBuilderOption {
	return func(e *engine) {
		e.controller = c
	}
}

// WithCulling re-extracts the triangles against the camera direction on every reset frame.
//
// Parameters:
//   - enabled: if true, back-facing triangles are dropped before upload
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCulling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cull = enabled
	}
}

// WithMaxFrames makes Run return after n frames. 0 runs until stopped.
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
