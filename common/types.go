// package common contains common types and helpers that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrEnvironmentUnavailable is wrapped by every failure to obtain a window, GPU adapter, device or surface.
// Callers report it and exit; nothing retries.
var ErrEnvironmentUnavailable = errors.New("graphics environment unavailable")

// Extent is a viewport or texture size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// Workgroups returns the compute dispatch size covering the extent with WorkgroupSize square tiles.
//
// Returns:
//   - [3]uint32: ceil(Width/16), ceil(Height/16), 1
func (e Extent) Workgroups() [3]uint32 {
	return [3]uint32{WorkgroupCount(e.Width, WorkgroupSize), WorkgroupCount(e.Height, WorkgroupSize), 1}
}

// Empty reports whether either dimension is zero, as happens while a window is minimized.
func (e Extent) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// BufferHandle names a GPU buffer owned by a backend. Zero is never a live handle.
type BufferHandle uint32

// TextureHandle names a GPU texture owned by a backend. Zero is never a live handle.
type TextureHandle uint32

// SamplerHandle names a GPU sampler owned by a backend. Zero is never a live handle.
type SamplerHandle uint32

// SamplerDescriptor configures a sampler. Zero fields take the backend's defaults: clamp to edge and
// linear filtering.
type SamplerDescriptor struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode outside [0, 1] per axis.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
}
