package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

var (
	// ErrSurfaceLost is returned by Present when the swapchain texture cannot be acquired. The frame
	// loop stops on it.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrEnvironmentUnavailable is wrapped when no adapter, device or surface can be created.
	ErrEnvironmentUnavailable = common.ErrEnvironmentUnavailable

	// ErrUnknownHandle is returned for a handle the backend never issued or already released.
	ErrUnknownHandle = errors.New("unknown resource handle")

	// ErrUnknownPipeline is returned when a pipeline key was never registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrNoFrame is returned when a frame command is recorded outside BeginFrame and Submit.
	ErrNoFrame = errors.New("no frame in progress")
)

// BufferUsage is a set of buffer usage flags.
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageMapRead
)

// TextureUsage is a set of texture usage flags.
type TextureUsage uint32

const (
	TextureUsageTextureBinding TextureUsage = 1 << iota
	TextureUsageStorageBinding
	TextureUsageCopySrc
	TextureUsageCopyDst
)

// TextureFormat is a texel format the backend can allocate.
type TextureFormat int

const (
	// TextureFormatRGBA16Float is the accumulation format: 8 bytes per texel, filterable, and
	// writable as a storage texture.
	TextureFormatRGBA16Float TextureFormat = iota

	// TextureFormatRGBA8Unorm is a 4-byte texel format.
	TextureFormatRGBA8Unorm
)

// BytesPerTexel returns the size of one texel.
func (f TextureFormat) BytesPerTexel() uint32 {
	switch f {
	case TextureFormatRGBA16Float:
		return 8
	default:
		return 4
	}
}

func (u BufferUsage) wgpu() wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&BufferUsageMapRead != 0 {
		out |= wgpu.BufferUsageMapRead
	}
	return out
}

func (u TextureUsage) wgpu() wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&TextureUsageStorageBinding != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func (f TextureFormat) wgpu() wgpu.TextureFormat {
	switch f {
	case TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	default:
		return wgpu.TextureFormatRGBA16Float
	}
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
