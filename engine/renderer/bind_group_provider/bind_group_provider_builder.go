package bind_group_provider

import "github.com/Carmen-Shannon/oxy-trace/common"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer binds a buffer at construction.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - h: the buffer handle
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, h common.BufferHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetBuffer(binding, h)
	}
}

// WithTexture binds a texture at construction.
//
// Parameters:
//   - binding: the binding index for this texture
//   - h: the texture handle
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture for the specified binding
func WithTexture(binding int, h common.TextureHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetTexture(binding, h)
	}
}

// WithSampler binds a sampler at construction.
func WithSampler(binding int, h common.SamplerHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.SetSampler(binding, h)
	}
}
