package bind_group_provider

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-trace/common"
)

// EntryKind identifies the resource type bound at one binding.
type EntryKind int

const (
	EntryKindBuffer EntryKind = iota
	EntryKindTexture
	EntryKindSampler
)

// Entry is one binding of a provider. Exactly one handle field is meaningful, selected by Kind.
type Entry struct {
	Binding int
	Kind    EntryKind
	Buffer  common.BufferHandle
	Texture common.TextureHandle
	Sampler common.SamplerHandle
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label, also the backend's cache key for the realized bind group.
	label   string
	entries map[int]Entry
	// version increases whenever a binding points at a different resource.
	version uint64
}

// BindGroupProvider describes the resources behind one bind group by backend handle. It owns no GPU
// objects: the backend realizes (and caches) the bind group from Entries, and rebuilds it once
// Version moves.
//
// Usage pattern:
//  1. The engine creates buffers and textures through the backend
//  2. It assigns the handles to bindings with SetBuffer, SetTexture and SetSampler
//  3. It passes the provider to Backend.DispatchCompute or Backend.Present
//  4. After a resize or a buffer grow it re-assigns the changed handle, which bumps the version
type BindGroupProvider interface {
	// Label returns the debug label.
	Label() string

	// Entries returns every binding, sorted by binding index.
	//
	// Returns:
	//   - []Entry: the bindings
	Entries() []Entry

	// Entry returns the binding at index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Entry: the binding
	//   - bool: false when nothing is bound there
	Entry(binding int) (Entry, bool)

	// Version returns a counter that changes whenever a binding is re-pointed.
	Version() uint64

	// SetBuffer binds a buffer.
	//
	// Parameters:
	//   - binding: the binding index
	//   - h: the buffer handle
	SetBuffer(binding int, h common.BufferHandle)

	// SetTexture binds a texture view of the whole texture.
	//
	// Parameters:
	//   - binding: the binding index
	//   - h: the texture handle
	SetTexture(binding int, h common.TextureHandle)

	// SetSampler binds a sampler.
	//
	// Parameters:
	//   - binding: the binding index
	//   - h: the sampler handle
	SetSampler(binding int, h common.SamplerHandle)

	// Buffer returns the buffer bound at binding, or 0.
	Buffer(binding int) common.BufferHandle

	// Texture returns the texture bound at binding, or 0.
	Texture(binding int) common.TextureHandle
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: debug label and cache key; must be unique per backend
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		entries: make(map[int]Entry),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Entries() []Entry {
	out := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Binding - b.Binding })
	return out
}

func (p *bindGroupProvider) Entry(binding int) (Entry, bool) {
	e, ok := p.entries[binding]
	return e, ok
}

func (p *bindGroupProvider) Version() uint64 {
	return p.version
}

func (p *bindGroupProvider) SetBuffer(binding int, h common.BufferHandle) {
	p.set(Entry{Binding: binding, Kind: EntryKindBuffer, Buffer: h})
}

func (p *bindGroupProvider) SetTexture(binding int, h common.TextureHandle) {
	p.set(Entry{Binding: binding, Kind: EntryKindTexture, Texture: h})
}

func (p *bindGroupProvider) SetSampler(binding int, h common.SamplerHandle) {
	p.set(Entry{Binding: binding, Kind: EntryKindSampler, Sampler: h})
}

func (p *bindGroupProvider) Buffer(binding int) common.BufferHandle {
	return p.entries[binding].Buffer
}

func (p *bindGroupProvider) Texture(binding int) common.TextureHandle {
	return p.entries[binding].Texture
}

func (p *bindGroupProvider) set(e Entry) {
	if old, ok := p.entries[e.Binding]; ok && old == e {
		return
	}
	p.entries[e.Binding] = e
	p.version++
}
