package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesAreSortedByBinding(t *testing.T) {
	p := NewBindGroupProvider("trace",
		WithTexture(6, 12),
		WithBuffer(0, 3),
		WithSampler(2, 1),
	)

	entries := p.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []int{0, 2, 6}, []int{entries[0].Binding, entries[1].Binding, entries[2].Binding})
	assert.Equal(t, EntryKindBuffer, entries[0].Kind)
	assert.Equal(t, common.BufferHandle(3), p.Buffer(0))
	assert.Equal(t, common.TextureHandle(12), p.Texture(6))
	assert.Equal(t, "trace", p.Label())
}

func TestVersionMovesOnlyWhenABindingChanges(t *testing.T) {
	p := NewBindGroupProvider("present")
	assert.Zero(t, p.Version())

	p.SetTexture(1, 5)
	v := p.Version()
	assert.NotZero(t, v)

	p.SetTexture(1, 5)
	assert.Equal(t, v, p.Version(), "re-binding the same handle")

	p.SetTexture(1, 9)
	assert.Greater(t, p.Version(), v)

	e, ok := p.Entry(1)
	require.True(t, ok)
	assert.Equal(t, common.TextureHandle(9), e.Texture)

	_, ok = p.Entry(4)
	assert.False(t, ok)
}
