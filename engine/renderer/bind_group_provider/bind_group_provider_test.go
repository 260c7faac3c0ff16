package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderTracksResources(t *testing.T) {
	p := NewBindGroupProvider("Scene", 0, WithTextureView(3, nil))

	assert.Equal(t, "Scene", p.Label())
	assert.Equal(t, 0, p.Group())
	assert.True(t, p.HasTextureView(3))
	assert.False(t, p.HasTextureView(1))

	p.SetBuffer(1, nil, 256)
	assert.Equal(t, uint64(256), p.BufferSize(1))
	assert.Equal(t, uint64(0), p.BufferSize(2))
	assert.Len(t, p.Buffers(), 1)

	p.Release()
	assert.Empty(t, p.Buffers())
	assert.Equal(t, uint64(0), p.BufferSize(1))
	assert.False(t, p.HasTextureView(3))
	assert.Nil(t, p.BindGroup())
	p.Release()
}

func TestPadData(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3, 4}, PadData([]byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 0, 0}, PadData([]byte{1, 2}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, PadData([]byte{1, 2, 3, 4, 5}))
	assert.Empty(t, PadData(nil))
}
