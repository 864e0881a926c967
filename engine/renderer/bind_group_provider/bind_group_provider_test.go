package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func groundLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 11, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
		{Binding: 0, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth}},
		{Binding: 2, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}},
		{Binding: 4, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
	}}
}

func TestLabel(t *testing.T) {
	p := NewBindGroupProvider("ground textures")
	assert.Equal(t, "ground textures", p.Label())
	assert.Nil(t, p.BindGroup())
	assert.Nil(t, p.BindGroupLayout())
}

func TestMissingReportsUnsetBindings(t *testing.T) {
	p := NewBindGroupProvider("ground")
	assert.Equal(t, []uint32{0, 2, 4, 11}, p.Missing(groundLayout()))

	p.SetTextureView(2, &wgpu.TextureView{})
	p.SetSampler(11, &wgpu.Sampler{})
	assert.Equal(t, []uint32{0, 4}, p.Missing(groundLayout()))

	p.SetTextureViews(map[int]*wgpu.TextureView{0: {}})
	p.SetBuffer(4, &wgpu.Buffer{})
	assert.Empty(t, p.Missing(groundLayout()))
}

func TestTextureInWrongSlotStillMissing(t *testing.T) {
	p := NewBindGroupProvider("ground")
	// a texture view at a sampler binding does not satisfy it
	p.SetTextureView(11, &wgpu.TextureView{})
	assert.Contains(t, p.Missing(groundLayout()), uint32(11))
}

func TestOwnedVersusBorrowed(t *testing.T) {
	p := NewBindGroupProvider("uniforms")
	owned := &wgpu.Buffer{}
	borrowed := &wgpu.Buffer{}

	p.OwnBuffer(0, owned)
	p.SetBuffer(1, borrowed)
	assert.True(t, p.Owns(0))
	assert.False(t, p.Owns(1))
	assert.Same(t, owned, p.Buffer(0))
	assert.Same(t, borrowed, p.Buffer(1))
	assert.Len(t, p.Buffers(), 2)

	// re-borrowing the same pointer keeps it and drops ownership
	p.SetBuffer(0, owned)
	assert.False(t, p.Owns(0))
}

func TestOptions(t *testing.T) {
	buf := &wgpu.Buffer{}
	tv := &wgpu.TextureView{}
	s := &wgpu.Sampler{}
	p := NewBindGroupProvider("opts", WithBuffer(0, buf), WithTextureView(1, tv), WithSampler(2, s))
	assert.Same(t, buf, p.Buffer(0))
	assert.False(t, p.Owns(0))
	assert.Same(t, tv, p.TextureView(1))
	assert.Same(t, s, p.Sampler(2))
}

func TestReleaseForgetsBorrowed(t *testing.T) {
	p := NewBindGroupProvider("borrowed", WithBuffer(0, &wgpu.Buffer{}), WithTextureView(1, &wgpu.TextureView{}))
	p.Release()
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.TextureView(1))
	assert.Empty(t, p.Buffers())
}

func TestWrite(t *testing.T) {
	p := NewBindGroupProvider("u")
	w := Write(p, 3, []byte{1, 2})
	assert.Equal(t, 3, w.Binding)
	assert.Zero(t, w.Offset)
	assert.Equal(t, []byte{1, 2}, w.Data)
}
