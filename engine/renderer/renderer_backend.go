package renderer

import (
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
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

// PassDescriptor describes one render pass of a frame.
type PassDescriptor struct {
	// Label names the pass in GPU debug tooling.
	Label string
	// Color is the color attachment; nil renders to the acquired surface texture.
	Color *wgpu.TextureView
	// Depth is the depth attachment; nil runs the pass without depth.
	Depth *wgpu.TextureView
	// ClearColor is the color the attachment is cleared to.
	ClearColor wgpu.Color
	// Load keeps the existing color contents instead of clearing them.
	Load bool
}

// Screen reports whether the pass targets the presented surface.
func (d PassDescriptor) Screen() bool {
	return d.Color == nil
}

// DrawCommand is one draw inside a render pass.
type DrawCommand struct {
	// Pipeline is the registered render pipeline key.
	Pipeline string
	// BindGroups are set at group indices 0..n-1 in order.
	BindGroups []bind_group_provider.BindGroupProvider
	// VertexBuffers are bound to slots 0..n-1 in order.
	VertexBuffers []*wgpu.Buffer
	// IndexBuffer holds uint32 indices; nil issues a non-indexed draw.
	IndexBuffer *wgpu.Buffer
	// Count is the index count for indexed draws, the vertex count otherwise.
	Count uint32
	// InstanceCount defaults to 1 when zero.
	InstanceCount uint32
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
