package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/target"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is what the renderer needs from a window: a platform surface descriptor
// and the framebuffer size to configure it with.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	FramebufferSize() (int, int)
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines keyed by name and forwards resource creation and
// pass encoding to its backend.
//
// A frame is encoded as:
//  1. BeginComputeFrame, DispatchCompute..., EndComputeFrame (submitted first)
//  2. BeginFrame, then BeginPass/Draw.../EndPass for each pass in dependency order
//  3. EndFrame, Present
//
// The compute submission precedes the render submission, so WebGPU orders the storage writes
// before any render pass reads them.
type Renderer interface {
	target.Allocator

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface for a new framebuffer size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the configured surface texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// CreateBuffer creates a GPU buffer initialized with data.
	//
	// Parameters:
	//   - label: debug label
	//   - usage: buffer usage flags; CopyDst is always added
	//   - data: initial contents; its length is the buffer size
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if buffer creation fails
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// ReleaseBuffer releases a buffer created with CreateBuffer.
	//
	// Parameters:
	//   - buf: the buffer to release
	ReleaseBuffer(buf *wgpu.Buffer)

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Textures and samplers must be set on the provider first.
	// Buffer usage and size can be overridden per binding. Calling it again rebuilds the bind
	// group, which is how bind groups follow resized targets.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// CreateTextureView uploads a 2D texture and returns its view. The renderer owns the texture.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view
	//   - error: an error if texture creation fails
	CreateTextureView(label string, stagingData common.TextureStagingData) (*wgpu.TextureView, error)

	// CreateCubeTextureView uploads a cubemap and returns a cube view. The renderer owns the texture.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: the six faces
	//
	// Returns:
	//   - *wgpu.TextureView: the cube texture view
	//   - error: an error if texture creation fails
	CreateCubeTextureView(label string, stagingData common.CubemapStagingData) (*wgpu.TextureView, error)

	// CreateSampler creates a sampler. The renderer owns it.
	//
	// Parameters:
	//   - label: debug label
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	//   - error: an error if sampler creation fails
	CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame after all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue.
	EndComputeFrame()

	// DispatchCompute looks up the cached compute Pipeline by key, then encodes a compute pass
	// within the current batched compute frame started by BeginComputeFrame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - groups: providers whose bind groups are set at group indices 0..n-1
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if the pipeline is not found or the dispatch could not be encoded
	DispatchCompute(pipelineKey string, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// BeginFrame acquires the surface texture and opens the frame's render encoder.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// BeginPass opens a render pass into an off-screen target or the surface.
	//
	// Parameters:
	//   - desc: the attachments and clear color
	//
	// Returns:
	//   - error: an error if the pass could not be opened
	BeginPass(desc PassDescriptor) error

	// Draw encodes a draw into the open pass.
	//
	// Parameters:
	//   - cmd: the pipeline key, bind groups, buffers and counts
	//
	// Returns:
	//   - error: an error if the pipeline is not found or the draw could not be encoded
	Draw(cmd DrawCommand) error

	// EndPass closes the open render pass.
	EndPass()

	// EndFrame ends the frame's encoder and submits the command buffer to the GPU.
	// Does not present the surface; call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the surface texture.
	Present()

	// Release releases every registered pipeline and every texture and sampler the renderer created.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the surface source, typically the application window
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window SurfaceSource, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Options run before the backend so forceFallbackAdapter is known when the adapter is requested.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.FramebufferSize())
	return r
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return fmt.Errorf("renderer: compute pipeline %s: %w", key, err)
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return fmt.Errorf("renderer: render pipeline %s: %w", key, err)
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, usage, data)
}

func (r *renderer) ReleaseBuffer(buf *wgpu.Buffer) {
	r.backend.ReleaseBuffer(buf)
}

func (r *renderer) AllocateTarget(label string, width, height int) (target.Textures, error) {
	return r.backend.AllocateTarget(label, width, height)
}

func (r *renderer) FreeTarget(t target.Textures) {
	r.backend.FreeTarget(t)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) CreateTextureView(label string, stagingData common.TextureStagingData) (*wgpu.TextureView, error) {
	return r.backend.CreateTextureView(label, stagingData)
}

func (r *renderer) CreateCubeTextureView(label string, stagingData common.CubemapStagingData) (*wgpu.TextureView, error) {
	return r.backend.CreateCubeTextureView(label, stagingData)
}

func (r *renderer) CreateSampler(label string, samplerStagingData common.SamplerStagingData) (*wgpu.Sampler, error) {
	return r.backend.CreateSampler(label, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() {
	r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("compute pipeline %q not found in cache", pipelineKey)
	}
	return r.backend.DispatchCompute(p, groups, workGroupCount)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) BeginPass(desc PassDescriptor) error {
	return r.backend.BeginPass(desc)
}

func (r *renderer) Draw(cmd DrawCommand) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[cmd.Pipeline]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", cmd.Pipeline)
	}
	return r.backend.Draw(p, cmd)
}

func (r *renderer) EndPass() {
	r.backend.EndPass()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for _, p := range r.pipelineCache {
		p.Release()
	}
	r.pipelineCache = make(map[string]pipeline.Pipeline)
	r.mu.Unlock()

	r.backend.Release()
}
