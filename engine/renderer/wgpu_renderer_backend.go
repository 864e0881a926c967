package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/target"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	targetColorFormat = wgpu.TextureFormatRGBA8Unorm
	targetDepthFormat = wgpu.TextureFormatDepth32Float
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	logger *slog.Logger

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state shared by every render pass of a frame
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder

	// textures, views and samplers created for bindings, released with the backend
	textures []*wgpu.Texture
	views    []*wgpu.TextureView
	samplers []*wgpu.Sampler
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface
	SetDevice(device *wgpu.Device)
	SetQueue(queue *wgpu.Queue)
	SetInstance(instance *wgpu.Instance)
	SetAdapter(adapter *wgpu.Adapter)
	SetSurface(surface *wgpu.Surface)

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SurfaceFormat returns the format chosen for the surface, Undefined before ConfigureSurface.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface texture format
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame after all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue. Must be called after BeginComputeFrame and all
	// DispatchCompute calls for the frame, and before EndFrame so storage writes land before
	// the render passes read them.
	EndComputeFrame()

	// DispatchCompute encodes a compute pass within the current batched compute frame.
	//
	// Parameters:
	//   - p: the cached Pipeline containing the compute pipeline to use for dispatching
	//   - groups: providers whose bind groups are set at group indices 0..n-1
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	//
	// Returns:
	//   - error: an error if no compute frame is open or a bind group is not initialized
	DispatchCompute(p pipeline.Pipeline, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// RegisterRenderPipeline creates the shader modules, bind group layouts, pipeline layout and
	// render pipeline for p. The color target uses the pipeline's color format, or the surface
	// format when it has none. A pipeline without a depth format gets no depth stencil state.
	//
	// Parameters:
	//   - p: the pipeline object containing the shaders and configuration for the pipeline
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, bind group layouts, pipeline layout
	// and compute pipeline for p.
	//
	// Parameters:
	//   - p: the pipeline object containing the compute shader
	//
	// Returns:
	//   - error: an error if the pipeline could not be created, otherwise nil
	RegisterComputePipeline(p pipeline.Pipeline) error

	// CreateBuffer creates a GPU buffer and uploads data into it.
	//
	// Parameters:
	//   - label: debug label
	//   - usage: buffer usage flags
	//   - data: initial contents; its length is the buffer size
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// ReleaseBuffer releases a buffer created with CreateBuffer.
	//
	// Parameters:
	//   - buf: the buffer to release
	ReleaseBuffer(buf *wgpu.Buffer)

	// AllocateTarget creates an RGBA8Unorm color texture and a Depth32Float depth texture of the
	// same size. Both can be rendered to and sampled.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: the size in pixels
	//
	// Returns:
	//   - target.Textures: both textures and views
	//   - error: an error if either texture could not be created; nothing is leaked
	AllocateTarget(label string, width, height int) (target.Textures, error)

	// FreeTarget releases a texture pair from AllocateTarget.
	//
	// Parameters:
	//   - t: the textures to release
	FreeTarget(t target.Textures)

	// InitBindGroup creates GPU buffers for unset buffer bindings and the bind group, and stores
	// them on the given BindGroupProvider. Buffers created here are owned by the provider.
	// Texture and sampler bindings must already be set on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing the resources and storage for the bind group
	//   - descriptor: the BindGroupLayoutDescriptor describing the layout of the bind group
	//   - bufferUsageOverrides: a map of binding indices to extra buffer usage flags (nil safe)
	//   - bufferSizeOverrides: a map of binding indices to buffer sizes (nil safe)
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized, otherwise nil
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// CreateTextureView uploads staging data into a new 2D texture and returns its view.
	// Linear staging data uses RGBA8Unorm, color data RGBA8UnormSrgb.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the pixels and size
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view
	//   - error: an error if the data is invalid or the texture could not be created
	CreateTextureView(label string, data common.TextureStagingData) (*wgpu.TextureView, error)

	// CreateCubeTextureView uploads six faces into a cube texture and returns a cube view.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the six faces in +X, -X, +Y, -Y, +Z, -Z order
	//
	// Returns:
	//   - *wgpu.TextureView: the cube view
	//   - error: an error if a face is invalid or the texture could not be created
	CreateCubeTextureView(label string, data common.CubemapStagingData) (*wgpu.TextureView, error)

	// CreateSampler creates a sampler; zero fields fall back to linear repeat sampling.
	//
	// Parameters:
	//   - label: debug label
	//   - data: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	//   - error: an error if the sampler could not be created
	CreateSampler(label string, data common.SamplerStagingData) (*wgpu.Sampler, error)

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the surface texture and creates the frame's render command encoder.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// BeginPass begins a render pass on the frame encoder.
	//
	// Parameters:
	//   - desc: the attachments and clear color
	//
	// Returns:
	//   - error: an error if no frame is open or a pass is already open
	BeginPass(desc PassDescriptor) error

	// Draw encodes one draw into the open pass.
	//
	// Parameters:
	//   - p: the render pipeline
	//   - cmd: the bind groups, buffers and counts
	//
	// Returns:
	//   - error: an error if no pass is open or a bind group is not initialized
	Draw(p pipeline.Pipeline, cmd DrawCommand) error

	// EndPass ends the open render pass.
	EndPass()

	// EndFrame finishes the frame encoder and submits it.
	EndFrame()

	// Present presents the surface texture and releases it.
	Present()

	// Release releases every texture and sampler created for bindings.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		logger:      slog.Default(),
	}
	w.SetSurface(w.instance.CreateSurface(surfaceDescriptor))

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to request adapter: %v", err))
	}
	w.SetAdapter(a)

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("renderer: failed to request device: %v", err))
	}
	w.SetDevice(d)
	w.SetQueue(d.GetQueue())

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFormat == nil {
		return wgpu.TextureFormatUndefined
	}
	return *b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.dropFrame("compute", err)
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	groups []bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("renderer: dispatch outside of a compute frame")
	}
	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("renderer: %s is not a registered compute pipeline", p.PipelineKey())
	}
	for i, g := range groups {
		if g.BindGroup() == nil {
			return fmt.Errorf("renderer: %s group %d (%s) has no bind group", p.PipelineKey(), i, g.Label())
		}
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g.BindGroup(), nil)
	}
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) createBindGroupLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	descriptors := p.BindGroupLayoutDescriptors()
	layouts := make([]*wgpu.BindGroupLayout, pipeline.GroupCount(descriptors))
	for g := range layouts {
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s Group %d", p.PipelineKey(), g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) createShaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.createShaderModule(vertexShader)
	if err != nil {
		return err
	}
	fs, err := b.createShaderModule(fragmentShader)
	if err != nil {
		return err
	}

	bindGroupLayouts, err := b.createBindGroupLayouts(p)
	if err != nil {
		return err
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	colorFormat := p.ColorFormat()
	if colorFormat == wgpu.TextureFormatUndefined {
		colorFormat = b.SurfaceFormat()
	}
	colorTarget := wgpu.ColorTargetState{
		Format:    colorFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		colorTarget.Blend = p.BlendState()
	}

	var depthStencil *wgpu.DepthStencilState
	if p.DepthFormat() != wgpu.TextureFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:            p.DepthFormat(),
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{colorTarget},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return err
	}

	p.SetBindGroupLayouts(bindGroupLayouts)
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}

	computeShader := p.Shader(shader.ShaderTypeCompute)
	s, err := b.createShaderModule(computeShader)
	if err != nil {
		return err
	}

	bindGroupLayouts, err := b.createBindGroupLayouts(p)
	if err != nil {
		return err
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetBindGroupLayouts(bindGroupLayouts)
	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuRendererBackendImpl) ReleaseBuffer(buf *wgpu.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

func (b *wgpuRendererBackendImpl) createTargetTexture(label string, width, height int, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) AllocateTarget(label string, width, height int) (target.Textures, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, colorView, err := b.createTargetTexture(label+" Color", width, height, targetColorFormat)
	if err != nil {
		return target.Textures{}, err
	}
	depth, depthView, err := b.createTargetTexture(label+" Depth", width, height, targetDepthFormat)
	if err != nil {
		colorView.Release()
		color.Release()
		return target.Textures{}, err
	}
	return target.Textures{Color: color, ColorView: colorView, Depth: depth, DepthView: depthView}, nil
}

func (b *wgpuRendererBackendImpl) FreeTarget(t target.Textures) {
	if t.ColorView != nil {
		t.ColorView.Release()
	}
	if t.Color != nil {
		t.Color.Release()
	}
	if t.DepthView != nil {
		t.DepthView.Release()
	}
	if t.Depth != nil {
		t.Depth.Release()
	}
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		if isTexture {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		} else if isSampler {
			samp := provider.Sampler(binding)
			if samp == nil {
				return fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		} else {
			buf := provider.Buffer(binding)
			if buf == nil {
				var usage wgpu.BufferUsage
				switch entry.Buffer.Type {
				case wgpu.BufferBindingTypeUniform:
					usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
				case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
					usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
				}
				if overrideUsage, ok := bufferUsageOverrides[binding]; ok {
					usage |= overrideUsage
				}
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				if bufSize == 0 {
					return fmt.Errorf("%s: buffer binding %d has no size", provider.Label(), binding)
				}

				var bufErr error
				buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
					Size:  bufSize,
					Usage: usage,
				})
				if bufErr != nil {
					return bufErr
				}
				provider.OwnBuffer(binding, buf)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.ResetBindGroup()
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) writeLayer(tex *wgpu.Texture, layer uint32, data common.TextureStagingData) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) CreateTextureView(label string, data common.TextureStagingData) (*wgpu.TextureView, error) {
	if !data.Valid() {
		return nil, fmt.Errorf("renderer: texture %s has invalid staging data (%dx%d, %d bytes)", label, data.Width, data.Height, len(data.Pixels))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	format := wgpu.TextureFormatRGBA8UnormSrgb
	if data.Linear {
		format = wgpu.TextureFormatRGBA8Unorm
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	b.writeLayer(tex, 0, data)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	b.textures = append(b.textures, tex)
	b.views = append(b.views, view)
	return view, nil
}

func (b *wgpuRendererBackendImpl) CreateCubeTextureView(label string, data common.CubemapStagingData) (*wgpu.TextureView, error) {
	size := data.Size()
	for i, face := range data.Faces {
		if !face.Valid() || face.Width != size || face.Height != size {
			return nil, fmt.Errorf("renderer: cubemap %s face %d is not %dx%d", label, i, size, size)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              size,
			Height:             size,
			DepthOrArrayLayers: 6,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	for i, face := range data.Faces {
		b.writeLayer(tex, uint32(i), face)
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " Cube View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, err
	}
	b.textures = append(b.textures, tex)
	b.views = append(b.views, view)
	return view, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, data common.SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(data.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	b.samplers = append(b.samplers, samp)
	return samp, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A surface texture still held from the previous frame would make wgpu-native
	// fail with "Surface image is already acquired".
	if b.frameSurface != nil {
		return errors.New("renderer: previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(desc PassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return fmt.Errorf("renderer: pass %q begun outside of a frame", desc.Label)
	}
	if b.framePass != nil {
		return fmt.Errorf("renderer: pass %q begun while another pass is open", desc.Label)
	}

	color := desc.Color
	if desc.Screen() {
		color = b.frameView
	}
	loadOp := wgpu.LoadOpClear
	if desc.Load {
		loadOp = wgpu.LoadOpLoad
	}

	rp := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       color,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: desc.ClearColor,
			},
		},
	}
	if desc.Depth != nil {
		// Depth is stored because later passes sample it.
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            desc.Depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}

	b.framePass = b.frameEncoder.BeginRenderPass(rp)
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(p pipeline.Pipeline, cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return fmt.Errorf("renderer: draw with %s outside of a pass", cmd.Pipeline)
	}
	renderPipeline, ok := p.Pipeline().(*wgpu.RenderPipeline)
	if !ok || renderPipeline == nil {
		return fmt.Errorf("renderer: %s is not a registered render pipeline", cmd.Pipeline)
	}
	for i, bg := range cmd.BindGroups {
		if bg.BindGroup() == nil {
			return fmt.Errorf("renderer: %s group %d (%s) has no bind group", cmd.Pipeline, i, bg.Label())
		}
	}

	b.framePass.SetPipeline(renderPipeline)
	for i, bg := range cmd.BindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	for slot, buf := range cmd.VertexBuffers {
		b.framePass.SetVertexBuffer(uint32(slot), buf, 0, wgpu.WholeSize)
	}

	instances := common.Coalesce(cmd.InstanceCount, 1)
	if cmd.IndexBuffer != nil {
		b.framePass.SetIndexBuffer(cmd.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		b.framePass.DrawIndexed(cmd.Count, instances, 0, 0, 0)
	} else {
		b.framePass.Draw(cmd.Count, instances, 0, 0)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	if b.framePass != nil {
		b.framePass.End()
		b.framePass.Release()
		b.framePass = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.dropFrame("render", err)
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
}

// dropFrame reports a command buffer that could not be finished and is discarded.
func (b *wgpuRendererBackendImpl) dropFrame(stage string, err error) {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("frame dropped", "stage", stage, "error", err)
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.samplers {
		s.Release()
	}
	for _, v := range b.views {
		v.Release()
	}
	for _, t := range b.textures {
		t.Release()
	}
	b.samplers, b.views, b.textures = nil, nil, nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

func (b *wgpuRendererBackendImpl) SetDevice(device *wgpu.Device) {
	b.device = device
}

func (b *wgpuRendererBackendImpl) SetQueue(queue *wgpu.Queue) {
	b.queue = queue
}

func (b *wgpuRendererBackendImpl) SetInstance(instance *wgpu.Instance) {
	b.instance = instance
}

func (b *wgpuRendererBackendImpl) SetAdapter(adapter *wgpu.Adapter) {
	b.adapter = adapter
}

func (b *wgpuRendererBackendImpl) SetSurface(surface *wgpu.Surface) {
	b.surface = surface
}
