package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

type bindGroupProvider struct {
	label string

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout

	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// owned marks buffers created for this provider; everything else is borrowed
	// (mesh buffers, render target views, shared samplers) and outlives it.
	owned map[int]bool
}

// BindGroupProvider collects the resources of one bind group and holds the created group.
//
// Resources are either borrowed or owned. Borrowed resources (set with SetBuffer,
// SetTextureView and SetSampler) belong to someone else: a mesh, a render target, the texture
// loader. Owned buffers are created by the renderer for this provider (typically uniform blocks)
// and are released with it.
//
// Usage pattern:
//  1. Create a provider per bind group instance
//  2. Set the borrowed resources the layout needs
//  3. Renderer.InitBindGroup creates any missing buffers and the bind group
//  4. Renderer.WriteBuffers updates owned uniform buffers each frame
//  5. When a borrowed resource is replaced (e.g. a resized target), set it and init again;
//     InitBindGroup releases the previous group
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, nil until initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the layout the bind group is created against, nil if unset.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns every buffer keyed by binding.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Owns reports whether the buffer at binding was created for this provider.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if the provider releases the buffer
	Owns(binding int) bool

	// Missing lists the bindings of a layout that have no resource set, in binding order.
	// A buffer binding counts as present only if a buffer is set; the renderer may still
	// create it, so callers that borrow every buffer use this to validate before dispatch.
	//
	// Parameters:
	//   - descriptor: the layout to check against
	//
	// Returns:
	//   - []uint32: the unset binding numbers, empty when complete
	Missing(descriptor wgpu.BindGroupLayoutDescriptor) []uint32

	// SetBindGroup stores the created bind group.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the layout to create the bind group against.
	//
	// Parameters:
	//   - bgl: the bind group layout, usually taken from the pipeline
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer borrows a buffer for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// OwnBuffer stores a buffer created for this provider; it is released with the provider.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	OwnBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView borrows a texture view for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetTextureViews borrows several texture views at once, merged into the existing set.
	//
	// Parameters:
	//   - views: texture views keyed by binding index
	SetTextureViews(views map[int]*wgpu.TextureView)

	// SetSampler borrows a sampler for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler
	SetSampler(binding int, s *wgpu.Sampler)

	// ResetBindGroup releases the bind group so it can be recreated with new resources.
	// Resources and the layout are kept.
	ResetBindGroup()

	// Release releases the bind group and owned buffers, and forgets borrowed resources.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: debug label used for created GPU objects
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
		owned:        make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Owns(binding int) bool {
	return p.owned[binding]
}

func (p *bindGroupProvider) Missing(descriptor wgpu.BindGroupLayoutDescriptor) []uint32 {
	var missing []uint32
	for _, e := range descriptor.Entries {
		b := int(e.Binding)
		var present bool
		switch {
		case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			present = p.textureViews[b] != nil
		case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			present = p.samplers[b] != nil
		default:
			present = p.buffers[b] != nil
		}
		if !present {
			missing = append(missing, e.Binding)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if p.owned[binding] && p.buffers[binding] != nil && p.buffers[binding] != buf {
		p.buffers[binding].Release()
	}
	p.buffers[binding] = buf
	delete(p.owned, binding)
}

func (p *bindGroupProvider) OwnBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
	p.owned[binding] = true
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetTextureViews(views map[int]*wgpu.TextureView) {
	for b, tv := range views {
		p.textureViews[b] = tv
	}
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) ResetBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.ResetBindGroup()
	for b, buf := range p.buffers {
		if p.owned[b] && buf != nil {
			buf.Release()
		}
	}
	p.buffers = make(map[int]*wgpu.Buffer)
	p.textureViews = make(map[int]*wgpu.TextureView)
	p.samplers = make(map[int]*wgpu.Sampler)
	p.owned = make(map[int]bool)
}
