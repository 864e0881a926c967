package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-water/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// ErrMissingShader is returned by Validate when a stage required by the pipeline type is unset.
var ErrMissingShader = errors.New("pipeline: missing shader stage")

type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	vertexShader, fragmentShader, computeShader shader.Shader

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline
	// bindGroupLayouts are the GPU layouts created at registration, indexed by group.
	bindGroupLayouts []*wgpu.BindGroupLayout

	// Render state. Compute pipelines carry the defaults but never read them.

	colorFormat       wgpu.TextureFormat
	depthFormat       wgpu.TextureFormat
	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes a GPU pipeline before and after creation: its shaders, the fixed-function
// state used to create it, and the created GPU objects the renderer stores back onto it.
//
// A render pipeline writes one colour target and optionally one depth target. The colour format
// may be left undefined to mean "the surface format", resolved by the renderer at creation.
type Pipeline interface {
	// Type returns the type of the pipeline.
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader for a stage, nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for the stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Validate checks that every stage the pipeline type requires has a shader.
	//
	// Returns:
	//   - error: ErrMissingShader naming the missing stage, or nil
	Validate() error

	// BindGroupLayoutDescriptors returns, per group, the union of the layouts reflected from
	// every stage. Entries declared by more than one stage have their visibility ORed.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptor returns the merged layout of a single group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the merged descriptor, empty if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayout returns the GPU layout of a group created at registration, nil before.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the created layout or nil
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// Pipeline returns the created *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	//
	// Returns:
	//   - any: the underlying pipeline object
	Pipeline() any

	// ColorFormat returns the colour target format; undefined means the surface format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the colour target format
	ColorFormat() wgpu.TextureFormat

	// DepthFormat returns the depth target format; undefined means no depth attachment.
	//
	// Returns:
	//   - wgpu.TextureFormat: the depth target format
	DepthFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether fragments are tested against the depth target.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write the depth target.
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state used when blending is enabled.
	BlendState() *wgpu.BlendState

	// SetRenderPipeline stores the created render pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline
	SetComputePipeline(p *wgpu.ComputePipeline)

	// SetBindGroupLayouts stores the GPU layouts created at registration.
	//
	// Parameters:
	//   - layouts: the layouts indexed by group
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// Release frees the created GPU pipeline and layouts.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline description. Render pipelines default to triangle lists with
// no culling, depth testing and writing against Depth32Float, and the surface colour format.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		colorFormat:       wgpu.TextureFormatUndefined,
		depthFormat:       wgpu.TextureFormatDepth32Float,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return fmt.Errorf("%w: %s needs a compute shader", ErrMissingShader, p.pipelineKey)
		}
	case PipelineTypeRender:
		if p.vertexShader == nil || p.fragmentShader == nil {
			return fmt.Errorf("%w: %s needs vertex and fragment shaders", ErrMissingShader, p.pipelineKey)
		}
	}
	return nil
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	var stages []map[int]wgpu.BindGroupLayoutDescriptor
	for _, s := range []shader.Shader{p.computeShader, p.vertexShader, p.fragmentShader} {
		if s != nil {
			stages = append(stages, s.BindGroupLayoutDescriptors())
		}
	}
	return MergeBindGroupLayouts(stages...)
}

func (p *pipeline) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return p.BindGroupLayoutDescriptors()[group]
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}

// MergeBindGroupLayouts unions per-stage layouts group by group. Entries sharing a binding
// number have their visibility ORed; the result is sorted by binding.
//
// Parameters:
//   - stages: one descriptor map per shader stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(stages ...map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	byGroup := map[int]map[uint32]wgpu.BindGroupLayoutEntry{}
	for _, stage := range stages {
		for g, desc := range stage {
			if byGroup[g] == nil {
				byGroup[g] = map[uint32]wgpu.BindGroupLayoutEntry{}
			}
			for _, e := range desc.Entries {
				if existing, ok := byGroup[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					byGroup[g][e.Binding] = existing
					continue
				}
				byGroup[g][e.Binding] = e
			}
		}
	}

	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(byGroup))
	for g, entries := range byGroup {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return merged
}

// GroupCount returns one past the highest group index present in the descriptors.
func GroupCount(descs map[int]wgpu.BindGroupLayoutDescriptor) int {
	n := 0
	for g := range descs {
		n = max(n, g+1)
	}
	return n
}
