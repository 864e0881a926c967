package scene

import (
	"github.com/Carmen-Shannon/oxy-water/assets"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Render pipeline keys.
const (
	PipelineWaterMap   = "water_map"
	PipelineTopView    = "top_view"
	PipelineSky        = "sky"
	PipelineGround     = "ground"
	PipelineGroundWire = "ground_wire"
	PipelineWater      = "water"
	PipelineWaterWire  = "water_wire"
	PipelineCombine    = "combine"
	PipelineDebugView  = "debug_view"
	PipelineNormals    = "normals"
)

// newRenderPipeline builds a render pipeline whose vertex and fragment stages come from the
// same embedded program.
func newRenderPipeline(key, program string, opts ...pipeline.PipelineBuilderOption) pipeline.Pipeline {
	src := assets.MustShader(program)
	snippets := assets.Snippets()
	vs := shader.MustShader(key+"_vs", shader.ShaderTypeVertex, src,
		shader.WithPreProcessor(shader.NewPreProcessor(snippets)))
	fs := shader.MustShader(key+"_fs", shader.ShaderTypeFragment, src,
		shader.WithPreProcessor(shader.NewPreProcessor(snippets)))

	opts = append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	}, opts...)
	return pipeline.NewPipeline(key, pipeline.PipelineTypeRender, opts...)
}

// buildPipelines returns every render pipeline the scene draws with, keyed by pipeline key.
// Off-screen pipelines write the RGBA8Unorm/Depth32Float targets; screen pipelines leave the
// color format to the surface and carry no depth state.
func buildPipelines() map[string]pipeline.Pipeline {
	offscreen := pipeline.WithColorFormat(wgpu.TextureFormatRGBA8Unorm)
	lines := pipeline.WithTopology(wgpu.PrimitiveTopologyLineList)

	list := []pipeline.Pipeline{
		newRenderPipeline(PipelineWaterMap, assets.ShaderWaterMap, offscreen),
		newRenderPipeline(PipelineTopView, assets.ShaderTopView, offscreen),
		newRenderPipeline(PipelineSky, assets.ShaderSky, offscreen,
			pipeline.WithDepthTestEnabled(false), pipeline.WithDepthWriteEnabled(false)),
		newRenderPipeline(PipelineGround, assets.ShaderGround, offscreen),
		newRenderPipeline(PipelineGroundWire, assets.ShaderGround, offscreen, lines),
		newRenderPipeline(PipelineWater, assets.ShaderWater, offscreen, pipeline.WithCullMode(wgpu.CullModeNone)),
		newRenderPipeline(PipelineWaterWire, assets.ShaderWater, offscreen, lines),
		newRenderPipeline(PipelineCombine, assets.ShaderCombine, pipeline.WithoutDepth()),
		newRenderPipeline(PipelineDebugView, assets.ShaderDebugView, pipeline.WithoutDepth()),
		newRenderPipeline(PipelineNormals, assets.ShaderNormals, pipeline.WithoutDepth(), lines),
	}

	out := make(map[string]pipeline.Pipeline, len(list))
	for _, p := range list {
		out[p.PipelineKey()] = p
	}
	return out
}

// pipelineOrder is the registration order, so pipeline creation errors are reproducible.
var pipelineOrder = []string{
	PipelineWaterMap, PipelineTopView, PipelineSky, PipelineGround, PipelineGroundWire,
	PipelineWater, PipelineWaterWire, PipelineCombine, PipelineDebugView, PipelineNormals,
}
