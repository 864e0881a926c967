package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

type vertexFormat struct {
	format wgpu.VertexFormat
	size   uint64
}

// vertexFormats covers the attribute types the mesh programs use.
var vertexFormats = map[string]vertexFormat{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
}

// hostLayout is the size and alignment of a WGSL type in host-shareable memory.
type hostLayout struct {
	size  uint64
	align uint64
}

// See https://www.w3.org/TR/WGSL/#alignment-and-size
var scalarLayouts = map[string]hostLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
	"vec2f":       {8, 8},
	"vec2<f32>":   {8, 8},
	"vec2u":       {8, 8},
	"vec2<u32>":   {8, 8},
	"vec2i":       {8, 8},
	"vec2<i32>":   {8, 8},
	"vec3f":       {12, 16},
	"vec3<f32>":   {12, 16},
	"vec3u":       {12, 16},
	"vec3<u32>":   {12, 16},
	"vec4f":       {16, 16},
	"vec4<f32>":   {16, 16},
	"vec4u":       {16, 16},
	"vec4<u32>":   {16, 16},
	"vec4i":       {16, 16},
	"vec4<i32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

func alignUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// typeLayout resolves a type against the scalar table and already-known structs.
// A runtime-sized array reports its element stride, the smallest useful binding.
func typeLayout(typeName string, known map[string]hostLayout) (hostLayout, bool) {
	if l, ok := scalarLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return hostLayout{}, false
	}
	inner = strings.TrimSuffix(inner, ">")
	elemName, countStr, fixed := strings.Cut(inner, ",")
	elem, ok := typeLayout(strings.TrimSpace(elemName), known)
	if !ok {
		return hostLayout{}, false
	}
	stride := alignUp(elem.align, elem.size)
	if !fixed {
		return hostLayout{stride, elem.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return hostLayout{}, false
	}
	return hostLayout{n * stride, elem.align}, true
}

// structLayout lays out fields at their aligned offsets and rounds the total to the
// struct alignment. Builtin members are not part of buffer memory.
func structLayout(s wgslStruct, known map[string]hostLayout) (hostLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range s.fields {
		if f.builtin {
			continue
		}
		l, ok := typeLayout(f.typeName, known)
		if !ok {
			return hostLayout{}, false
		}
		offset = alignUp(l.align, offset) + l.size
		align = max(align, l.align)
	}
	return hostLayout{alignUp(align, offset), align}, true
}

// structLayouts resolves every struct, repeating until structs that embed other structs settle.
func structLayouts(structs []wgslStruct) map[string]hostLayout {
	known := make(map[string]hostLayout, len(structs))
	pending := structs
	for len(pending) > 0 {
		var next []wgslStruct
		for _, s := range pending {
			if l, ok := structLayout(s, known); ok {
				known[s.name] = l
			} else {
				next = append(next, s)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return known
}

// classifyBinding turns one resource declaration into a layout entry.
func classifyBinding(binding uint32, visibility wgpu.ShaderStage, space, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case space == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case strings.HasPrefix(space, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(space, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		return entry
	}

	base, param, _ := strings.Cut(typeName, "<")
	param = strings.TrimSpace(strings.TrimSuffix(param, ">"))

	switch base {
	case "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case "texture_depth_2d":
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case "texture_2d", "texture_cube":
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		if base == "texture_cube" {
			entry.Texture.ViewDimension = wgpu.TextureViewDimensionCube
		}
		switch param {
		case "u32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		case "i32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return entry
}
