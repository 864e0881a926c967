package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslField is one member of a WGSL struct, or one parameter of an entry point.
type wgslField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

// wgslStruct is a struct declaration found in the source.
type wgslStruct struct {
	name   string
	fields []wgslField
}

var (
	structRe   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRe = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)
	builtinRe  = regexp.MustCompile(`@builtin\(\s*\w+\s*\)`)
	bindingRe  = regexp.MustCompile(`@group\(\s*(\d+)\s*\)\s*@binding\(\s*(\d+)\s*\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	workSizeRe = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?(?:,\s*(\d+)\s*)?\)`)

	// memberRe skips any leading attributes and captures name and type.
	memberRe = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	entryRes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(([^)]*(?:\([^)]*\)[^)]*)*)\)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)\s*\(([^)]*(?:\([^)]*\)[^)]*)*)\)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)\s*\(([^)]*(?:\([^)]*\)[^)]*)*)\)`),
	}
)

// stageVisibility maps a shader type to the stage flag used on its layout entries.
func stageVisibility(t ShaderType) wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	}
	return wgpu.ShaderStageNone
}

// findEntryPoint returns the name and raw parameter list of the first entry point of the given stage.
func findEntryPoint(source string, t ShaderType) (name string, params string) {
	re, ok := entryRes[t]
	if !ok {
		return "", ""
	}
	m := re.FindStringSubmatch(source)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func parseStructs(source string) []wgslStruct {
	matches := structRe.FindAllStringSubmatch(source, -1)
	out := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		out = append(out, wgslStruct{name: m[1], fields: parseMembers(m[2])})
	}
	return out
}

// parseMembers splits a struct body or parameter list into fields.
func parseMembers(body string) []wgslField {
	parts := splitTopLevel(body)
	fields := make([]wgslField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := memberRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		f := wgslField{
			name:     m[1],
			typeName: strings.TrimSpace(m[2]),
			location: -1,
			builtin:  builtinRe.MatchString(part),
		}
		if loc := locationRe.FindStringSubmatch(part); loc != nil {
			f.location, _ = strconv.Atoi(loc[1])
		}
		fields = append(fields, f)
	}
	return fields
}

// vertexLayouts builds one buffer layout per struct parameter of the vertex entry point,
// ordered by the lowest shader location in each struct. Parameters that are builtins or
// structs without locations (or with builtins) do not consume a buffer slot.
func vertexLayouts(source string) []wgpu.VertexBufferLayout {
	_, params := findEntryPoint(source, ShaderTypeVertex)
	if params == "" {
		return nil
	}

	byName := map[string]wgslStruct{}
	for _, s := range parseStructs(source) {
		byName[s.name] = s
	}

	type slot struct {
		first  uint32
		layout wgpu.VertexBufferLayout
	}
	var slots []slot
	for _, p := range parseMembers(params) {
		if p.builtin {
			continue
		}
		s, ok := byName[p.typeName]
		if !ok {
			continue
		}
		layout, first, ok := bufferLayout(s)
		if !ok {
			continue
		}
		slots = append(slots, slot{first: first, layout: layout})
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].first < slots[j].first })
	out := make([]wgpu.VertexBufferLayout, len(slots))
	for i, s := range slots {
		out[i] = s.layout
	}
	return out
}

// bufferLayout packs the attributes of a vertex input struct tightly in declaration order.
func bufferLayout(s wgslStruct) (wgpu.VertexBufferLayout, uint32, bool) {
	var (
		attrs  []wgpu.VertexAttribute
		offset uint64
		first  = ^uint32(0)
	)
	for _, f := range s.fields {
		if f.builtin || f.location < 0 {
			return wgpu.VertexBufferLayout{}, 0, false
		}
		vf, ok := vertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, 0, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         vf.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += vf.size
		if uint32(f.location) < first {
			first = uint32(f.location)
		}
	}
	if len(attrs) == 0 {
		return wgpu.VertexBufferLayout{}, 0, false
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, first, true
}

// bindGroupLayouts reflects every @group/@binding declaration into layout descriptors
// keyed by group, along with the variable name of each binding.
func bindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	sizes := structLayouts(parseStructs(source))

	entries := map[int][]wgpu.BindGroupLayoutEntry{}
	names := map[int]map[int]string{}
	for _, m := range bindingRe.FindAllStringSubmatch(source, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		space := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry := classifyBinding(uint32(binding), visibility, space, typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := typeLayout(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		entries[group] = append(entries[group], entry)

		if names[group] == nil {
			names[group] = map[int]string{}
		}
		names[group][binding] = m[4]
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, es := range entries {
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return out, names
}

// workgroupSize reads @workgroup_size; missing dimensions are 1.
func workgroupSize(source string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	m := workSizeRe.FindStringSubmatch(source)
	if m == nil {
		return size
	}
	for i := 0; i < 3; i++ {
		if m[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(m[i+1], 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// splitTopLevel splits on commas that are not nested in <>, () or [].
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case source[i] == '/' && source[i+1] == '/' && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
