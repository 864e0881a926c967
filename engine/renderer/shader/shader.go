package shader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a Shader is parsed for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage, paired with a vertex shader.
	ShaderTypeFragment
)

// ErrNoEntryPoint is returned when the source has no entry point for the requested stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

type shader struct {
	key        string
	source     string
	shaderType ShaderType

	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingNames               map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string

	pp PreProcessor
}

// Shader is a pre-processed WGSL program reflected for one stage. It exposes everything the
// renderer needs to create the GPU module and pipeline layout: the entry point, the bind group
// layout descriptors, the vertex buffer layouts and the compute workgroup size.
//
// The same source file may back several Shaders, one per stage it declares.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for module labels.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL source after include expansion.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage this shader was parsed for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the name of the entry function for the stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// BindGroupLayoutDescriptor returns the reflected layout of one bind group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, empty if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every reflected bind group layout keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindingName returns the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if nothing is declared there
	BindingName(group, binding int) string

	// BindingByName finds the binding index of a named variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, or -1
	//   - bool: true if the variable was found
	BindingByName(group int, name string) (int, bool)

	// VertexLayouts returns the buffer layouts consumed by the vertex entry point, one per
	// vertex buffer slot, ordered by shader location. Nil for non-vertex shaders.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the vertex buffer layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// WorkgroupSize returns the compute workgroup dimensions, [0, 0, 0] for render stages.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source for one pipeline stage.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage to reflect
//   - source: the raw WGSL source, which may contain #include directives
//   - options: functional options (pre-processor)
//
// Returns:
//   - Shader: the parsed shader
//   - error: an include could not be resolved, or the stage has no entry point
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(nil),
	}
	for _, opt := range options {
		opt(s)
	}

	expanded, err := s.pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", key, err)
	}
	s.source = expanded

	cleaned := stripComments(expanded)
	s.entryPoint, _ = findEntryPoint(cleaned, shaderType)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s has no entry point for stage %d", ErrNoEntryPoint, key, shaderType)
	}

	switch shaderType {
	case ShaderTypeVertex:
		s.vertexLayouts = vertexLayouts(cleaned)
	case ShaderTypeCompute:
		s.workGroupSize = workgroupSize(cleaned)
	}
	s.bindGroupLayoutDescriptors, s.bindingNames = bindGroupLayouts(cleaned, stageVisibility(shaderType))
	return s, nil
}

// MustShader is NewShader for embedded sources, panicking on failure.
func MustShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	s, err := NewShader(key, shaderType, source, options...)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to build %s: %v", key, err))
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindingName(group, binding int) string {
	return s.bindingNames[group][binding]
}

func (s *shader) BindingByName(group int, name string) (int, bool) {
	bindings := make([]int, 0, len(s.bindingNames[group]))
	for b := range s.bindingNames[group] {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	for _, b := range bindings {
		if s.bindingNames[group][b] == name {
			return b, true
		}
	}
	return -1, false
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}
