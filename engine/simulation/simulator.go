package simulation

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/assets"
	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineKey is the key the simulation compute pipeline is registered under.
const PipelineKey = "water_simulation"

// Storage binding slots of group 1.
const (
	SlotCurrent = iota
	SlotNext
	SlotNormals
	SlotTerrain
)

// ComputeBackend is the part of the renderer the simulation drives.
type ComputeBackend interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	BeginComputeFrame() error
	DispatchCompute(pipelineKey string, groups []bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error
	EndComputeFrame()
}

type simulator struct {
	mu *sync.Mutex

	backend   ComputeBackend
	pipeline  pipeline.Pipeline
	params    Params
	dimension int

	noise         *wgpu.TextureView
	uniforms      bind_group_provider.BindGroupProvider
	uniformsDirty bool

	// storage is indexed by the mesh's current slot index.
	storage [2]bind_group_provider.BindGroupProvider

	lastUniforms Uniforms
}

// Simulator runs the water update kernel on the GPU once per frame.
type Simulator interface {
	// Params returns the current wave model constants.
	Params() Params

	// SetParams replaces the wave model constants, taking effect on the next Simulate.
	//
	// Parameters:
	//   - p: the new constants
	SetParams(p Params)

	// SetNoiseTexture sets the noise texture bound at group 0 binding 1.
	//
	// Parameters:
	//   - view: the noise texture view
	SetNoiseTexture(view *wgpu.TextureView)

	// Dimension returns the configured vertices per side, 0 until set by an option or the first Simulate.
	Dimension() int

	// LastUniforms returns the uniform block written by the most recent Simulate.
	LastUniforms() Uniforms

	// Simulate validates the bindings, writes the uniforms and dispatches one step reading
	// mesh.CurrentPositions and writing mesh.NextPositions and the normal buffer. Nothing is
	// dispatched when validation fails. The caller swaps the mesh afterwards.
	//
	// Parameters:
	//   - mesh: the water mesh
	//   - terrain: the terrain mesh under it
	//   - dt: frame delta in seconds, clamped to [0, MaxDeltaTime]
	//   - elapsed: total time in seconds
	//
	// Returns:
	//   - error: ErrResolutionMismatch, ErrUnboundBuffer, ErrUnboundTexture or a backend error
	Simulate(mesh, terrain surface_mesh.SurfaceMesh, dt, elapsed float32) error

	// Release releases the uniform buffer and bind groups. Mesh buffers are borrowed and untouched.
	Release()
}

var _ Simulator = &simulator{}

// NewSimulator builds and registers the simulation pipeline.
// It panics if the embedded kernel cannot be parsed or the pipeline cannot be created.
//
// Parameters:
//   - backend: the renderer
//   - options: functional options
//
// Returns:
//   - Simulator: the new simulator
func NewSimulator(backend ComputeBackend, options ...SimulatorBuilderOption) Simulator {
	s := &simulator{
		mu:      &sync.Mutex{},
		backend: backend,
		params:  DefaultParams(),
	}
	for _, opt := range options {
		opt(s)
	}

	src := assets.MustShader(assets.ShaderSimulate)
	cs := shader.MustShader(PipelineKey, shader.ShaderTypeCompute, src,
		shader.WithPreProcessor(shader.NewPreProcessor(assets.Snippets())))
	s.pipeline = pipeline.NewPipeline(PipelineKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs))
	if err := backend.RegisterPipelines(s.pipeline); err != nil {
		panic(fmt.Sprintf("simulation: failed to register pipeline: %v", err))
	}

	s.uniforms = bind_group_provider.NewBindGroupProvider("Simulation Uniforms",
		bind_group_provider.WithBindGroupLayout(s.pipeline.BindGroupLayout(0)),
		bind_group_provider.WithTextureView(1, s.noise))
	for i := range s.storage {
		s.storage[i] = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("Simulation Storage %d", i),
			bind_group_provider.WithBindGroupLayout(s.pipeline.BindGroupLayout(1)))
	}
	return s
}

func (s *simulator) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *simulator) SetParams(p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

func (s *simulator) SetNoiseTexture(view *wgpu.TextureView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view == s.noise {
		return
	}
	s.noise = view
	s.uniforms.SetTextureView(1, view)
	s.uniformsDirty = true
}

func (s *simulator) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

func (s *simulator) LastUniforms() Uniforms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUniforms
}

func (s *simulator) Simulate(mesh, terrain surface_mesh.SurfaceMesh, dt, elapsed float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateResolution(mesh, terrain); err != nil {
		return err
	}

	cur := mesh.CurrentPositions()
	storage := s.storage[cur.Index]
	if err := s.bindStorage(storage, mesh, terrain); err != nil {
		return err
	}
	if err := s.bindUniforms(); err != nil {
		return err
	}

	u := NewUniforms(s.params, s.dimension, dt, elapsed)
	s.lastUniforms = u
	s.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		bind_group_provider.Write(s.uniforms, 0, common.StructToBytes(&u)),
	})

	if err := s.backend.BeginComputeFrame(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	err := s.backend.DispatchCompute(PipelineKey,
		[]bind_group_provider.BindGroupProvider{s.uniforms, storage}, WorkgroupCount(s.dimension))
	s.backend.EndComputeFrame()
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

func (s *simulator) validateResolution(mesh, terrain surface_mesh.SurfaceMesh) error {
	if s.dimension == 0 {
		s.dimension = mesh.Dimension()
	}
	if mesh.Dimension() != s.dimension {
		return fmt.Errorf("%w: mesh %s has dimension %d, simulation expects %d",
			ErrResolutionMismatch, mesh.Label(), mesh.Dimension(), s.dimension)
	}
	if terrain.VertexCount() != mesh.VertexCount() {
		return fmt.Errorf("%w: terrain %s has %d vertices, mesh %s has %d",
			ErrResolutionMismatch, terrain.Label(), terrain.VertexCount(), mesh.Label(), mesh.VertexCount())
	}
	return nil
}

// bindStorage points the provider at the mesh buffers and (re)creates its bind group when
// they changed. Missing buffers fail before anything is created.
func (s *simulator) bindStorage(p bind_group_provider.BindGroupProvider, mesh, terrain surface_mesh.SurfaceMesh) error {
	buffers := [4]*wgpu.Buffer{
		SlotCurrent: mesh.CurrentPositions().Buffer,
		SlotNext:    mesh.NextPositions().Buffer,
		SlotNormals: mesh.NormalBuffer(),
		SlotTerrain: terrain.CurrentPositions().Buffer,
	}

	changed := p.BindGroup() == nil
	for slot, buf := range buffers {
		if p.Buffer(slot) != buf {
			p.SetBuffer(slot, buf)
			changed = true
		}
	}

	desc := s.pipeline.BindGroupLayoutDescriptor(1)
	if missing := p.Missing(desc); len(missing) > 0 {
		return fmt.Errorf("%w: slots %v of %s", ErrUnboundBuffer, missing, p.Label())
	}
	if !changed {
		return nil
	}
	if err := s.backend.InitBindGroup(p, desc, nil, nil); err != nil {
		return fmt.Errorf("simulation: failed to bind storage: %w", err)
	}
	return nil
}

func (s *simulator) bindUniforms() error {
	if s.noise == nil {
		return ErrUnboundTexture
	}
	if s.uniforms.BindGroup() != nil && !s.uniformsDirty {
		return nil
	}
	if err := s.backend.InitBindGroup(s.uniforms, s.pipeline.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		return fmt.Errorf("simulation: failed to bind uniforms: %w", err)
	}
	s.uniformsDirty = false
	return nil
}

func (s *simulator) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uniforms.Release()
	for _, p := range s.storage {
		p.Release()
	}
}
