package simulation

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatch struct {
	key    string
	groups []bind_group_provider.BindGroupProvider
	count  [3]uint32
}

type fakeCompute struct {
	registered []string
	inits      int
	writes     []bind_group_provider.BufferWrite
	dispatches []dispatch
	open       bool
	submitted  int
}

func (f *fakeCompute) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		f.registered = append(f.registered, p.PipelineKey())
	}
	return nil
}

func (f *fakeCompute) InitBindGroup(p bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, _ map[int]uint64) error {
	f.inits++
	for _, e := range desc.Entries {
		if e.Buffer.Type != wgpu.BufferBindingTypeUndefined && p.Buffer(int(e.Binding)) == nil {
			p.OwnBuffer(int(e.Binding), new(wgpu.Buffer))
		}
	}
	p.SetBindGroup(new(wgpu.BindGroup))
	return nil
}

func (f *fakeCompute) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.writes = append(f.writes, writes...)
}

func (f *fakeCompute) BeginComputeFrame() error {
	if f.open {
		return errors.New("compute frame already open")
	}
	f.open = true
	return nil
}

func (f *fakeCompute) DispatchCompute(key string, groups []bind_group_provider.BindGroupProvider, count [3]uint32) error {
	if !f.open {
		return errors.New("no compute frame")
	}
	f.dispatches = append(f.dispatches, dispatch{key: key, groups: groups, count: count})
	return nil
}

func (f *fakeCompute) EndComputeFrame() {
	f.open = false
	f.submitted++
}

type bufferAlloc struct{}

func (bufferAlloc) CreateBuffer(string, wgpu.BufferUsage, []byte) (*wgpu.Buffer, error) {
	return new(wgpu.Buffer), nil
}

func (bufferAlloc) ReleaseBuffer(*wgpu.Buffer) {}

func meshes(t *testing.T, waterRes, terrainRes int, upload bool) (surface_mesh.SurfaceMesh, surface_mesh.SurfaceMesh) {
	t.Helper()
	water, err := surface_mesh.NewSurfaceMesh("water", waterRes)
	require.NoError(t, err)
	ground, err := surface_mesh.NewSurfaceMesh("ground", terrainRes, surface_mesh.WithHeightSource(flatHeight(-0.1)))
	require.NoError(t, err)
	if upload {
		require.NoError(t, water.Upload(bufferAlloc{}))
		require.NoError(t, ground.Upload(bufferAlloc{}))
	}
	return water, ground
}

func TestSimulatorRegistersPipeline(t *testing.T) {
	backend := &fakeCompute{}
	NewSimulator(backend)
	assert.Equal(t, []string{PipelineKey}, backend.registered)
}

func TestSimulateDispatchesOneInvocationPerVertex(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend, WithNoiseTexture(new(wgpu.TextureView)))
	water, ground := meshes(t, 4, 4, true)

	require.NoError(t, sim.Simulate(water, ground, 1.0/60, 0.5))
	require.Len(t, backend.dispatches, 1)
	d := backend.dispatches[0]
	assert.Equal(t, PipelineKey, d.key)
	assert.Equal(t, [3]uint32{5, 5, 1}, d.count)
	require.Len(t, d.groups, 2)

	storage := d.groups[1]
	assert.Same(t, water.CurrentPositions().Buffer, storage.Buffer(SlotCurrent))
	assert.Same(t, water.NextPositions().Buffer, storage.Buffer(SlotNext))
	assert.Same(t, water.NormalBuffer(), storage.Buffer(SlotNormals))
	assert.Same(t, ground.CurrentPositions().Buffer, storage.Buffer(SlotTerrain))
	assert.False(t, storage.Owns(SlotCurrent))

	require.Len(t, backend.writes, 1)
	assert.Len(t, backend.writes[0].Data, 48)
	assert.Equal(t, 1, backend.submitted)
	assert.False(t, backend.open)
	assert.Equal(t, 5, sim.Dimension())
}

func TestSimulateAlternatesWithSwap(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend, WithNoiseTexture(new(wgpu.TextureView)))
	water, ground := meshes(t, 4, 4, true)

	for frame := 0; frame < 4; frame++ {
		require.NoError(t, sim.Simulate(water, ground, 1.0/60, float32(frame)/60))
		water.Swap()
	}
	require.Len(t, backend.dispatches, 4)

	first, second := backend.dispatches[0].groups[1], backend.dispatches[1].groups[1]
	assert.NotSame(t, first, second)
	assert.Same(t, first, backend.dispatches[2].groups[1])
	assert.Same(t, second, backend.dispatches[3].groups[1])

	// each frame reads what the previous frame wrote
	assert.Same(t, first.Buffer(SlotNext), second.Buffer(SlotCurrent))
	assert.Same(t, second.Buffer(SlotNext), first.Buffer(SlotCurrent))

	// uniforms plus one storage group per slot, built once
	assert.Equal(t, 3, backend.inits)
}

func TestSimulateClampsDeltaTime(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend, WithNoiseTexture(new(wgpu.TextureView)))
	water, ground := meshes(t, 2, 2, true)

	require.NoError(t, sim.Simulate(water, ground, 5, 1))
	assert.Equal(t, DefaultMaxDeltaTime, sim.LastUniforms().DeltaTime)

	p := sim.Params()
	p.MaxDeltaTime = 0.05
	sim.SetParams(p)
	require.NoError(t, sim.Simulate(water, ground, 5, 1))
	assert.Equal(t, float32(0.05), sim.LastUniforms().DeltaTime)
}

func TestSimulateRejectsResolutionMismatch(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend, WithNoiseTexture(new(wgpu.TextureView)))
	water, ground := meshes(t, 4, 3, true)
	assert.ErrorIs(t, sim.Simulate(water, ground, 0.01, 0), ErrResolutionMismatch)

	sim = NewSimulator(backend, WithResolution(8), WithNoiseTexture(new(wgpu.TextureView)))
	water, ground = meshes(t, 4, 4, true)
	assert.ErrorIs(t, sim.Simulate(water, ground, 0.01, 0), ErrResolutionMismatch)

	assert.Empty(t, backend.dispatches)
}

func TestSimulateRejectsUnboundBuffers(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend, WithNoiseTexture(new(wgpu.TextureView)))
	water, ground := meshes(t, 4, 4, false)

	err := sim.Simulate(water, ground, 0.01, 0)
	assert.ErrorIs(t, err, ErrUnboundBuffer)
	assert.Contains(t, err.Error(), "[0 1 2 3]")

	require.NoError(t, water.Upload(bufferAlloc{}))
	err = sim.Simulate(water, ground, 0.01, 0)
	assert.ErrorIs(t, err, ErrUnboundBuffer)
	assert.Contains(t, err.Error(), "[3]")

	assert.Empty(t, backend.dispatches)
	assert.Zero(t, backend.inits)
}

func TestSimulateRequiresNoise(t *testing.T) {
	backend := &fakeCompute{}
	sim := NewSimulator(backend)
	water, ground := meshes(t, 2, 2, true)

	assert.ErrorIs(t, sim.Simulate(water, ground, 0.01, 0), ErrUnboundTexture)
	assert.Empty(t, backend.dispatches)

	sim.SetNoiseTexture(new(wgpu.TextureView))
	assert.NoError(t, sim.Simulate(water, ground, 0.01, 0))
	assert.Len(t, backend.dispatches, 1)
}
