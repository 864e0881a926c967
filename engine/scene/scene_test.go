package scene

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-water/engine/renderer"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPass struct {
	desc  renderer.PassDescriptor
	draws []renderer.DrawCommand
}

type fakeBackend struct {
	registered []string
	allocated  int
	freed      int
	inits      map[string]int
	writes     []bind_group_provider.BufferWrite
	resized    [][2]int
	frames     int
	open       bool
	passes     []recordedPass
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{inits: map[string]int{}}
}

func (f *fakeBackend) AllocateTarget(string, int, int) (target.Textures, error) {
	f.allocated++
	return target.Textures{
		Color:     new(wgpu.Texture),
		ColorView: new(wgpu.TextureView),
		Depth:     new(wgpu.Texture),
		DepthView: new(wgpu.TextureView),
	}, nil
}

func (f *fakeBackend) FreeTarget(target.Textures) { f.freed++ }

func (f *fakeBackend) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		f.registered = append(f.registered, p.PipelineKey())
	}
	return nil
}

func (f *fakeBackend) InitBindGroup(p bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, _ map[int]uint64) error {
	f.inits[p.Label()]++
	for _, e := range desc.Entries {
		if e.Buffer.Type != wgpu.BufferBindingTypeUndefined && p.Buffer(int(e.Binding)) == nil {
			p.OwnBuffer(int(e.Binding), new(wgpu.Buffer))
		}
	}
	p.SetBindGroup(new(wgpu.BindGroup))
	return nil
}

func (f *fakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	f.writes = append(f.writes, writes...)
}

func (f *fakeBackend) Resize(w, h int) { f.resized = append(f.resized, [2]int{w, h}) }

func (f *fakeBackend) BeginFrame() error {
	if f.open {
		return errors.New("frame already open")
	}
	f.open = true
	f.frames++
	f.passes = nil
	return nil
}

func (f *fakeBackend) BeginPass(desc renderer.PassDescriptor) error {
	if !f.open {
		return errors.New("no frame")
	}
	f.passes = append(f.passes, recordedPass{desc: desc})
	return nil
}

func (f *fakeBackend) Draw(cmd renderer.DrawCommand) error {
	if len(f.passes) == 0 {
		return errors.New("no pass")
	}
	p := &f.passes[len(f.passes)-1]
	p.draws = append(p.draws, cmd)
	return nil
}

func (f *fakeBackend) EndPass() {}

func (f *fakeBackend) EndFrame() { f.open = false }

func (f *fakeBackend) labels() []string {
	var out []string
	for _, p := range f.passes {
		out = append(out, p.desc.Label)
	}
	return out
}

func (f *fakeBackend) pass(label string) recordedPass {
	for _, p := range f.passes {
		if p.desc.Label == label {
			return p
		}
	}
	return recordedPass{}
}

func (f *fakeBackend) lastWrite(label string) []byte {
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].Provider.Label() == label {
			return f.writes[i].Data
		}
	}
	return nil
}

func (f *fakeBackend) totalInits() int {
	n := 0
	for _, c := range f.inits {
		n += c
	}
	return n
}

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

type bufferAlloc struct{}

func (bufferAlloc) CreateBuffer(string, wgpu.BufferUsage, []byte) (*wgpu.Buffer, error) {
	return new(wgpu.Buffer), nil
}

func (bufferAlloc) ReleaseBuffer(*wgpu.Buffer) {}

type flatHeight float32

func (h flatHeight) Height(float32, float32) float32 { return float32(h) }

type fixedView struct{}

func (fixedView) Position() mgl32.Vec3 { return mgl32.Vec3{0.8, 0.2, 0} }
func (fixedView) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3{0.8, 0.2, 0}, mgl32.Vec3{0, -0.2, 0}, mgl32.Vec3{0, 1, 0})
}
func (fixedView) ProjectionMatrix() mgl32.Mat4 { return mgl32.Perspective(0.785, 1.5, 0.001, 100) }

func fullTextures() Textures {
	return Textures{
		Grass:       new(wgpu.TextureView),
		Sand:        new(wgpu.TextureView),
		Noise:       new(wgpu.TextureView),
		NoiseNormal: new(wgpu.TextureView),
		Caustic:     new(wgpu.TextureView),
		Subsurface:  new(wgpu.TextureView),
		Sky:         new(wgpu.TextureView),
		Repeat:      new(wgpu.Sampler),
		Clamp:       new(wgpu.Sampler),
	}
}

type fixture struct {
	backend *fakeBackend
	water   surface_mesh.SurfaceMesh
	terrain surface_mesh.SurfaceMesh
	scene   Scene
}

func newFixture(t *testing.T, textures Textures, upload bool, opts ...SceneBuilderOption) fixture {
	t.Helper()
	water, err := surface_mesh.NewSurfaceMesh("water", 4)
	require.NoError(t, err)
	terrain, err := surface_mesh.NewSurfaceMesh("ground", 4, surface_mesh.WithHeightSource(flatHeight(-0.1)))
	require.NoError(t, err)
	require.NoError(t, terrain.Upload(bufferAlloc{}))
	if upload {
		require.NoError(t, water.Upload(bufferAlloc{}))
	}
	b := newFakeBackend()
	s := NewScene(b, water, terrain, textures, 1200, 800, opts...)
	return fixture{backend: b, water: water, terrain: terrain, scene: s}
}

func TestNewSceneRegistersPipelinesAndTargets(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	assert.Equal(t, pipelineOrder, fx.backend.registered)
	assert.Equal(t, 4, fx.backend.allocated)

	for name, size := range map[string][2]int{
		TargetWaterMap:   {1024, 1024},
		TargetTopView:    {1024, 1024},
		TargetBackground: {1200, 800},
		TargetWater:      {1200, 800},
	} {
		tg, err := fx.scene.Targets().Target(name)
		require.NoError(t, err, name)
		w, h := tg.Size()
		assert.Equal(t, size, [2]int{w, h}, name)
	}
}

func TestNormalFramePassOrder(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	b := fx.backend
	assert.Equal(t, 1, b.frames)
	assert.False(t, b.open)
	assert.Equal(t, []string{LabelWaterMap, LabelTopView, LabelBackground, LabelWater, LabelScreen}, b.labels())

	settings := DefaultSettings()
	assert.Equal(t, settings.WaterMapClear, b.passes[0].desc.ClearColor)
	assert.Equal(t, settings.TopViewClear, b.passes[1].desc.ClearColor)
	assert.Equal(t, wgpu.Color{R: 0.1, G: 0.5, B: 0.2, A: 1}, b.passes[2].desc.ClearColor)
	assert.Equal(t, wgpu.Color{A: 1}, b.passes[3].desc.ClearColor)
	assert.Equal(t, wgpu.Color{R: 0.5, G: 0.5, B: 0.2, A: 1}, b.passes[4].desc.ClearColor)

	for _, p := range b.passes[:4] {
		assert.False(t, p.desc.Screen(), p.desc.Label)
		assert.NotNil(t, p.desc.Depth, p.desc.Label)
	}
	screen := b.pass(LabelScreen)
	assert.True(t, screen.desc.Screen())
	assert.Nil(t, screen.desc.Depth)
	require.Len(t, screen.draws, 1)
	assert.Equal(t, PipelineCombine, screen.draws[0].Pipeline)
	assert.Equal(t, uint32(3), screen.draws[0].Count)

	bg := b.pass(LabelBackground)
	require.Len(t, bg.draws, 2)
	assert.Equal(t, PipelineSky, bg.draws[0].Pipeline)
	assert.Empty(t, bg.draws[0].VertexBuffers)
	assert.Equal(t, PipelineGround, bg.draws[1].Pipeline)
	ib, count := fx.terrain.IndexBuffer(false)
	assert.Same(t, ib, bg.draws[1].IndexBuffer)
	assert.Equal(t, count, bg.draws[1].Count)
	assert.Len(t, bg.draws[1].VertexBuffers, 3)

	water := b.pass(LabelWater).draws[0]
	assert.Same(t, fx.water.CurrentPositions().Buffer, water.VertexBuffers[0])
	assert.Same(t, fx.water.NormalBuffer(), water.VertexBuffers[1])
	assert.Same(t, fx.water.TexCoordBuffer(), water.VertexBuffers[2])
	assert.Len(t, b.pass(LabelWaterMap).draws[0].VertexBuffers, 2)
	assert.Len(t, b.pass(LabelTopView).draws[0].VertexBuffers, 1)
}

func TestPassesSampleTheirProducers(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	get := func(name string) target.Target {
		tg, err := fx.scene.Targets().Target(name)
		require.NoError(t, err)
		return tg
	}
	b := fx.backend
	assert.Same(t, get(TargetWaterMap).ColorView(), b.pass(LabelWaterMap).desc.Color)
	assert.Same(t, get(TargetBackground).DepthView(), b.pass(LabelBackground).desc.Depth)

	ground := b.pass(LabelBackground).draws[1].BindGroups[1]
	assert.Same(t, get(TargetWaterMap).DepthView(), ground.TextureView(bindGroundWaterMapDepth))

	waterTex := b.pass(LabelWater).draws[0].BindGroups[1]
	assert.Same(t, get(TargetBackground).ColorView(), waterTex.TextureView(bindWaterBackgroundColor))
	assert.Same(t, get(TargetTopView).DepthView(), waterTex.TextureView(bindWaterTopViewDepth))

	combine := b.pass(LabelScreen).draws[0].BindGroups[0]
	assert.Same(t, get(TargetWater).DepthView(), combine.TextureView(bindCombineWaterDepth))
	assert.Same(t, get(TargetBackground).DepthView(), combine.TextureView(bindCombineBackgroundDepth))
}

func TestDebugModesRunOnlyProducers(t *testing.T) {
	cases := map[RenderMode][]string{
		RenderModeWaterMap:   {LabelWaterMap, LabelScreen},
		RenderModeTopView:    {LabelTopView, LabelScreen},
		RenderModeBackground: {LabelWaterMap, LabelBackground, LabelScreen},
		RenderModeWater:      {LabelWaterMap, LabelTopView, LabelBackground, LabelWater, LabelScreen},
	}
	for mode, want := range cases {
		t.Run(mode.String(), func(t *testing.T) {
			fx := newFixture(t, fullTextures(), true)
			fx.scene.SetRenderMode(mode)
			require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))
			assert.Equal(t, want, fx.backend.labels())

			screen := fx.backend.pass(LabelScreen)
			require.Len(t, screen.draws, 1)
			assert.Equal(t, PipelineDebugView, screen.draws[0].Pipeline)

			src, err := fx.scene.Targets().Target(mode.DebugTarget())
			require.NoError(t, err)
			assert.Same(t, src.ColorView(), screen.draws[0].BindGroups[0].TextureView(bindDebugSource))
		})
	}
}

func TestWireframeSwapsIndexBuffers(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	fx.scene.SetWireframe(true)
	assert.True(t, fx.scene.Wireframe())
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	ground := fx.backend.pass(LabelBackground).draws[1]
	assert.Equal(t, PipelineGroundWire, ground.Pipeline)
	lines, count := fx.terrain.IndexBuffer(true)
	assert.Same(t, lines, ground.IndexBuffer)
	assert.Equal(t, count, ground.Count)

	water := fx.backend.pass(LabelWater).draws[0]
	assert.Equal(t, PipelineWaterWire, water.Pipeline)

	// the light and top views keep their triangles
	tris, _ := fx.water.IndexBuffer(false)
	assert.Same(t, tris, fx.backend.pass(LabelWaterMap).draws[0].IndexBuffer)
}

func TestNormalsOverlayDrawsAfterOutput(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	fx.scene.SetNormalsOverlay(true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	screen := fx.backend.pass(LabelScreen)
	require.Len(t, screen.draws, 3)
	assert.Equal(t, PipelineCombine, screen.draws[0].Pipeline)
	for _, d := range screen.draws[1:] {
		assert.Equal(t, PipelineNormals, d.Pipeline)
		assert.Equal(t, uint32(2*25), d.Count)
		assert.Nil(t, d.IndexBuffer)
	}
	assert.Same(t, fx.water.CurrentPositions().Buffer, screen.draws[1].BindGroups[0].Buffer(bindNormalsPositions))
	assert.Same(t, fx.terrain.CurrentPositions().Buffer, screen.draws[2].BindGroups[0].Buffer(bindNormalsPositions))

	data := fx.backend.lastWrite("Water Normals 0")
	require.Len(t, data, 224)
	assert.Equal(t, float32(1), f32At(data, 192+8))
	assert.InDelta(t, 0.01, f32At(data, 208), 1e-7)
}

func TestNormalsFollowSwap(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	fx.scene.SetNormalsOverlay(true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))
	first := fx.backend.pass(LabelScreen).draws[1].BindGroups[0]

	fx.water.Swap()
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))
	second := fx.backend.pass(LabelScreen).draws[1].BindGroups[0]

	assert.NotSame(t, first, second)
	assert.Same(t, fx.water.CurrentPositions().Buffer, second.Buffer(bindNormalsPositions))
	assert.Same(t, fx.water.CurrentPositions().Buffer, fx.backend.pass(LabelWater).draws[0].VertexBuffers[0])
}

func TestBindGroupsAreBuiltOnce(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))
	inits := fx.backend.totalInits()
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 2))
	assert.Equal(t, inits, fx.backend.totalInits())
	assert.Equal(t, 2, fx.backend.frames)
}

func TestResizeIsDeferredToNextFrame(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	fx.scene.OnResize(1920, 1080)
	w, h := fx.scene.Size()
	assert.Equal(t, [2]int{1200, 800}, [2]int{w, h})
	assert.Empty(t, fx.backend.resized)

	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 2))
	assert.Equal(t, [][2]int{{1920, 1080}}, fx.backend.resized)
	w, h = fx.scene.Size()
	assert.Equal(t, [2]int{1920, 1080}, [2]int{w, h})

	for _, name := range []string{TargetBackground, TargetWater} {
		tg, err := fx.scene.Targets().Target(name)
		require.NoError(t, err)
		tw, th := tg.Size()
		assert.Equal(t, [2]int{1920, 1080}, [2]int{tw, th}, name)
		assert.Equal(t, uint64(2), tg.Version(), name)
	}
	assert.Equal(t, 2, fx.backend.freed)
	assert.NoError(t, fx.scene.Targets().Validate())

	assert.Equal(t, 2, fx.backend.inits["Water Textures"])
	assert.Equal(t, 2, fx.backend.inits["Combine Textures"])
	assert.Equal(t, 1, fx.backend.inits["Ground Textures"])

	data := fx.backend.lastWrite("Water Uniforms")
	require.Len(t, data, 416)
	assert.Equal(t, float32(1920), f32At(data, 400))
	assert.Equal(t, float32(1080), f32At(data, 404))
}

func TestResizeToSameSizeOrZeroIsIgnored(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	fx.scene.OnResize(0, 0)
	fx.scene.OnResize(1200, 800)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))
	assert.Empty(t, fx.backend.resized)
	assert.Zero(t, fx.backend.freed)
}

func TestMissingTextureFailsBeforeFrame(t *testing.T) {
	tex := fullTextures()
	tex.Caustic = nil
	fx := newFixture(t, tex, true)

	err := fx.scene.RenderFrame(fixedView{}, 1.0/60, 1)
	require.ErrorIs(t, err, ErrUnboundResource)
	assert.Contains(t, err.Error(), "Ground Textures")
	assert.Contains(t, err.Error(), "[5]")
	assert.Zero(t, fx.backend.frames)
	assert.Empty(t, fx.backend.writes)
}

func TestUnuploadedMeshFails(t *testing.T) {
	fx := newFixture(t, fullTextures(), false)
	err := fx.scene.RenderFrame(fixedView{}, 1.0/60, 1)
	assert.ErrorIs(t, err, ErrUnboundResource)
	assert.Zero(t, fx.backend.frames)
}

func TestUniformWriteSizes(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 0.5, 3))

	for label, size := range map[string]int{
		"Water Map Uniforms": 192,
		"Top View Uniforms":  128,
		"Sky Uniforms":       64,
		"Ground Uniforms":    416,
		"Water Uniforms":     416,
	} {
		assert.Len(t, fx.backend.lastWrite(label), size, label)
	}

	ground := fx.backend.lastWrite("Ground Uniforms")
	assert.Equal(t, float32(3), f32At(ground, 400))
	assert.Equal(t, float32(24), f32At(ground, 404))
	assert.Equal(t, float32(36), f32At(ground, 408))
	assert.Equal(t, float32(-1), f32At(ground, 384))

	water := fx.backend.lastWrite("Water Uniforms")
	assert.Equal(t, float32(0.5), f32At(water, 408))
	assert.Equal(t, float32(3), f32At(water, 412))
}

func TestSettingsApply(t *testing.T) {
	fx := newFixture(t, fullTextures(), true)
	s := fx.scene.Settings()
	s.BackgroundClear = wgpu.Color{R: 1, A: 1}
	s.GrassScale = 12
	fx.scene.SetSettings(s)
	require.NoError(t, fx.scene.RenderFrame(fixedView{}, 1.0/60, 1))

	assert.Equal(t, wgpu.Color{R: 1, A: 1}, fx.backend.pass(LabelBackground).desc.ClearColor)
	assert.Equal(t, float32(12), f32At(fx.backend.lastWrite("Ground Uniforms"), 404))
}

func TestSetRenderModeRejectsUnknown(t *testing.T) {
	fx := newFixture(t, fullTextures(), true, WithRenderMode(RenderModeWater))
	fx.scene.SetRenderMode(RenderMode(42))
	assert.Equal(t, RenderModeWater, fx.scene.RenderMode())
}

func TestRenderModeNames(t *testing.T) {
	assert.Equal(t, "normal", RenderModeNormal.String())
	assert.Equal(t, "", RenderModeNormal.DebugTarget())
	assert.Equal(t, TargetTopView, RenderModeTopView.DebugTarget())
	assert.Len(t, RenderModes, 5)
}

func TestCompositeReference(t *testing.T) {
	red := [4]float32{1, 0, 0, 1}
	blue := [4]float32{0, 0, 1, 1}
	bgColor := [][4]float32{red, red, red}
	bgDepth := []float32{0.5, 0.5, 0.5}
	waterColor := [][4]float32{blue, blue, blue}
	waterDepth := []float32{0.3, 0.5, 0.7}

	out, err := CompositeReference(bgColor, bgDepth, waterColor, waterDepth)
	require.NoError(t, err)
	assert.Equal(t, [][4]float32{blue, red, red}, out)

	_, err = CompositeReference(bgColor, bgDepth[:2], waterColor, waterDepth)
	assert.ErrorIs(t, err, ErrCompositeSize)
}
