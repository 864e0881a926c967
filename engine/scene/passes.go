package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// pass identifies one off-screen pass.
type pass int

const (
	passWaterMap pass = iota
	passTopView
	passBackground
	passWater
)

// Pass labels, as they appear in GPU debug tooling.
const (
	LabelWaterMap   = "Water Map"
	LabelTopView    = "Top View"
	LabelBackground = "Background"
	LabelWater      = "Water"
	LabelScreen     = "Screen"
)

// Texture and sampler bindings of the ground, water and debug groups.
const (
	bindSkyCube    = 0
	bindSkySampler = 1

	bindGroundWaterMapDepth = 0
	bindGroundWaterMapColor = 1
	bindGroundGrass         = 2
	bindGroundSand          = 3
	bindGroundNoiseNormal   = 4
	bindGroundCaustic       = 5
	bindGroundSubsurface    = 6

	bindWaterBackgroundColor = 0
	bindWaterBackgroundDepth = 1
	bindWaterNoise           = 2
	bindWaterNoiseNormal     = 3
	bindWaterSky             = 4
	bindWaterSubsurface      = 5
	bindWaterTopViewDepth    = 7

	bindRepeatSampler = 10
	bindClampSampler  = 11

	bindCombineBackgroundColor = 0
	bindCombineBackgroundDepth = 1
	bindCombineWaterColor      = 2
	bindCombineWaterDepth      = 3

	bindDebugSource  = 0
	bindDebugSampler = 1

	bindNormalsPositions = 1
	bindNormalsNormals   = 2
)

// fullscreenVertices is the vertex count of the full-screen triangle.
const fullscreenVertices = 3

// frame collects the writes and the encoded passes of one RenderFrame before anything is submitted.
type frame struct {
	view        Viewer
	dt, elapsed float32

	writes []bind_group_provider.BufferWrite
	passes []plannedPass
}

type plannedPass struct {
	desc  renderer.PassDescriptor
	draws []renderer.DrawCommand
}

func (f *frame) write(p bind_group_provider.BindGroupProvider, data []byte) {
	f.writes = append(f.writes, bind_group_provider.Write(p, 0, data))
}

// providers holds every bind group the scene draws with.
type providers struct {
	waterMap       bind_group_provider.BindGroupProvider
	topView        bind_group_provider.BindGroupProvider
	sky            bind_group_provider.BindGroupProvider
	skyTextures    bind_group_provider.BindGroupProvider
	ground         bind_group_provider.BindGroupProvider
	groundTextures bind_group_provider.BindGroupProvider
	water          bind_group_provider.BindGroupProvider
	waterTextures  bind_group_provider.BindGroupProvider
	combine        bind_group_provider.BindGroupProvider
	debug          map[RenderMode]bind_group_provider.BindGroupProvider

	// normals are indexed by the mesh's current slot index.
	waterNormals  [2]bind_group_provider.BindGroupProvider
	groundNormals [2]bind_group_provider.BindGroupProvider
}

func newProvider(label string, p pipeline.Pipeline, group int) bind_group_provider.BindGroupProvider {
	return bind_group_provider.NewBindGroupProvider(label, bind_group_provider.WithBindGroupLayout(p.BindGroupLayout(group)))
}

func newProviders(pipelines map[string]pipeline.Pipeline) providers {
	pr := providers{
		waterMap:       newProvider("Water Map Uniforms", pipelines[PipelineWaterMap], 0),
		topView:        newProvider("Top View Uniforms", pipelines[PipelineTopView], 0),
		sky:            newProvider("Sky Uniforms", pipelines[PipelineSky], 0),
		skyTextures:    newProvider("Sky Textures", pipelines[PipelineSky], 1),
		ground:         newProvider("Ground Uniforms", pipelines[PipelineGround], 0),
		groundTextures: newProvider("Ground Textures", pipelines[PipelineGround], 1),
		water:          newProvider("Water Uniforms", pipelines[PipelineWater], 0),
		waterTextures:  newProvider("Water Textures", pipelines[PipelineWater], 1),
		combine:        newProvider("Combine Textures", pipelines[PipelineCombine], 0),
		debug:          map[RenderMode]bind_group_provider.BindGroupProvider{},
	}
	for _, m := range RenderModes[1:] {
		pr.debug[m] = newProvider("Debug View "+m.String(), pipelines[PipelineDebugView], 0)
	}
	for i := range 2 {
		pr.waterNormals[i] = newProvider(fmt.Sprintf("Water Normals %d", i), pipelines[PipelineNormals], 0)
		pr.groundNormals[i] = newProvider(fmt.Sprintf("Ground Normals %d", i), pipelines[PipelineNormals], 0)
	}
	return pr
}

func (pr providers) all() []bind_group_provider.BindGroupProvider {
	out := []bind_group_provider.BindGroupProvider{
		pr.waterMap, pr.topView, pr.sky, pr.skyTextures, pr.ground, pr.groundTextures,
		pr.water, pr.waterTextures, pr.combine,
	}
	for _, m := range RenderModes[1:] {
		out = append(out, pr.debug[m])
	}
	out = append(out, pr.waterNormals[:]...)
	return append(out, pr.groundNormals[:]...)
}

func (pr providers) release() {
	for _, p := range pr.all() {
		p.Release()
	}
}

func (s *scene) layout(key string, group int) wgpu.BindGroupLayoutDescriptor {
	return s.pipelines[key].BindGroupLayoutDescriptor(group)
}

func (s *scene) target(name string) (target.Target, error) {
	t, err := s.targets.Target(name)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return t, nil
}

// vertexBuffers returns the first n of the mesh's position, normal and texcoord buffers.
func vertexBuffers(m surface_mesh.SurfaceMesh, n int) ([]*wgpu.Buffer, error) {
	all := []*wgpu.Buffer{m.CurrentPositions().Buffer, m.NormalBuffer(), m.TexCoordBuffer()}[:n]
	for i, b := range all {
		if b == nil {
			return nil, fmt.Errorf("%w: %s vertex slot %d", ErrUnboundResource, m.Label(), i)
		}
	}
	return all, nil
}

// meshDraw builds an indexed draw of m with the first n vertex slots bound.
func meshDraw(key string, m surface_mesh.SurfaceMesh, slots int, wire bool, groups ...bind_group_provider.BindGroupProvider) (renderer.DrawCommand, error) {
	vb, err := vertexBuffers(m, slots)
	if err != nil {
		return renderer.DrawCommand{}, err
	}
	ib, count := m.IndexBuffer(wire)
	if ib == nil {
		return renderer.DrawCommand{}, fmt.Errorf("%w: %s index buffer", ErrUnboundResource, m.Label())
	}
	return renderer.DrawCommand{
		Pipeline:      key,
		BindGroups:    groups,
		VertexBuffers: vb,
		IndexBuffer:   ib,
		Count:         count,
	}, nil
}

func offscreen(label string, t target.Target, clear wgpu.Color) renderer.PassDescriptor {
	return renderer.PassDescriptor{Label: label, Color: t.ColorView(), Depth: t.DepthView(), ClearColor: clear}
}

func (s *scene) planPass(f *frame, p pass) error {
	switch p {
	case passWaterMap:
		return s.planWaterMap(f)
	case passTopView:
		return s.planTopView(f)
	case passBackground:
		return s.planBackground(f)
	case passWater:
		return s.planWater(f)
	default:
		return fmt.Errorf("scene: unknown pass %d", p)
	}
}

func (s *scene) planWaterMap(f *frame) error {
	t, err := s.target(TargetWaterMap)
	if err != nil {
		return err
	}
	pr := s.providers.waterMap
	if err := s.bind(pr, s.layout(PipelineWaterMap, 0)); err != nil {
		return err
	}
	u := WaterMapUniforms{World: s.world, View: s.light.ViewMatrix(), Projection: s.light.ProjectionMatrix()}
	f.write(pr, common.StructToBytes(&u))

	draw, err := meshDraw(PipelineWaterMap, s.water, 2, false, pr)
	if err != nil {
		return err
	}
	f.passes = append(f.passes, plannedPass{
		desc:  offscreen(LabelWaterMap, t, s.settings.WaterMapClear),
		draws: []renderer.DrawCommand{draw},
	})
	return nil
}

func (s *scene) planTopView(f *frame) error {
	t, err := s.target(TargetTopView)
	if err != nil {
		return err
	}
	pr := s.providers.topView
	if err := s.bind(pr, s.layout(PipelineTopView, 0)); err != nil {
		return err
	}
	u := TopViewUniforms{View: s.topView, Projection: s.topProj}
	f.write(pr, common.StructToBytes(&u))

	draw, err := meshDraw(PipelineTopView, s.terrain, 1, false, pr)
	if err != nil {
		return err
	}
	f.passes = append(f.passes, plannedPass{
		desc:  offscreen(LabelTopView, t, s.settings.TopViewClear),
		draws: []renderer.DrawCommand{draw},
	})
	return nil
}

func (s *scene) planBackground(f *frame) error {
	t, err := s.target(TargetBackground)
	if err != nil {
		return err
	}
	waterMap, err := s.target(TargetWaterMap)
	if err != nil {
		return err
	}
	view, proj := f.view.ViewMatrix(), f.view.ProjectionMatrix()

	// sky
	pr := s.providers
	if err := s.bind(pr.sky, s.layout(PipelineSky, 0)); err != nil {
		return err
	}
	pr.skyTextures.SetTextureView(bindSkyCube, s.textures.Sky)
	pr.skyTextures.SetSampler(bindSkySampler, s.textures.Clamp)
	if err := s.bind(pr.skyTextures, s.layout(PipelineSky, 1)); err != nil {
		return err
	}
	sky := SkyUniforms{InverseViewProjection: proj.Mul4(view).Inv()}
	f.write(pr.sky, common.StructToBytes(&sky))

	// ground
	if err := s.bind(pr.ground, s.layout(PipelineGround, 0)); err != nil {
		return err
	}
	pr.groundTextures.SetTextureViews(map[int]*wgpu.TextureView{
		bindGroundWaterMapDepth: waterMap.DepthView(),
		bindGroundWaterMapColor: waterMap.ColorView(),
		bindGroundGrass:         s.textures.Grass,
		bindGroundSand:          s.textures.Sand,
		bindGroundNoiseNormal:   s.textures.NoiseNormal,
		bindGroundCaustic:       s.textures.Caustic,
		bindGroundSubsurface:    s.textures.Subsurface,
	})
	pr.groundTextures.SetSampler(bindRepeatSampler, s.textures.Repeat)
	pr.groundTextures.SetSampler(bindClampSampler, s.textures.Clamp)
	if err := s.bind(pr.groundTextures, s.layout(PipelineGround, 1), waterMap.Version()); err != nil {
		return err
	}
	lp := s.light.Position()
	ground := GroundUniforms{
		World:              s.world,
		NormalMatrix:       s.normalMatrix,
		View:               view,
		Projection:         proj,
		WaterMapView:       s.light.ViewMatrix(),
		WaterMapProjection: s.light.ProjectionMatrix(),
		LightPosition:      lp.Vec4(1),
		Time:               f.elapsed,
		GrassScale:         s.settings.GrassScale,
		SandScale:          s.settings.SandScale,
	}
	f.write(pr.ground, common.StructToBytes(&ground))

	key := PipelineGround
	if s.wireframe {
		key = PipelineGroundWire
	}
	groundDraw, err := meshDraw(key, s.terrain, 3, s.wireframe, pr.ground, pr.groundTextures)
	if err != nil {
		return err
	}

	f.passes = append(f.passes, plannedPass{
		desc: offscreen(LabelBackground, t, s.settings.BackgroundClear),
		draws: []renderer.DrawCommand{
			{Pipeline: PipelineSky, BindGroups: []bind_group_provider.BindGroupProvider{pr.sky, pr.skyTextures}, Count: fullscreenVertices},
			groundDraw,
		},
	})
	return nil
}

func (s *scene) planWater(f *frame) error {
	t, err := s.target(TargetWater)
	if err != nil {
		return err
	}
	background, err := s.target(TargetBackground)
	if err != nil {
		return err
	}
	topView, err := s.target(TargetTopView)
	if err != nil {
		return err
	}

	pr := s.providers
	if err := s.bind(pr.water, s.layout(PipelineWater, 0)); err != nil {
		return err
	}
	pr.waterTextures.SetTextureViews(map[int]*wgpu.TextureView{
		bindWaterBackgroundColor: background.ColorView(),
		bindWaterBackgroundDepth: background.DepthView(),
		bindWaterNoise:           s.textures.Noise,
		bindWaterNoiseNormal:     s.textures.NoiseNormal,
		bindWaterSky:             s.textures.Sky,
		bindWaterSubsurface:      s.textures.Subsurface,
		bindWaterTopViewDepth:    topView.DepthView(),
	})
	pr.waterTextures.SetSampler(bindRepeatSampler, s.textures.Repeat)
	pr.waterTextures.SetSampler(bindClampSampler, s.textures.Clamp)
	if err := s.bind(pr.waterTextures, s.layout(PipelineWater, 1), background.Version(), topView.Version()); err != nil {
		return err
	}

	w, h := t.Size()
	u := WaterUniforms{
		World:           s.world,
		NormalMatrix:    s.normalMatrix,
		View:            f.view.ViewMatrix(),
		Projection:      f.view.ProjectionMatrix(),
		TopView:         s.topView,
		TopProjection:   s.topProj,
		CameraPosition:  f.view.Position().Vec4(1),
		FramebufferSize: mgl32.Vec2{float32(w), float32(h)},
		DeltaTime:       f.dt,
		Time:            f.elapsed,
	}
	f.write(pr.water, common.StructToBytes(&u))

	key := PipelineWater
	if s.wireframe {
		key = PipelineWaterWire
	}
	draw, err := meshDraw(key, s.water, 3, s.wireframe, pr.water, pr.waterTextures)
	if err != nil {
		return err
	}
	f.passes = append(f.passes, plannedPass{
		desc:  offscreen(LabelWater, t, s.settings.WaterClear),
		draws: []renderer.DrawCommand{draw},
	})
	return nil
}

func (s *scene) planScreen(f *frame) error {
	var draws []renderer.DrawCommand

	if s.mode == RenderModeNormal {
		background, err := s.target(TargetBackground)
		if err != nil {
			return err
		}
		water, err := s.target(TargetWater)
		if err != nil {
			return err
		}
		pr := s.providers.combine
		pr.SetTextureViews(map[int]*wgpu.TextureView{
			bindCombineBackgroundColor: background.ColorView(),
			bindCombineBackgroundDepth: background.DepthView(),
			bindCombineWaterColor:      water.ColorView(),
			bindCombineWaterDepth:      water.DepthView(),
		})
		if err := s.bind(pr, s.layout(PipelineCombine, 0), background.Version(), water.Version()); err != nil {
			return err
		}
		draws = append(draws, renderer.DrawCommand{
			Pipeline:   PipelineCombine,
			BindGroups: []bind_group_provider.BindGroupProvider{pr},
			Count:      fullscreenVertices,
		})
	} else {
		src, err := s.target(s.mode.DebugTarget())
		if err != nil {
			return err
		}
		pr := s.providers.debug[s.mode]
		pr.SetTextureView(bindDebugSource, src.ColorView())
		pr.SetSampler(bindDebugSampler, s.textures.Clamp)
		if err := s.bind(pr, s.layout(PipelineDebugView, 0), src.Version()); err != nil {
			return err
		}
		draws = append(draws, renderer.DrawCommand{
			Pipeline:   PipelineDebugView,
			BindGroups: []bind_group_provider.BindGroupProvider{pr},
			Count:      fullscreenVertices,
		})
	}

	if s.normals {
		for _, o := range []struct {
			mesh      surface_mesh.SurfaceMesh
			providers [2]bind_group_provider.BindGroupProvider
			color     mgl32.Vec4
		}{
			{s.water, s.providers.waterNormals, s.settings.WaterNormalColor},
			{s.terrain, s.providers.groundNormals, s.settings.GroundNormalColor},
		} {
			draw, err := s.planNormals(f, o.mesh, o.providers, o.color)
			if err != nil {
				return err
			}
			draws = append(draws, draw)
		}
	}

	f.passes = append(f.passes, plannedPass{
		desc:  renderer.PassDescriptor{Label: LabelScreen, ClearColor: s.settings.ScreenClear},
		draws: draws,
	})
	return nil
}

func (s *scene) planNormals(f *frame, m surface_mesh.SurfaceMesh, prs [2]bind_group_provider.BindGroupProvider, color mgl32.Vec4) (renderer.DrawCommand, error) {
	slot := m.CurrentPositions()
	pr := prs[slot.Index]
	pr.SetBuffer(bindNormalsPositions, slot.Buffer)
	pr.SetBuffer(bindNormalsNormals, m.NormalBuffer())
	if err := s.bind(pr, s.layout(PipelineNormals, 0)); err != nil {
		return renderer.DrawCommand{}, err
	}

	u := NormalsUniforms{
		World:        s.world,
		View:         f.view.ViewMatrix(),
		Projection:   f.view.ProjectionMatrix(),
		Color:        color,
		NormalLength: s.settings.NormalLength,
	}
	f.write(pr, common.StructToBytes(&u))
	return renderer.DrawCommand{
		Pipeline:   PipelineNormals,
		BindGroups: []bind_group_provider.BindGroupProvider{pr},
		Count:      uint32(2 * m.VertexCount()),
	}, nil
}
