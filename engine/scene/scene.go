// Package scene renders the water scene: four off-screen passes feeding a composited screen
// pass, plus the debug views and overlays toggled from the keyboard.
package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/light"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer/target"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Target names.
const (
	TargetWaterMap   = "water_map"
	TargetTopView    = "top_view"
	TargetBackground = "background"
	TargetWater      = "water"
)

// DefaultTargetSize is the edge length of the fixed-size top view and water map targets.
const DefaultTargetSize = light.WaterMapResolution

// ErrUnboundResource is returned when a pass would draw with a texture, sampler or buffer unset.
var ErrUnboundResource = errors.New("scene: unbound resource")

// Backend is the part of the renderer the scene drives.
type Backend interface {
	target.Allocator

	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)
	Resize(width, height int)

	BeginFrame() error
	BeginPass(desc renderer.PassDescriptor) error
	Draw(cmd renderer.DrawCommand) error
	EndPass()
	EndFrame()
}

// Viewer is the camera state a frame is rendered from. camera.Camera satisfies it.
type Viewer interface {
	Position() mgl32.Vec3
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
}

// Textures are the static inputs of the shading passes. Views and samplers are borrowed.
type Textures struct {
	Grass       *wgpu.TextureView
	Sand        *wgpu.TextureView
	Noise       *wgpu.TextureView
	NoiseNormal *wgpu.TextureView
	Caustic     *wgpu.TextureView
	Subsurface  *wgpu.TextureView
	// Sky is a cube view.
	Sky *wgpu.TextureView

	Repeat *wgpu.Sampler
	Clamp  *wgpu.Sampler
}

// Settings are the tunables that can change between frames without reallocating anything.
type Settings struct {
	WaterMapClear   wgpu.Color
	TopViewClear    wgpu.Color
	BackgroundClear wgpu.Color
	WaterClear      wgpu.Color
	ScreenClear     wgpu.Color

	GrassScale float32
	SandScale  float32

	NormalLength      float32
	WaterNormalColor  mgl32.Vec4
	GroundNormalColor mgl32.Vec4
}

// DefaultSettings returns the stock clear colors, texture scales and overlay style.
func DefaultSettings() Settings {
	return Settings{
		WaterMapClear:     wgpu.Color{R: 0.1, G: 0.2, B: 0.7, A: 1},
		TopViewClear:      wgpu.Color{R: 0.1, G: 0.2, B: 0.7, A: 1},
		BackgroundClear:   wgpu.Color{R: 0.1, G: 0.5, B: 0.2, A: 1},
		WaterClear:        wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		ScreenClear:       wgpu.Color{R: 0.5, G: 0.5, B: 0.2, A: 1},
		GrassScale:        24,
		SandScale:         36,
		NormalLength:      0.01,
		WaterNormalColor:  mgl32.Vec4{0, 0, 1, 1},
		GroundNormalColor: mgl32.Vec4{0, 1, 0, 1},
	}
}

type scene struct {
	mu *sync.Mutex

	backend   Backend
	pipelines map[string]pipeline.Pipeline
	targets   target.Manager
	light     light.Light

	water   surface_mesh.SurfaceMesh
	terrain surface_mesh.SurfaceMesh

	textures Textures
	settings Settings

	width, height       int
	pendingResize       bool
	pendingW, pendingH  int
	topViewSize         int
	waterMapSize        int
	mode                RenderMode
	wireframe           bool
	normals             bool
	world, normalMatrix mgl32.Mat4
	topView, topProj    mgl32.Mat4

	providers providers
	// stamps records the resource versions each bind group was built from.
	stamps map[bind_group_provider.BindGroupProvider][]uint64
}

// Scene is the runtime context of the water renderer. It owns the render targets, the render
// pipelines and their bind groups, and borrows the meshes and static textures.
//
// A frame is rendered as:
//  1. water map, top view, background, water (only the passes the render mode needs)
//  2. the screen pass: combine in RenderModeNormal, otherwise the debug view of one target
//  3. the normals overlay when enabled, drawn in the screen pass without depth
//
// Every resource is validated before the frame is begun, so a failing frame encodes nothing.
type Scene interface {
	// RenderFrame encodes and submits every pass of one frame. It does not present.
	//
	// Parameters:
	//   - view: the camera
	//   - dt: frame delta in seconds
	//   - elapsed: total time in seconds
	//
	// Returns:
	//   - error: ErrUnboundResource, a target error, or a backend error
	RenderFrame(view Viewer, dt, elapsed float32) error

	// OnResize records a new framebuffer size. Screen-sized targets and the surface are resized
	// together at the start of the next RenderFrame. Non-positive sizes (a minimized window)
	// are ignored.
	//
	// Parameters:
	//   - width, height: the framebuffer size in pixels
	OnResize(width, height int)

	// Size returns the framebuffer size the targets currently have.
	Size() (int, int)

	// RenderMode returns the active render mode.
	RenderMode() RenderMode

	// SetRenderMode selects what the screen pass shows.
	SetRenderMode(mode RenderMode)

	// Wireframe reports whether ground and water are drawn as grid lines.
	Wireframe() bool

	// SetWireframe toggles line drawing of ground and water in the background and water passes.
	SetWireframe(enabled bool)

	// NormalsOverlay reports whether vertex normals are drawn over the screen.
	NormalsOverlay() bool

	// SetNormalsOverlay toggles the vertex normal overlay.
	SetNormalsOverlay(enabled bool)

	// Settings returns the current tunables.
	Settings() Settings

	// SetSettings replaces the tunables from the next frame on.
	SetSettings(settings Settings)

	// Targets returns the render target manager.
	Targets() target.Manager

	// Light returns the light the water map is rendered from.
	Light() light.Light

	// Release frees the targets and the bind groups. Meshes and textures are borrowed and untouched.
	Release()
}

var _ Scene = &scene{}

// NewScene registers the render pipelines and allocates the render targets.
// It panics if a pipeline cannot be created or a target cannot be allocated.
//
// Parameters:
//   - backend: the renderer
//   - water: the simulated water mesh
//   - terrain: the terrain mesh
//   - textures: the static textures and samplers
//   - width, height: the initial framebuffer size
//   - options: functional options
//
// Returns:
//   - Scene: the new scene
func NewScene(backend Backend, water, terrain surface_mesh.SurfaceMesh, textures Textures, width, height int, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:           &sync.Mutex{},
		backend:      backend,
		water:        water,
		terrain:      terrain,
		textures:     textures,
		settings:     DefaultSettings(),
		width:        width,
		height:       height,
		topViewSize:  DefaultTargetSize,
		waterMapSize: DefaultTargetSize,
		world:        common.SurfaceWorldMatrix(2, mgl32.Vec3{-0.5, 0, -0.5}),
		topView:      common.LookAt(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{1, 0, 0}),
		topProj:      common.Ortho2D(-0.5, 0.5, -0.5, 0.5),
		stamps:       map[bind_group_provider.BindGroupProvider][]uint64{},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.light == nil {
		s.light = light.NewDirectionalLight()
	}
	s.normalMatrix = common.NormalMatrix(s.world)

	s.pipelines = buildPipelines()
	for _, key := range pipelineOrder {
		if err := backend.RegisterPipelines(s.pipelines[key]); err != nil {
			panic(fmt.Sprintf("scene: failed to register pipeline %s: %v", key, err))
		}
	}

	s.targets = target.NewManager(backend)
	for _, t := range []struct {
		name   string
		w, h   int
		screen bool
	}{
		{TargetWaterMap, s.waterMapSize, s.waterMapSize, false},
		{TargetTopView, s.topViewSize, s.topViewSize, false},
		{TargetBackground, width, height, true},
		{TargetWater, width, height, true},
	} {
		if _, err := s.targets.MakeTarget(t.name, t.w, t.h, t.screen); err != nil {
			panic(fmt.Sprintf("scene: failed to create target %s: %v", t.name, err))
		}
	}

	s.providers = newProviders(s.pipelines)
	return s
}

func (s *scene) RenderFrame(view Viewer, dt, elapsed float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyPendingResize(); err != nil {
		return err
	}

	f := &frame{view: view, dt: dt, elapsed: elapsed}
	for _, p := range s.mode.passes() {
		if err := s.planPass(f, p); err != nil {
			return err
		}
	}
	if err := s.planScreen(f); err != nil {
		return err
	}

	s.backend.WriteBuffers(f.writes)
	if err := s.backend.BeginFrame(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	for _, p := range f.passes {
		if err := s.encode(p); err != nil {
			s.backend.EndFrame()
			return err
		}
	}
	s.backend.EndFrame()
	return nil
}

func (s *scene) encode(p plannedPass) error {
	if err := s.backend.BeginPass(p.desc); err != nil {
		return fmt.Errorf("scene: %s pass: %w", p.desc.Label, err)
	}
	defer s.backend.EndPass()
	for _, d := range p.draws {
		if err := s.backend.Draw(d); err != nil {
			return fmt.Errorf("scene: %s pass: %w", p.desc.Label, err)
		}
	}
	return nil
}

// applyPendingResize resizes the screen targets and the surface to the size recorded by
// OnResize. On failure the old targets stay in place and the resize is retried next frame.
func (s *scene) applyPendingResize() error {
	if !s.pendingResize {
		return nil
	}
	w, h := s.pendingW, s.pendingH
	if w == s.width && h == s.height {
		s.pendingResize = false
		return nil
	}
	if err := s.targets.ResizeScreen(w, h); err != nil {
		return fmt.Errorf("scene: resize to %dx%d: %w", w, h, err)
	}
	if err := s.targets.Validate(); err != nil {
		return fmt.Errorf("scene: resize to %dx%d: %w", w, h, err)
	}
	s.backend.Resize(w, h)
	s.width, s.height = w, h
	s.pendingResize = false
	return nil
}

func (s *scene) OnResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingResize = true
	s.pendingW, s.pendingH = width, height
}

func (s *scene) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *scene) RenderMode() RenderMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *scene) SetRenderMode(mode RenderMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode < RenderModeNormal || mode > RenderModeTopView {
		return
	}
	s.mode = mode
}

func (s *scene) Wireframe() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wireframe
}

func (s *scene) SetWireframe(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wireframe = enabled
}

func (s *scene) NormalsOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.normals
}

func (s *scene) SetNormalsOverlay(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.normals = enabled
}

func (s *scene) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *scene) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *scene) Targets() target.Manager {
	return s.targets
}

func (s *scene) Light() light.Light {
	return s.light
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers.release()
	s.stamps = map[bind_group_provider.BindGroupProvider][]uint64{}
	s.targets.Release()
}

// bind makes sure p has a bind group built from its current resources. deps are the versions
// of the resources the group captures; the group is rebuilt whenever they change.
// Uniform buffers are created by InitBindGroup and never count as missing.
func (s *scene) bind(p bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, deps ...uint64) error {
	if p.BindGroup() != nil && slices.Equal(s.stamps[p], deps) {
		return nil
	}

	var unbound []uint32
	for _, b := range p.Missing(desc) {
		if !isUniform(desc, b) {
			unbound = append(unbound, b)
		}
	}
	if len(unbound) > 0 {
		return fmt.Errorf("%w: %s bindings %v", ErrUnboundResource, p.Label(), unbound)
	}

	if err := s.backend.InitBindGroup(p, desc, nil, nil); err != nil {
		return fmt.Errorf("scene: %s: %w", p.Label(), err)
	}
	s.stamps[p] = slices.Clone(deps)
	return nil
}

func isUniform(desc wgpu.BindGroupLayoutDescriptor, binding uint32) bool {
	for _, e := range desc.Entries {
		if e.Binding == binding {
			return e.Buffer.Type == wgpu.BufferBindingTypeUniform
		}
	}
	return false
}
