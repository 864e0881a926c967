package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/camera"
	"github.com/Carmen-Shannon/oxy-water/engine/config"
	"github.com/Carmen-Shannon/oxy-water/engine/loader"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer"
	"github.com/Carmen-Shannon/oxy-water/engine/scene"
	"github.com/Carmen-Shannon/oxy-water/engine/simulation"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/Carmen-Shannon/oxy-water/engine/terrain"
	"github.com/Carmen-Shannon/oxy-water/engine/window"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bootstrap opens the window and GPU device, loads the assets, builds both meshes, the
// simulation and the scene from cfg, and returns the engine that drives them.
// GPU setup failures panic, as their constructors do. When configPath is non-empty the file
// is watched and edits are applied between frames.
//
// Parameters:
//   - ctx: bounds asset loading and the config watcher
//   - cfg: the validated startup configuration
//   - configPath: the file cfg was loaded from, or ""
//
// Returns:
//   - Engine: the ready engine; call Release when Run returns
//   - error: asset, mesh or simulation setup failure
func Bootstrap(ctx context.Context, cfg config.Config, configPath string) (Engine, error) {
	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height))
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(renderer.PresentModeFor(cfg.Window.VSync)))

	release := releaseStack{func() { _ = win.Close() }, r.Release}
	fail := func(err error) (Engine, error) {
		release.run()
		return nil, err
	}

	assets, err := loader.NewLoader(cfg.Assets.Root, loader.WithSeed(cfg.Simulation.TerrainSeed)).LoadSet(ctx)
	if err != nil {
		return fail(err)
	}
	// views and samplers belong to the renderer and are freed by r.Release
	textures, err := uploadTextures(r, assets)
	if err != nil {
		return fail(err)
	}

	pool := worker.NewDynamicWorkerPool(runtime.NumCPU(), 256, time.Second)
	release.push(pool.Stop)
	res := cfg.Simulation.Resolution
	ground, err := surface_mesh.NewSurfaceMesh("terrain", res,
		surface_mesh.WithHeightSource(terrain.NewGenerator(cfg.Simulation.TerrainSeed)),
		surface_mesh.WithWorkerPool(pool))
	if err != nil {
		return fail(err)
	}
	water, err := surface_mesh.NewSurfaceMesh("water", res, surface_mesh.WithWorkerPool(pool))
	if err != nil {
		return fail(err)
	}
	for _, m := range []surface_mesh.SurfaceMesh{ground, water} {
		if err := m.Upload(r); err != nil {
			return fail(fmt.Errorf("engine: %w", err))
		}
		release.push(m.Release)
	}

	sim := simulation.NewSimulator(r,
		simulation.WithParams(SimulationParams(cfg.Simulation)),
		simulation.WithResolution(res),
		simulation.WithNoiseTexture(textures.Noise))
	release.push(sim.Release)

	width, height := win.FramebufferSize()
	sc := scene.NewScene(r, water, ground, textures, width, height,
		scene.WithTopViewSize(cfg.Render.TopViewSize),
		scene.WithWaterMapSize(cfg.Render.WaterMapSize),
		scene.WithSettings(SceneSettings(scene.DefaultSettings(), cfg.Render)))
	release.push(sc.Release)

	cam := camera.NewCamera(
		camera.WithFov(cfg.Camera.Fov*math32.Pi/180),
		camera.WithFramebufferSize(width, height),
		camera.WithController(newController(cfg.Camera)))

	opts := []EngineBuilderOption{
		WithWindow(win),
		WithPresenter(r),
		WithSimulator(sim),
		WithScene(sc),
		WithCamera(cam),
		WithMeshes(water, ground),
		WithConfig(cfg),
	}
	if configPath != "" {
		updates, err := config.Watch(ctx, configPath)
		if err != nil {
			slog.Warn("config hot reload disabled", "path", configPath, "error", err)
		} else {
			opts = append(opts, WithConfigUpdates(updates))
		}
	}
	for _, fn := range release {
		opts = append(opts, WithReleaser(fn))
	}

	slog.Info("engine ready",
		"resolution", res,
		"framebuffer", fmt.Sprintf("%dx%d", width, height),
		"sky_fallback", assets.SkyFallback)
	return NewEngine(opts...), nil
}

func newController(c config.CameraConfig) camera.CameraController {
	mode := camera.ModeOrbit
	if c.Mode == camera.ModeFreeFly.String() {
		mode = camera.ModeFreeFly
	}
	return camera.NewCameraController(
		camera.WithMode(mode),
		camera.WithRadius(c.OrbitRadius),
		camera.WithHeight(c.OrbitHeight),
		camera.WithOrbitSpeed(c.OrbitSpeed),
		camera.WithMoveSpeed(c.MoveSpeed),
		camera.WithMouseSensitivity(c.MouseSensitivity))
}

// textureUploader is the part of the renderer that creates sampled textures. The uploader
// keeps ownership of what it creates and frees it when it is released.
type textureUploader interface {
	CreateTextureView(label string, data common.TextureStagingData) (*wgpu.TextureView, error)
	CreateCubeTextureView(label string, data common.CubemapStagingData) (*wgpu.TextureView, error)
	CreateSampler(label string, data common.SamplerStagingData) (*wgpu.Sampler, error)
}

// uploadTextures creates the scene's views and samplers. They stay owned by up.
func uploadTextures(up textureUploader, set loader.AssetSet) (scene.Textures, error) {
	var t scene.Textures
	for _, slot := range []struct {
		dst  **wgpu.TextureView
		name string
	}{
		{&t.Grass, loader.TextureGrass},
		{&t.Sand, loader.TextureSand},
		{&t.Noise, loader.TextureNoise},
		{&t.NoiseNormal, loader.TextureNoiseNormal},
		{&t.Caustic, loader.TextureCaustic},
		{&t.Subsurface, loader.TextureSubsurface},
	} {
		a, ok := set.Textures[slot.name]
		if !ok {
			return t, fmt.Errorf("engine: texture %s was not loaded", slot.name)
		}
		v, err := up.CreateTextureView(slot.name, a.Data)
		if err != nil {
			return t, fmt.Errorf("engine: texture %s: %w", slot.name, err)
		}
		*slot.dst = v
	}

	var err error
	if t.Sky, err = up.CreateCubeTextureView("sky", set.Sky); err != nil {
		return t, fmt.Errorf("engine: sky: %w", err)
	}
	if t.Repeat, err = up.CreateSampler("repeat", common.RepeatSampler); err != nil {
		return t, fmt.Errorf("engine: sampler: %w", err)
	}
	if t.Clamp, err = up.CreateSampler("clamp", common.ClampSampler); err != nil {
		return t, fmt.Errorf("engine: sampler: %w", err)
	}
	return t, nil
}

// releaseStack runs cleanup functions in reverse registration order, once.
type releaseStack []func()

func (s *releaseStack) push(fns ...func()) {
	*s = append(*s, fns...)
}

func (s *releaseStack) run() {
	for i := len(*s) - 1; i >= 0; i-- {
		(*s)[i]()
	}
	*s = nil
}
