package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/Carmen-Shannon/oxy-water/engine/camera"
	"github.com/Carmen-Shannon/oxy-water/engine/config"
	"github.com/Carmen-Shannon/oxy-water/engine/profiler"
	"github.com/Carmen-Shannon/oxy-water/engine/renderer"
	"github.com/Carmen-Shannon/oxy-water/engine/scene"
	"github.com/Carmen-Shannon/oxy-water/engine/simulation"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
	"github.com/Carmen-Shannon/oxy-water/engine/window"
	"github.com/chewxy/math32"
)

// ErrIncomplete is returned by Run and Step when a collaborator was never provided.
var ErrIncomplete = errors.New("engine: missing collaborator")

// Window is the part of window.Window the frame loop drives.
type Window interface {
	PollInput() window.InputSnapshot
	IsRunning() bool
	RequestClose()
	SetTitle(title string)
	SetResizeCallback(callback func(width, height int))
	FramebufferSize() (int, int)
}

// Presenter shows the finished frame.
type Presenter interface {
	Present()
	SetPresentMode(mode renderer.PresentMode)
}

// Simulator advances the water surface.
type Simulator interface {
	Params() simulation.Params
	SetParams(p simulation.Params)
	Simulate(mesh, terrain surface_mesh.SurfaceMesh, dt, elapsed float32) error
}

// Scene renders one frame of the passes.
type Scene interface {
	RenderFrame(view scene.Viewer, dt, elapsed float32) error
	OnResize(width, height int)
	RenderMode() scene.RenderMode
	SetRenderMode(mode scene.RenderMode)
	Wireframe() bool
	SetWireframe(enabled bool)
	NormalsOverlay() bool
	SetNormalsOverlay(enabled bool)
	Settings() scene.Settings
	SetSettings(settings scene.Settings)
}

// modeKeys are F5 through F9, in scene.RenderModes order.
var modeKeys = []int{common.KeyF5, common.KeyF6, common.KeyF7, common.KeyF8, common.KeyF9}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	window    Window
	presenter Presenter
	simulator Simulator
	scene     Scene
	camera    camera.Camera
	water     surface_mesh.SurfaceMesh
	terrain   surface_mesh.SurfaceMesh

	profiler         *profiler.Profiler
	profilingEnabled bool

	config  config.Config
	reloads <-chan config.Config

	now         func() time.Time
	start, last time.Time
	started     bool
	frames      uint64

	releasers releaseStack
}

// Engine runs the water demo frame loop.
type Engine interface {
	// Run steps frames until the window closes or ctx is cancelled. A panic inside a frame is
	// recovered, logged and returned as an error.
	//
	// Parameters:
	//   - ctx: stops the loop
	//
	// Returns:
	//   - error: nil on a normal close, ctx's error on cancellation, or the frame's error
	Run(ctx context.Context) error

	// Step runs one frame: poll input, apply a pending config reload, handle toggles, update the
	// camera, simulate, render, swap the water mesh, present and tick the profiler.
	//
	// Returns:
	//   - error: a simulation or render error; nothing is presented when one occurs
	Step() error

	// Frames returns the number of frames presented.
	Frames() uint64

	// Config returns the configuration currently applied.
	Config() config.Config

	// ApplyConfig applies the live tunables of cfg immediately. Keys that size GPU resources
	// are logged and kept until restart.
	ApplyConfig(cfg config.Config)

	// EnableProfiler enables the frame rate log and title.
	EnableProfiler()

	// DisableProfiler disables the frame rate log and title.
	DisableProfiler()

	// Quit asks the window to close; Run returns after the current frame.
	Quit()

	// Release frees the GPU resources the engine was given ownership of.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates an Engine from its collaborators.
//
// Parameters:
//   - options: functional options providing the window, scene, simulator and the rest
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: true,
		config:           config.Default(),
		now:              time.Now,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.onResize)
		if e.camera != nil {
			e.camera.SetFramebufferSize(e.window.FramebufferSize())
		}
	}
	return e
}

func (e *engine) onResize(width, height int) {
	if e.scene != nil {
		e.scene.OnResize(width, height)
	}
	if e.camera != nil {
		e.camera.SetFramebufferSize(width, height)
	}
}

func (e *engine) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("frame loop recovered from panic", "panic", r)
			err = fmt.Errorf("engine: panic: %v", r)
		}
	}()

	if e.window == nil {
		return fmt.Errorf("%w: window", ErrIncomplete)
	}
	for e.window.IsRunning() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) Step() error {
	if err := e.complete(); err != nil {
		return err
	}

	input := e.window.PollInput()
	if input.CloseRequested {
		return nil
	}
	e.drainReloads()
	if e.handleKeys(input) {
		return nil
	}

	dt, elapsed := e.tick()
	e.camera.Update(cameraInput(input), dt, elapsed)

	if err := e.simulator.Simulate(e.water, e.terrain, dt, elapsed); err != nil {
		return fmt.Errorf("engine: simulate: %w", err)
	}
	if err := e.scene.RenderFrame(e.camera, dt, elapsed); err != nil {
		return fmt.Errorf("engine: render: %w", err)
	}
	e.water.Swap()
	e.presenter.Present()

	e.mu.Lock()
	e.frames++
	profiling := e.profilingEnabled
	e.mu.Unlock()
	if profiling {
		if fps, ok := e.profiler.Tick(); ok {
			e.window.SetTitle(profiler.Title(e.Config().Window.Title, fps))
		}
	}
	return nil
}

func (e *engine) complete() error {
	var missing []string
	for name, ok := range map[string]bool{
		"window":    e.window != nil,
		"presenter": e.presenter != nil,
		"simulator": e.simulator != nil,
		"scene":     e.scene != nil,
		"camera":    e.camera != nil,
		"water":     e.water != nil,
		"terrain":   e.terrain != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrIncomplete, missing)
	}
	return nil
}

// tick advances the clock. The first frame has dt 0; dt is clamped by the simulation limit.
func (e *engine) tick() (dt, elapsed float32) {
	now := e.now()
	if !e.started {
		e.start, e.last, e.started = now, now, true
	}
	raw := float32(now.Sub(e.last).Seconds())
	e.last = now
	elapsed = float32(now.Sub(e.start).Seconds())
	return simulation.ClampDeltaTime(raw, e.simulator.Params().MaxDeltaTime), elapsed
}

// handleKeys applies the debug toggles and reports whether the window is closing.
func (e *engine) handleKeys(in window.InputSnapshot) bool {
	if in.Pressed(common.KeyEsc) {
		e.window.RequestClose()
		return true
	}
	if in.Pressed(common.KeyF1) {
		e.scene.SetWireframe(!e.scene.Wireframe())
	}
	if in.Pressed(common.KeyF2) {
		e.scene.SetNormalsOverlay(!e.scene.NormalsOverlay())
	}
	if in.Pressed(common.KeyF3) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			next := camera.ModeFreeFly
			if ctrl.Mode() == camera.ModeFreeFly {
				next = camera.ModeOrbit
			}
			ctrl.SetMode(next)
			slog.Info("camera mode", "mode", next.String())
		}
	}
	for i, key := range modeKeys {
		mode := scene.RenderModes[i]
		if in.Pressed(key) && e.scene.RenderMode() != mode {
			e.scene.SetRenderMode(mode)
			slog.Info("render mode", "mode", mode.String())
		}
	}
	return false
}

func cameraInput(in window.InputSnapshot) camera.Input {
	return camera.Input{
		Forward: in.Down(common.KeyW),
		Back:    in.Down(common.KeyS),
		Left:    in.Down(common.KeyA),
		Right:   in.Down(common.KeyD),
		Up:      in.Down(common.KeySpace),
		Down:    in.Down(common.KeyLeftShift) || in.Down(common.KeyRightShift),
		Look:    in.MouseDown(common.MouseButtonRight),
		MouseDX: in.MouseDX,
		MouseDY: in.MouseDY,
	}
}

// drainReloads applies the newest pending config, if any.
func (e *engine) drainReloads() {
	if e.reloads == nil {
		return
	}
	select {
	case cfg, ok := <-e.reloads:
		if !ok {
			e.reloads = nil
			return
		}
		e.ApplyConfig(cfg)
	default:
	}
}

func (e *engine) ApplyConfig(cfg config.Config) {
	e.mu.Lock()
	prev := e.config
	if keys := prev.RestartRequired(cfg); len(keys) > 0 {
		slog.Warn("config changes take effect after restart", "keys", keys)
		cfg = keepStartupKeys(prev, cfg)
	}
	e.config = cfg
	e.mu.Unlock()

	if e.simulator != nil {
		e.simulator.SetParams(SimulationParams(cfg.Simulation))
	}
	if e.scene != nil {
		e.scene.SetSettings(SceneSettings(e.scene.Settings(), cfg.Render))
	}
	if e.camera != nil {
		e.camera.SetFov(cfg.Camera.Fov * math32.Pi / 180)
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.SetOrbitSpeed(cfg.Camera.OrbitSpeed)
			ctrl.SetMoveSpeed(cfg.Camera.MoveSpeed)
			ctrl.SetMouseSensitivity(cfg.Camera.MouseSensitivity)
		}
	}
	if e.presenter != nil && prev.Window.VSync != cfg.Window.VSync {
		e.presenter.SetPresentMode(renderer.PresentModeFor(cfg.Window.VSync))
	}
	slog.Info("config applied")
}

// keepStartupKeys copies the keys that only apply at startup from prev into next.
func keepStartupKeys(prev, next config.Config) config.Config {
	next.Simulation.Resolution = prev.Simulation.Resolution
	next.Simulation.TerrainSeed = prev.Simulation.TerrainSeed
	next.Render.TopViewSize = prev.Render.TopViewSize
	next.Render.WaterMapSize = prev.Render.WaterMapSize
	next.Assets = prev.Assets
	next.Window.Width, next.Window.Height = prev.Window.Width, prev.Window.Height
	return next
}

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) Quit() {
	if e.window != nil {
		e.window.RequestClose()
	}
}

func (e *engine) Release() {
	e.releasers.run()
}
