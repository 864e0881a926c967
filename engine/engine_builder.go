package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-water/engine/camera"
	"github.com/Carmen-Shannon/oxy-water/engine/config"
	"github.com/Carmen-Shannon/oxy-water/engine/profiler"
	"github.com/Carmen-Shannon/oxy-water/engine/surface_mesh"
)

// EngineBuilderOption is a functional option for configuring the engine.
type EngineBuilderOption func(*engine)

// WithWindow sets the window the engine polls and titles.
func WithWindow(w Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithPresenter sets what presents each finished frame.
func WithPresenter(p Presenter) EngineBuilderOption {
	return func(e *engine) {
		e.presenter = p
	}
}

// WithSimulator sets the water simulation.
func WithSimulator(s Simulator) EngineBuilderOption {
	return func(e *engine) {
		e.simulator = s
	}
}

// WithScene sets the pass orchestrator.
func WithScene(s Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithCamera sets the viewer.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithMeshes sets the water mesh, swapped every frame, and the static terrain mesh.
//
// Parameters:
//   - water: the simulated mesh
//   - terrain: the ground under it
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMeshes(water, terrain surface_mesh.SurfaceMesh) EngineBuilderOption {
	return func(e *engine) {
		e.water, e.terrain = water, terrain
	}
}

// WithConfig sets the configuration the engine starts with. It is not re-applied; the
// collaborators are expected to have been built from it.
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.config = cfg
	}
}

// WithConfigUpdates sets the channel of reloaded configurations, applied at frame boundaries.
func WithConfigUpdates(updates <-chan config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.reloads = updates
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithProfiling toggles the frame rate log and title.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithClock replaces time.Now for frame timing.
func WithClock(now func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		e.now = now
	}
}

// WithReleaser registers cleanup run by Release, in reverse registration order.
func WithReleaser(release func()) EngineBuilderOption {
	return func(e *engine) {
		e.releasers = append(e.releasers, release)
	}
}
