package engine

import (
	"github.com/Carmen-Shannon/oxy-water/engine/config"
	"github.com/Carmen-Shannon/oxy-water/engine/scene"
	"github.com/Carmen-Shannon/oxy-water/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
)

// SimulationParams maps the [simulation] section onto the wave model constants.
func SimulationParams(c config.SimulationConfig) simulation.Params {
	return simulation.Params{
		Amplitude:      c.WaveAmplitude,
		WaveSpeed:      c.WaveSpeed,
		Relaxation:     c.Relaxation,
		NoiseScale:     c.NoiseScale,
		NoiseAmplitude: c.NoiseAmplitude,
		ShorelineDepth: c.ShorelineDepth,
		MaxDeltaTime:   c.MaxDeltaTime,
	}
}

// SceneSettings overlays the [render] tunables on base.
func SceneSettings(base scene.Settings, c config.RenderConfig) scene.Settings {
	base.BackgroundClear = toColor(c.BackgroundClear)
	base.ScreenClear = toColor(c.ScreenClear)
	base.GrassScale = c.GrassScale
	base.SandScale = c.SandScale
	base.NormalLength = c.NormalLength
	return base
}

func toColor(c config.Color) wgpu.Color {
	return wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
