// Package config loads the demo's TOML configuration and watches it for live edits.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the file the binary reads when -config is not given.
const DefaultPath = "oxywater.toml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Color is an RGBA color with components in [0, 1].
type Color [4]float64

// Config is the full demo configuration.
type Config struct {
	Window     WindowConfig     `toml:"window"`
	Simulation SimulationConfig `toml:"simulation"`
	Render     RenderConfig     `toml:"render"`
	Assets     AssetsConfig     `toml:"assets"`
	Camera     CameraConfig     `toml:"camera"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type SimulationConfig struct {
	// Resolution is the number of grid cells per side of both meshes.
	Resolution     int     `toml:"resolution"`
	MaxDeltaTime   float32 `toml:"max_delta_time"`
	Relaxation     float32 `toml:"relaxation"`
	WaveAmplitude  float32 `toml:"wave_amplitude"`
	WaveSpeed      float32 `toml:"wave_speed"`
	NoiseScale     float32 `toml:"noise_scale"`
	NoiseAmplitude float32 `toml:"noise_amplitude"`
	ShorelineDepth float32 `toml:"shoreline_depth"`
	TerrainSeed    int64   `toml:"terrain_seed"`
}

type RenderConfig struct {
	TopViewSize     int     `toml:"top_view_size"`
	WaterMapSize    int     `toml:"water_map_size"`
	BackgroundClear Color   `toml:"background_clear"`
	ScreenClear     Color   `toml:"screen_clear"`
	GrassScale      float32 `toml:"grass_scale"`
	SandScale       float32 `toml:"sand_scale"`
	NormalLength    float32 `toml:"normal_length"`
}

type AssetsConfig struct {
	Root string `toml:"root"`
}

type CameraConfig struct {
	// Mode is "orbit" or "free-fly".
	Mode             string  `toml:"mode"`
	Fov              float32 `toml:"fov"`
	OrbitRadius      float32 `toml:"orbit_radius"`
	OrbitHeight      float32 `toml:"orbit_height"`
	OrbitSpeed       float32 `toml:"orbit_speed"`
	MoveSpeed        float32 `toml:"move_speed"`
	MouseSensitivity float32 `toml:"mouse_sensitivity"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Window: WindowConfig{Title: "oxy water", Width: 1200, Height: 800, VSync: true},
		Simulation: SimulationConfig{
			Resolution:     200,
			MaxDeltaTime:   0.1,
			Relaxation:     6,
			WaveAmplitude:  0.0025,
			WaveSpeed:      1,
			NoiseScale:     2,
			NoiseAmplitude: 0.0015,
			ShorelineDepth: 0.05,
		},
		Render: RenderConfig{
			TopViewSize:     1024,
			WaterMapSize:    1024,
			BackgroundClear: Color{0.1, 0.5, 0.2, 1},
			ScreenClear:     Color{0.5, 0.5, 0.2, 1},
			GrassScale:      24,
			SandScale:       36,
			NormalLength:    0.01,
		},
		Assets: AssetsConfig{Root: "assets"},
		Camera: CameraConfig{
			Mode:             "orbit",
			Fov:              45,
			OrbitRadius:      0.8,
			OrbitHeight:      0.2,
			OrbitSpeed:       0.2,
			MoveSpeed:        0.6,
			MouseSensitivity: 0.002,
		},
	}
}

// Load reads and validates the file at path. A missing file yields Default.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the parsed configuration, defaults filled in for omitted keys
//   - error: read, parse or validation failure
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over Default and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: parse or validation failure
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)

	s := c.Simulation
	check(s.Resolution >= 1, "simulation.resolution must be at least 1, got %d", s.Resolution)
	check(s.MaxDeltaTime > 0, "simulation.max_delta_time must be positive, got %g", s.MaxDeltaTime)
	check(s.Relaxation >= 0, "simulation.relaxation must not be negative, got %g", s.Relaxation)
	check(s.WaveSpeed >= 0, "simulation.wave_speed must not be negative, got %g", s.WaveSpeed)
	check(s.NoiseScale > 0, "simulation.noise_scale must be positive, got %g", s.NoiseScale)
	check(s.ShorelineDepth > 0, "simulation.shoreline_depth must be positive, got %g", s.ShorelineDepth)

	r := c.Render
	check(r.TopViewSize > 0, "render.top_view_size must be positive, got %d", r.TopViewSize)
	check(r.WaterMapSize > 0, "render.water_map_size must be positive, got %d", r.WaterMapSize)
	check(r.BackgroundClear.valid(), "render.background_clear components must be in [0, 1], got %v", r.BackgroundClear)
	check(r.ScreenClear.valid(), "render.screen_clear components must be in [0, 1], got %v", r.ScreenClear)
	check(r.GrassScale > 0 && r.SandScale > 0, "render texture scales must be positive, got %g and %g", r.GrassScale, r.SandScale)
	check(r.NormalLength > 0, "render.normal_length must be positive, got %g", r.NormalLength)

	check(c.Assets.Root != "", "assets.root must not be empty")

	cam := c.Camera
	check(cam.Mode == "orbit" || cam.Mode == "free-fly", "camera.mode must be orbit or free-fly, got %q", cam.Mode)
	check(cam.Fov > 0 && cam.Fov < 180, "camera.fov must be in (0, 180), got %g", cam.Fov)
	check(cam.OrbitRadius > 0, "camera.orbit_radius must be positive, got %g", cam.OrbitRadius)
	check(cam.MoveSpeed >= 0 && cam.MouseSensitivity >= 0, "camera speeds must not be negative")

	return errors.Join(errs...)
}

// RestartRequired lists the keys that differ between c and next but only take effect
// at startup because they size GPU resources or the loaded assets.
func (c Config) RestartRequired(next Config) []string {
	var keys []string
	if c.Simulation.Resolution != next.Simulation.Resolution {
		keys = append(keys, "simulation.resolution")
	}
	if c.Simulation.TerrainSeed != next.Simulation.TerrainSeed {
		keys = append(keys, "simulation.terrain_seed")
	}
	if c.Render.TopViewSize != next.Render.TopViewSize {
		keys = append(keys, "render.top_view_size")
	}
	if c.Render.WaterMapSize != next.Render.WaterMapSize {
		keys = append(keys, "render.water_map_size")
	}
	if c.Assets.Root != next.Assets.Root {
		keys = append(keys, "assets.root")
	}
	if c.Window.Width != next.Window.Width || c.Window.Height != next.Window.Height {
		keys = append(keys, "window.size")
	}
	return keys
}

func (c Color) valid() bool {
	for _, v := range c {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}
