package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200, cfg.Simulation.Resolution)
	assert.Equal(t, 1200, cfg.Window.Width)
	assert.Equal(t, 800, cfg.Window.Height)
	assert.Equal(t, float32(0.1), cfg.Simulation.MaxDeltaTime)
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := Parse([]byte(`
[simulation]
resolution = 64
wave_speed = 2.5

[render]
screen_clear = [0.0, 0.0, 0.0, 1.0]

[camera]
mode = "free-fly"
`))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Simulation.Resolution)
	assert.Equal(t, float32(2.5), cfg.Simulation.WaveSpeed)
	assert.Equal(t, Color{0, 0, 0, 1}, cfg.Render.ScreenClear)
	assert.Equal(t, "free-fly", cfg.Camera.Mode)

	assert.Equal(t, Default().Simulation.Relaxation, cfg.Simulation.Relaxation)
	assert.Equal(t, Default().Window, cfg.Window)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[simulation]\nresolutoin = 64\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolutoin")
}

func TestParseRejectsBadSyntax(t *testing.T) {
	_, err := Parse([]byte("[simulation\n"))
	assert.Error(t, err)
}

func TestValidateJoinsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Resolution = 0
	cfg.Render.BackgroundClear = Color{2, 0, 0, 1}
	cfg.Camera.Mode = "chase"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	msg := err.Error()
	assert.Contains(t, msg, "simulation.resolution")
	assert.Contains(t, msg, "render.background_clear")
	assert.Contains(t, msg, `"chase"`)
	assert.NotContains(t, msg, "window size")
}

func TestMarshalRoundTripsThroughParse(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Resolution = 32
	data, err := cfg.Marshal()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestRestartRequired(t *testing.T) {
	cur := Default()
	next := cur
	next.Simulation.WaveSpeed = 3
	next.Render.GrassScale = 10
	assert.Empty(t, cur.RestartRequired(next))

	next.Simulation.Resolution = 100
	next.Assets.Root = "elsewhere"
	assert.Equal(t, []string{"simulation.resolution", "assets.root"}, cur.RestartRequired(next))
}

func TestWatchDeliversValidEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oxywater.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nwave_speed = 1.0\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := Watch(ctx, path)
	require.NoError(t, err)

	// an invalid edit is skipped, the valid one after it arrives
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nresolution = -1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nwave_speed = 4.0\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			require.NoError(t, cfg.Validate())
			if cfg.Simulation.WaveSpeed == 4 {
				cancel()
				for range updates {
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oxywater.toml")

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := Watch(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644))
	select {
	case cfg := <-updates:
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	_, open := <-updates
	for open {
		_, open = <-updates
	}
}
