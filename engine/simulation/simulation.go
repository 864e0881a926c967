// Package simulation advances the water surface one step per frame.
//
// The GPU kernel (assets/shaders/simulate.wgsl) and the CPU Stepper evaluate the same update:
// each vertex relaxes toward a target height built from four travelling sine waves plus a noise
// texture sample, attenuated near the shore. Positions are read from the mesh's current slot
// and written to its next slot; normals are recomputed from the current slot.
package simulation

import (
	"errors"
	"math"

	"github.com/chewxy/math32"
)

var (
	// ErrResolutionMismatch is returned when the water mesh, the terrain mesh and the configured
	// grid dimension do not agree.
	ErrResolutionMismatch = errors.New("simulation: resolution mismatch")
	// ErrUnboundBuffer is returned when one of the storage slots 0-3 has no GPU buffer.
	ErrUnboundBuffer = errors.New("simulation: storage buffer not bound")
	// ErrUnboundTexture is returned when the noise texture has not been set.
	ErrUnboundTexture = errors.New("simulation: noise texture not bound")
)

// DefaultMaxDeltaTime is the largest time step the simulation takes in one frame.
const DefaultMaxDeltaTime float32 = 0.1

// Params are the tunable constants of the wave model.
type Params struct {
	// Amplitude scales the summed sine waves.
	Amplitude float32
	// WaveSpeed scales the phase advance per second.
	WaveSpeed float32
	// Relaxation is the rate, per second, at which a vertex approaches its target height.
	Relaxation float32
	// NoiseScale is how many noise texture repeats span the unit square.
	NoiseScale float32
	// NoiseAmplitude scales the noise perturbation.
	NoiseAmplitude float32
	// ShorelineDepth is the terrain depth below y = 0 over which waves fade in.
	ShorelineDepth float32
	// MaxDeltaTime clamps frame hitches; zero means DefaultMaxDeltaTime.
	MaxDeltaTime float32
}

// DefaultParams returns the wave model constants used by the demo.
func DefaultParams() Params {
	return Params{
		Amplitude:      0.0025,
		WaveSpeed:      1.0,
		Relaxation:     6.0,
		NoiseScale:     2.0,
		NoiseAmplitude: 0.0015,
		ShorelineDepth: 0.05,
		MaxDeltaTime:   DefaultMaxDeltaTime,
	}
}

// ClampDeltaTime limits dt to [0, limit]. NaN and negative values become 0 and a
// non-positive limit falls back to DefaultMaxDeltaTime.
//
// Parameters:
//   - dt: the raw frame delta in seconds
//   - limit: the upper bound in seconds
//
// Returns:
//   - float32: the clamped delta
func ClampDeltaTime(dt, limit float32) float32 {
	if limit <= 0 || math32.IsNaN(limit) {
		limit = DefaultMaxDeltaTime
	}
	if math32.IsNaN(dt) || dt < 0 {
		return 0
	}
	if math32.IsInf(dt, 1) || dt > limit {
		return limit
	}
	return dt
}

// Uniforms mirrors SimulationUniforms in simulate.wgsl, 48 bytes.
type Uniforms struct {
	Dimension      uint32
	DeltaTime      float32
	Time           float32
	Relaxation     float32
	Amplitude      float32
	WaveSpeed      float32
	NoiseScale     float32
	NoiseAmplitude float32
	ShorelineDepth float32
	_              [3]float32
}

// NewUniforms builds the uniform block for one step. dt is clamped here so the GPU and the
// CPU stepper always see the same value.
func NewUniforms(p Params, dimension int, dt, elapsed float32) Uniforms {
	return Uniforms{
		Dimension:      uint32(dimension),
		DeltaTime:      ClampDeltaTime(dt, p.MaxDeltaTime),
		Time:           elapsed,
		Relaxation:     p.Relaxation,
		Amplitude:      p.Amplitude,
		WaveSpeed:      p.WaveSpeed,
		NoiseScale:     p.NoiseScale,
		NoiseAmplitude: p.NoiseAmplitude,
		ShorelineDepth: p.ShorelineDepth,
	}
}

// WorkgroupCount is the dispatch size for a grid of dimension x dimension vertices with a
// workgroup size of one.
func WorkgroupCount(dimension int) [3]uint32 {
	d := uint32(dimension)
	return [3]uint32{d, d, 1}
}

type waveTerm struct {
	dir       [2]float32
	frequency float32
	speed     float32
	weight    float32
}

var waveTerms = [4]waveTerm{
	{dir: [2]float32{1, 0}, frequency: 12, speed: 1, weight: 1},
	{dir: [2]float32{math.Sqrt2 / 2, math.Sqrt2 / 2}, frequency: 19, speed: 1.3, weight: 0.6},
	{dir: [2]float32{0, 1}, frequency: 27, speed: 1.7, weight: 0.35},
	{dir: [2]float32{-0.6, 0.8}, frequency: 41, speed: 2.3, weight: 0.2},
}

// Wave evaluates the unscaled wave sum at horizontal position (x, z) and time t.
func Wave(x, z, t, waveSpeed float32) float32 {
	s := t * waveSpeed
	var sum float32
	for _, w := range waveTerms {
		sum += math32.Sin((w.dir[0]*x+w.dir[1]*z)*w.frequency+s*w.speed) * w.weight
	}
	return sum
}

// Shore is the wave attenuation over terrain at height terrainY: 0 at or above the
// waterline, 1 once the terrain is shorelineDepth below it.
func Shore(terrainY, shorelineDepth float32) float32 {
	d := max(shorelineDepth, 1e-4)
	v := -terrainY / d
	return min(max(v, 0), 1)
}
