package simulation

import "github.com/cogentcore/webgpu/wgpu"

// SimulatorBuilderOption is a functional option for configuring a Simulator.
type SimulatorBuilderOption func(*simulator)

// WithParams sets the initial wave model constants.
//
// Parameters:
//   - p: the constants
//
// Returns:
//   - SimulatorBuilderOption: option function to apply
func WithParams(p Params) SimulatorBuilderOption {
	return func(s *simulator) {
		s.params = p
	}
}

// WithResolution fixes the grid resolution the simulation accepts. Meshes of any other
// resolution are rejected with ErrResolutionMismatch. Without it the first mesh decides.
//
// Parameters:
//   - resolution: quads per side
//
// Returns:
//   - SimulatorBuilderOption: option function to apply
func WithResolution(resolution int) SimulatorBuilderOption {
	return func(s *simulator) {
		s.dimension = resolution + 1
	}
}

// WithNoiseTexture sets the noise texture bound at group 0 binding 1.
//
// Parameters:
//   - view: the noise texture view
//
// Returns:
//   - SimulatorBuilderOption: option function to apply
func WithNoiseTexture(view *wgpu.TextureView) SimulatorBuilderOption {
	return func(s *simulator) {
		s.noise = view
	}
}
