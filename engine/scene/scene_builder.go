package scene

import "github.com/Carmen-Shannon/oxy-water/engine/light"

// SceneBuilderOption is a functional option for configuring a Scene via NewScene.
type SceneBuilderOption func(*scene)

// WithLight sets the light the water map is rendered from. Defaults to light.NewDirectionalLight().
//
// Parameters:
//   - l: the light
//
// Returns:
//   - SceneBuilderOption: a function that applies the light option
func WithLight(l light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.light = l
	}
}

// WithTopViewSize sets the edge length of the top view target. Non-positive sizes are ignored.
//
// Parameters:
//   - size: width and height in pixels
//
// Returns:
//   - SceneBuilderOption: a function that applies the size option
func WithTopViewSize(size int) SceneBuilderOption {
	return func(s *scene) {
		if size > 0 {
			s.topViewSize = size
		}
	}
}

// WithWaterMapSize sets the edge length of the water map target. Non-positive sizes are ignored.
//
// Parameters:
//   - size: width and height in pixels
//
// Returns:
//   - SceneBuilderOption: a function that applies the size option
func WithWaterMapSize(size int) SceneBuilderOption {
	return func(s *scene) {
		if size > 0 {
			s.waterMapSize = size
		}
	}
}

// WithSettings replaces the default tunables.
//
// Parameters:
//   - settings: clear colors, texture scales and overlay style
//
// Returns:
//   - SceneBuilderOption: a function that applies the settings option
func WithSettings(settings Settings) SceneBuilderOption {
	return func(s *scene) {
		s.settings = settings
	}
}

// WithRenderMode sets the initial render mode.
func WithRenderMode(mode RenderMode) SceneBuilderOption {
	return func(s *scene) {
		s.mode = mode
	}
}
