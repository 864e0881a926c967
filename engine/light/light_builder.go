package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a functional option for configuring a Light.
type LightBuilderOption func(*lightImpl)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - position: world-space position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option
func WithPosition(position mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = position
	}
}

// WithTarget sets the point the light looks at.
//
// Parameters:
//   - target: world-space look-at point
//
// Returns:
//   - LightBuilderOption: a function that applies the target option
func WithTarget(target mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.target = target
	}
}

// WithUp sets the up vector of the light's view.
func WithUp(up mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.up = up
	}
}

// WithVolume sets the orthographic volume of the light.
//
// Parameters:
//   - halfExtent: half-size of the square volume in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - LightBuilderOption: a function that applies the volume option
func WithVolume(halfExtent, near, far float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.halfExtent, l.near, l.far = halfExtent, near, far
	}
}
