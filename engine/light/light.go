// Package light holds the directional light the water map is rendered from.
package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// WaterMapResolution is the default edge length in texels of the water map rendered from the light.
const WaterMapResolution = 1024

// Default orthographic volume of the light: a 2x2 square around the target, depth 0.01 to 5.
const (
	DefaultHalfExtent float32 = 1
	DefaultNear       float32 = 0.01
	DefaultFar        float32 = 5
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	halfExtent float32
	near       float32
	far        float32

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// Light is a directional light with an orthographic view volume.
//
// The ground pass lights terrain from Position and projects fragments into the light's
// clip space to look up the water map, which the water map pass renders with the same
// ViewMatrix and ProjectionMatrix.
type Light interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: position as (x, y, z)
	Position() mgl32.Vec3

	// Target returns the point the light looks at.
	Target() mgl32.Vec3

	// Direction returns the normalized direction from Position toward Target.
	Direction() mgl32.Vec3

	// ViewMatrix returns lookAt(Position, Target, up).
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the orthographic projection of the light volume in WebGPU clip space.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
	ViewProjectionMatrix() mgl32.Mat4

	// SetPosition moves the light and recomputes its view matrix.
	//
	// Parameters:
	//   - position: the new world-space position
	SetPosition(position mgl32.Vec3)

	// SetVolume changes the orthographic volume.
	//
	// Parameters:
	//   - halfExtent: half-size of the square volume in world units
	//   - near: near plane distance
	//   - far: far plane distance
	SetVolume(halfExtent, near, far float32)
}

var _ Light = &lightImpl{}

// NewDirectionalLight creates the scene light. By default it sits at (-1, 1, -1) looking at
// the origin with up (0, 1, 0) and the DefaultHalfExtent volume.
//
// Parameters:
//   - opts: functional options to configure the light
//
// Returns:
//   - Light: the new light
func NewDirectionalLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:         &sync.Mutex{},
		position:   mgl32.Vec3{-1, 1, -1},
		up:         mgl32.Vec3{0, 1, 0},
		halfExtent: DefaultHalfExtent,
		near:       DefaultNear,
		far:        DefaultFar,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.update()
	return l
}

func (l *lightImpl) Position() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Target() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.target.Sub(l.position)
	if d.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}

func (l *lightImpl) ViewMatrix() mgl32.Mat4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view
}

func (l *lightImpl) ProjectionMatrix() mgl32.Mat4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection
}

func (l *lightImpl) ViewProjectionMatrix() mgl32.Mat4 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projection.Mul4(l.view)
}

func (l *lightImpl) SetPosition(position mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = position
	l.update()
}

func (l *lightImpl) SetVolume(halfExtent, near, far float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.halfExtent, l.near, l.far = halfExtent, near, far
	l.update()
}

// update recomputes both matrices. Caller must hold the mutex.
func (l *lightImpl) update() {
	up := l.up
	dir := l.target.Sub(l.position)
	// LookAt degenerates when the light looks along its up vector.
	if dir.Len() > 0 && math32.Abs(dir.Normalize().Dot(up.Normalize())) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}
	l.view = common.LookAt(l.position, l.target, up)
	l.projection = common.Ortho(-l.halfExtent, l.halfExtent, -l.halfExtent, l.halfExtent, l.near, l.far)
}
