package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFov is the vertical field of view, 45 degrees.
const DefaultFov = 45.0 * math.Pi / 180.0

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov    float32
	width  int
	height int
	near   float32
	far    float32

	position                    mgl32.Vec3
	viewMatrix                  mgl32.Mat4
	projectionMatrix            mgl32.Mat4
	viewProjectionMatrix        mgl32.Mat4
	inverseViewProjectionMatrix mgl32.Mat4

	controller CameraController
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and computes view/projection matrices
// from an attached CameraController each frame via Update().
type Camera interface {
	// Up returns the camera's up vector.
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height) of the configured framebuffer.
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the world-space eye position from the last Update.
	Position() mgl32.Vec3

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix in WebGPU clip space.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view.
	ViewProjectionMatrix() mgl32.Mat4

	// InverseViewProjectionMatrix returns the inverse of ViewProjectionMatrix, used by the sky
	// pass to turn screen positions back into view directions.
	InverseViewProjectionMatrix() mgl32.Mat4

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// SetController attaches a controller. The matrices follow it from the next Update.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// Update advances the controller with this frame's input and recomputes the matrices.
	// If no controller is attached only the projection is refreshed.
	//
	// Parameters:
	//   - input: the movement and look state for this frame
	//   - dt: frame delta in seconds
	//   - elapsed: total time in seconds
	Update(input Input, dt, elapsed float32)

	// SetFramebufferSize sets the aspect ratio from the framebuffer dimensions.
	//
	// Parameters:
	//   - width, height: framebuffer size in pixels
	SetFramebufferSize(width, height int)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetClipPlanes sets the near and far clipping plane distances.
	SetClipPlanes(near, far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the default perspective settings
// (45 degree field of view, near 0.001, far 100).
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    DefaultFov,
		width:  1,
		height: 1,
		near:   0.001,
		far:    100,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float32(c.width) / float32(c.height)
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewProjectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update(input Input, dt, elapsed float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.controller.Update(input, dt, elapsed)
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetFramebufferSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
	c.updateMatrices()
}

// updateMatrices recalculates every matrix from the controller pose.
// The view matrix is left unchanged while no controller is attached. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		c.position = c.controller.Position()
		c.viewMatrix = common.LookAt(c.position, c.controller.Target(), c.up)
	} else if c.viewMatrix == (mgl32.Mat4{}) {
		c.viewMatrix = mgl32.Ident4()
	}

	c.projectionMatrix = common.PerspectiveFov(c.fov, float32(c.width), float32(c.height), c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.inverseViewProjectionMatrix = c.viewProjectionMatrix.Inv()
}
