package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// maxPitch keeps the free-fly view just short of straight up or down, where LookAt degenerates.
const maxPitch = 89 * math32.Pi / 180

var worldUp = mgl32.Vec3{0, 1, 0}

type cameraControllerImpl struct {
	mu *sync.Mutex

	mode Mode

	position mgl32.Vec3
	target   mgl32.Vec3

	// Orbit: eye at (cos(a) r, height, sin(a) r) with a = elapsed * orbitSpeed, looking at orbitTarget.
	radius      float32
	height      float32
	orbitSpeed  float32
	orbitTarget mgl32.Vec3

	// Free-fly: yaw 0 looks down -Z, positive pitch looks up.
	yaw              float32
	pitch            float32
	moveSpeed        float32
	mouseSensitivity float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a controller with the defaults: orbit radius 0.8, height 0.2,
// 0.2 rad/s looking at (0, -0.2, 0); free-fly at 0.6 units/s and 0.002 rad per pixel.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:               &sync.Mutex{},
		radius:           0.8,
		height:           0.2,
		orbitSpeed:       0.2,
		orbitTarget:      mgl32.Vec3{0, -0.2, 0},
		moveSpeed:        0.6,
		mouseSensitivity: 0.002,
	}
	for _, opt := range options {
		opt(cc)
	}
	cc.orbit(0)
	if cc.mode == ModeFreeFly {
		cc.adoptPose(cc.position, cc.target)
	}
	return cc
}

// NewOrbitController creates a controller that starts in ModeOrbit.
func NewOrbitController(options ...CameraControllerOption) CameraController {
	return NewCameraController(append([]CameraControllerOption{WithMode(ModeOrbit)}, options...)...)
}

// NewFreeFlyController creates a controller that starts in ModeFreeFly at the orbit's
// starting pose.
func NewFreeFlyController(options ...CameraControllerOption) CameraController {
	return NewCameraController(append([]CameraControllerOption{WithMode(ModeFreeFly)}, options...)...)
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) Mode() Mode {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mode
}

func (cc *cameraControllerImpl) SetMode(mode Mode) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if mode == cc.mode {
		return
	}
	cc.mode = mode
	if mode == ModeFreeFly {
		cc.adoptPose(cc.position, cc.target)
	}
}

func (cc *cameraControllerImpl) SetPose(position, target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.adoptPose(position, target)
}

func (cc *cameraControllerImpl) Update(input Input, dt, elapsed float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	switch cc.mode {
	case ModeFreeFly:
		cc.fly(input, dt)
	default:
		cc.orbit(elapsed)
	}
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) OrbitSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.orbitSpeed
}

func (cc *cameraControllerImpl) SetOrbitSpeed(speed float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbitSpeed = speed
}

func (cc *cameraControllerImpl) MoveSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.moveSpeed
}

func (cc *cameraControllerImpl) SetMoveSpeed(speed float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.moveSpeed = speed
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

func (cc *cameraControllerImpl) SetMouseSensitivity(sensitivity float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.mouseSensitivity = sensitivity
}

// orbit places the eye on the orbit circle for the given time. Caller must hold the mutex.
func (cc *cameraControllerImpl) orbit(elapsed float32) {
	a := elapsed * cc.orbitSpeed
	cc.position = mgl32.Vec3{math32.Cos(a) * cc.radius, cc.height, math32.Sin(a) * cc.radius}
	cc.target = cc.orbitTarget
}

// adoptPose derives yaw and pitch from a position and target. Caller must hold the mutex.
func (cc *cameraControllerImpl) adoptPose(position, target mgl32.Vec3) {
	cc.position = position
	dir := target.Sub(position)
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, 0, -1}
	}
	dir = dir.Normalize()
	cc.pitch = mgl32.Clamp(math32.Asin(dir.Y()), -maxPitch, maxPitch)
	cc.yaw = math32.Atan2(dir.X(), -dir.Z())
	cc.target = cc.position.Add(cc.forward())
}

func (cc *cameraControllerImpl) forward() mgl32.Vec3 {
	cp := math32.Cos(cc.pitch)
	return mgl32.Vec3{cp * math32.Sin(cc.yaw), math32.Sin(cc.pitch), -cp * math32.Cos(cc.yaw)}
}

// fly applies one frame of free-fly movement. Caller must hold the mutex.
func (cc *cameraControllerImpl) fly(in Input, dt float32) {
	if in.Look {
		cc.yaw += in.MouseDX * cc.mouseSensitivity
		cc.pitch = mgl32.Clamp(cc.pitch-in.MouseDY*cc.mouseSensitivity, -maxPitch, maxPitch)
	}

	fwd := cc.forward()
	right := fwd.Cross(worldUp).Normalize()

	var move mgl32.Vec3
	if in.Forward {
		move = move.Add(fwd)
	}
	if in.Back {
		move = move.Sub(fwd)
	}
	if in.Right {
		move = move.Add(right)
	}
	if in.Left {
		move = move.Sub(right)
	}
	if in.Up {
		move = move.Add(worldUp)
	}
	if in.Down {
		move = move.Sub(worldUp)
	}
	if move.Len() > 0 {
		cc.position = cc.position.Add(move.Normalize().Mul(cc.moveSpeed * dt))
	}
	cc.target = cc.position.Add(fwd)
}
