package camera

import "github.com/go-gl/mathgl/mgl32"

// Mode selects how a CameraController moves.
type Mode int

const (
	// ModeOrbit circles the scene on a fixed radius and height, driven by elapsed time.
	ModeOrbit Mode = iota
	// ModeFreeFly moves with WASD, Space and Shift and looks around while the look button is held.
	ModeFreeFly
)

func (m Mode) String() string {
	switch m {
	case ModeOrbit:
		return "orbit"
	case ModeFreeFly:
		return "free-fly"
	default:
		return "unknown"
	}
}

// Input is the per-frame movement state a controller consumes. The engine fills it from the
// polled window input so controllers never touch the window directly.
type Input struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool

	// Look is true while the look button (right mouse) is held.
	Look bool
	// MouseDX and MouseDY are the cursor movement in pixels since the previous frame.
	MouseDX, MouseDY float32
}

// CameraController defines the union interface for camera control systems.
// Controllers own positional state (position, target). Camera reads from controller
// and computes view/projection matrices. A single controller supports both the automatic
// orbit and the manual free-fly mode, switching between them with SetMode.
type CameraController interface {
	// Position returns the camera's world-space position.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// Mode returns the active movement mode.
	Mode() Mode

	// SetMode switches the movement mode. Entering free-fly keeps the current pose so the
	// view does not jump.
	//
	// Parameters:
	//   - mode: the new mode
	SetMode(mode Mode)

	// SetPose places the camera at position looking at target. In orbit mode the pose is
	// overwritten by the next Update.
	//
	// Parameters:
	//   - position: the eye position
	//   - target: the look-at point
	SetPose(position, target mgl32.Vec3)

	// Update advances the controller by one frame.
	//
	// Parameters:
	//   - input: movement and look state
	//   - dt: frame delta in seconds
	//   - elapsed: total time in seconds, which drives the orbit angle
	Update(input Input, dt, elapsed float32)

	// Radius returns the orbit radius.
	Radius() float32

	// OrbitSpeed returns the orbit angular speed in radians per second.
	OrbitSpeed() float32

	// SetOrbitSpeed sets the orbit angular speed in radians per second.
	SetOrbitSpeed(speed float32)

	// MoveSpeed returns the free-fly speed in world units per second.
	MoveSpeed() float32

	// SetMoveSpeed sets the free-fly speed in world units per second.
	SetMoveSpeed(speed float32)

	// MouseSensitivity returns the look rotation in radians per pixel of mouse movement.
	MouseSensitivity() float32

	// SetMouseSensitivity sets the look rotation in radians per pixel of mouse movement.
	SetMouseSensitivity(sensitivity float32)
}
