package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithMode sets the starting movement mode.
//
// Parameters:
//   - mode: ModeOrbit or ModeFreeFly
//
// Returns:
//   - CameraControllerOption: functional option to set the mode
func WithMode(mode Mode) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mode = mode
	}
}

// WithRadius sets the orbit radius.
//
// Parameters:
//   - radius: horizontal distance of the eye from the Y axis
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithHeight sets the orbit eye height.
//
// Parameters:
//   - height: world-space Y of the eye while orbiting
//
// Returns:
//   - CameraControllerOption: functional option to set the height
func WithHeight(height float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.height = height
	}
}

// WithTarget sets the point the orbit looks at.
//
// Parameters:
//   - target: world-space look-at point
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit target
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitTarget = target
	}
}

// WithOrbitSpeed sets the orbit angular speed.
//
// Parameters:
//   - speed: radians per second
//
// Returns:
//   - CameraControllerOption: functional option to set the orbit speed
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSpeed = speed
	}
}

// WithMoveSpeed sets the free-fly speed.
//
// Parameters:
//   - speed: world units per second
//
// Returns:
//   - CameraControllerOption: functional option to set the move speed
func WithMoveSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.moveSpeed = speed
	}
}

// WithMouseSensitivity sets the free-fly look sensitivity.
//
// Parameters:
//   - sensitivity: radians per pixel of mouse movement
//
// Returns:
//   - CameraControllerOption: functional option to set the mouse sensitivity
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}
