package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87  // W key (ASCII)
	KeyA     = 65  // A key (ASCII)
	KeyS     = 83  // S key (ASCII)
	KeyD     = 68  // D key (ASCII)
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)

	KeyLeftShift  = 340 // Left Shift (GLFW)
	KeyRightShift = 344 // Right Shift (GLFW)
)

// Function keys drive the debug toggles.
const (
	KeyF1 = 290 + iota // wireframe
	KeyF2              // normals overlay
	KeyF3              // manual camera
	KeyF4
	KeyF5 // combined output
	KeyF6 // background target
	KeyF7 // water map target
	KeyF8 // water target
	KeyF9 // top view target
)

// Mouse buttons, matching glfw.MouseButton values.
const (
	MouseButtonLeft  = 0
	MouseButtonRight = 1
)

// MaxKeyCode bounds the key state tables; GLFW's highest key is 348 (Menu).
const MaxKeyCode = 349
