package window

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-water/common"
)

// mouseButtons bounds the tracked mouse buttons; GLFW defines eight.
const mouseButtons = 8

// InputSnapshot is the keyboard and mouse state captured by one PollInput call.
// It is a value; holding on to it never observes later input.
type InputSnapshot struct {
	down    [common.MaxKeyCode]bool
	pressed [common.MaxKeyCode]bool
	buttons [mouseButtons]bool

	// MouseDX and MouseDY are the cursor movement in pixels since the previous poll.
	MouseDX, MouseDY float32
	// Scroll is the vertical wheel movement since the previous poll.
	Scroll float32
	// CloseRequested is set once the window has been asked to close.
	CloseRequested bool
}

// Down reports whether key is held.
func (s InputSnapshot) Down(key int) bool {
	return key >= 0 && key < len(s.down) && s.down[key]
}

// Pressed reports whether key went down since the previous poll. Auto-repeat does not count.
func (s InputSnapshot) Pressed(key int) bool {
	return key >= 0 && key < len(s.pressed) && s.pressed[key]
}

// MouseDown reports whether a mouse button is held.
func (s InputSnapshot) MouseDown(button int) bool {
	return button >= 0 && button < len(s.buttons) && s.buttons[button]
}

// inputState accumulates window events between polls. GLFW callbacks write to it
// and PollInput drains it into an InputSnapshot.
type inputState struct {
	mu *sync.Mutex

	down    [common.MaxKeyCode]bool
	pressed [common.MaxKeyCode]bool
	buttons [mouseButtons]bool

	lastX, lastY float64
	hasCursor    bool
	dx, dy       float64
	scroll       float64
}

func newInputState() *inputState {
	return &inputState{mu: &sync.Mutex{}}
}

func (s *inputState) key(code int, down bool) {
	if code < 0 || code >= common.MaxKeyCode {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if down && !s.down[code] {
		s.pressed[code] = true
	}
	s.down[code] = down
}

func (s *inputState) button(b int, down bool) {
	if b < 0 || b >= mouseButtons {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons[b] = down
}

func (s *inputState) cursor(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCursor {
		s.dx += x - s.lastX
		s.dy += y - s.lastY
	}
	s.lastX, s.lastY = x, y
	s.hasCursor = true
}

func (s *inputState) wheel(y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll += y
}

// snapshot copies the current state and clears the per-poll edges and deltas.
func (s *inputState) snapshot(closing bool) InputSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := InputSnapshot{
		down:           s.down,
		pressed:        s.pressed,
		buttons:        s.buttons,
		MouseDX:        float32(s.dx),
		MouseDY:        float32(s.dy),
		Scroll:         float32(s.scroll),
		CloseRequested: closing,
	}
	s.pressed = [common.MaxKeyCode]bool{}
	s.dx, s.dy, s.scroll = 0, 0, 0
	return snap
}

// Press returns a copy of s with keys held and newly pressed, for scripting input.
func (s InputSnapshot) Press(keys ...int) InputSnapshot {
	for _, k := range keys {
		if k >= 0 && k < len(s.down) {
			s.down[k], s.pressed[k] = true, true
		}
	}
	return s
}

// Hold returns a copy of s with keys held but not newly pressed.
func (s InputSnapshot) Hold(keys ...int) InputSnapshot {
	for _, k := range keys {
		if k >= 0 && k < len(s.down) {
			s.down[k] = true
		}
	}
	return s
}

// HoldButton returns a copy of s with a mouse button held.
func (s InputSnapshot) HoldButton(button int) InputSnapshot {
	if button >= 0 && button < len(s.buttons) {
		s.buttons[button] = true
	}
	return s
}
