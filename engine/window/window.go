package window

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides the platform window the water demo renders into.
// Input is not pushed to callbacks; the frame loop polls it once per frame.
type Window interface {
	// PollInput processes pending window events and returns the input captured since the previous call.
	//
	// Returns:
	//   - InputSnapshot: keyboard, mouse and close state for this frame
	PollInput() InputSnapshot

	// SetResizeCallback sets the function called when the framebuffer is resized.
	// It runs inside PollInput, on the thread that owns the window.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// FramebufferSize returns the drawable size in pixels, which differs from the window size on high-DPI displays.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	FramebufferSize() (int, int)

	// SetTitle replaces the title bar text.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// Title returns the current title.
	Title() string

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// RequestClose marks the window for closing; IsRunning turns false and the next snapshot
	// has CloseRequested set.
	RequestClose()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu *sync.Mutex

	title string

	width, height       int
	minWidth, minHeight int
	maxWidth, maxHeight int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	input    *inputState
	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window. It panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		mu:        &sync.Mutex{},
		title:     "oxy water",
		width:     1200,
		height:    800,
		minWidth:  320,
		minHeight: 200,
		maxWidth:  sizeUnlimited,
		maxHeight: sizeUnlimited,
		input:     newInputState(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) PollInput() InputSnapshot {
	platformPollEvents(w)
	return w.input.snapshot(!w.IsRunning())
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) FramebufferSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *engineWindow) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
	platformSetTitle(w, title)
}

func (w *engineWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

// framebufferResized records the new size and forwards it to the resize callback.
func (w *engineWindow) framebufferResized(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	cb := w.onResize
	w.mu.Unlock()
	if cb != nil {
		cb(width, height)
	}
}
