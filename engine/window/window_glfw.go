package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window *glfw.Window
}

// newPlatformWindow creates the GLFW window, installs the event callbacks that feed the
// input state and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	w.internalWindow = &glfwWindow{window: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch action {
		case glfw.Press:
			w.input.key(int(key), true)
		case glfw.Release:
			w.input.key(int(key), false)
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		w.input.button(int(button), action == glfw.Press)
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.input.cursor(x, y)
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, y float64) {
		w.input.wheel(y)
	})

	// Framebuffer size, not window size: the surface is configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.framebufferResized(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width, w.height = fbWidth, fbHeight
	return nil
}

func platformWindow(w *engineWindow) *glfw.Window {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || gw == nil {
		return nil
	}
	return gw.window
}

// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	win := platformWindow(w)
	if win == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(win)
}

func platformIsRunningCheck(w *engineWindow) bool {
	win := platformWindow(w)
	return win != nil && !win.ShouldClose()
}

func platformRequestClose(w *engineWindow) {
	if win := platformWindow(w); win != nil {
		win.SetShouldClose(true)
	}
}

func platformSetTitle(w *engineWindow, title string) {
	if win := platformWindow(w); win != nil {
		win.SetTitle(title)
	}
}

// platformPollEvents processes pending GLFW events without blocking; callbacks run inside it.
func platformPollEvents(w *engineWindow) {
	if platformWindow(w) != nil {
		glfw.PollEvents()
	}
}

func platformCloseWindow(w *engineWindow) error {
	win := platformWindow(w)
	if win == nil {
		return fmt.Errorf("window: not initialized")
	}
	win.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}
