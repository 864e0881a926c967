// Package target manages off-screen render targets: color and depth texture pairs that
// one pass renders into and later passes sample from.
package target

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrInvalidSize is returned when a target is requested with a non-positive width or height.
	ErrInvalidSize = errors.New("target: width and height must be positive")
	// ErrUnknownTarget is returned when a target name has not been made.
	ErrUnknownTarget = errors.New("target: unknown target")
	// ErrDuplicateTarget is returned when a target name is made twice.
	ErrDuplicateTarget = errors.New("target: target already exists")
	// ErrDimensionMismatch is returned when two screen-sized targets disagree on their size.
	ErrDimensionMismatch = errors.New("target: screen-sized targets disagree on dimensions")
)

// Textures is the GPU half of a target. Color and depth are allocated and freed together.
type Textures struct {
	Color     *wgpu.Texture
	ColorView *wgpu.TextureView
	Depth     *wgpu.Texture
	DepthView *wgpu.TextureView
}

// Allocator creates and frees target textures. The renderer implements it with
// RGBA8Unorm color and Depth32Float depth, both usable as attachments and sampled textures.
type Allocator interface {
	// AllocateTarget creates a color and depth texture pair.
	//
	// Parameters:
	//   - label: debug label for the textures
	//   - width, height: the texture size in pixels
	//
	// Returns:
	//   - Textures: both textures and their views; never partially filled
	//   - error: error if either texture could not be created
	AllocateTarget(label string, width, height int) (Textures, error)

	// FreeTarget releases a pair returned by AllocateTarget.
	//
	// Parameters:
	//   - t: the textures to free
	FreeTarget(t Textures)
}

type target struct {
	name        string
	width       int
	height      int
	screenSized bool
	version     uint64
	textures    Textures
}

// Target is a named color and depth texture pair.
//
// The Target value handed out by the Manager stays the same across resizes, only its textures
// change. Version increments on every reallocation so bind groups that captured the old views
// know to rebuild.
type Target interface {
	// Name returns the target name.
	Name() string

	// Size returns the current width and height in pixels.
	Size() (int, int)

	// ScreenSized reports whether the target follows the window framebuffer size.
	ScreenSized() bool

	// Version returns a counter that increments each time the textures are reallocated.
	Version() uint64

	// ColorView returns the color attachment view.
	ColorView() *wgpu.TextureView

	// DepthView returns the depth attachment view.
	DepthView() *wgpu.TextureView

	// Textures returns the current texture pair.
	Textures() Textures
}

var _ Target = &target{}

func (t *target) Name() string {
	return t.name
}

func (t *target) Size() (int, int) {
	return t.width, t.height
}

func (t *target) ScreenSized() bool {
	return t.screenSized
}

func (t *target) Version() uint64 {
	return t.version
}

func (t *target) ColorView() *wgpu.TextureView {
	return t.textures.ColorView
}

func (t *target) DepthView() *wgpu.TextureView {
	return t.textures.DepthView
}

func (t *target) Textures() Textures {
	return t.textures
}
