package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/stretchr/testify/assert"
)

func TestPressedIsAnEdge(t *testing.T) {
	s := newInputState()
	s.key(common.KeyF1, true)

	snap := s.snapshot(false)
	assert.True(t, snap.Pressed(common.KeyF1))
	assert.True(t, snap.Down(common.KeyF1))

	// still held, no new edge
	s.key(common.KeyF1, true)
	snap = s.snapshot(false)
	assert.False(t, snap.Pressed(common.KeyF1))
	assert.True(t, snap.Down(common.KeyF1))

	s.key(common.KeyF1, false)
	snap = s.snapshot(false)
	assert.False(t, snap.Down(common.KeyF1))
}

func TestTapBetweenPollsIsNotLost(t *testing.T) {
	s := newInputState()
	s.key(common.KeyF2, true)
	s.key(common.KeyF2, false)

	snap := s.snapshot(false)
	assert.True(t, snap.Pressed(common.KeyF2))
	assert.False(t, snap.Down(common.KeyF2))
}

func TestCursorDeltasAccumulateAndReset(t *testing.T) {
	s := newInputState()
	s.cursor(100, 100)
	s.cursor(110, 95)
	s.cursor(115, 90)
	s.wheel(1)

	snap := s.snapshot(false)
	assert.Equal(t, float32(15), snap.MouseDX)
	assert.Equal(t, float32(-10), snap.MouseDY)
	assert.Equal(t, float32(1), snap.Scroll)

	snap = s.snapshot(false)
	assert.Zero(t, snap.MouseDX)
	assert.Zero(t, snap.MouseDY)
	assert.Zero(t, snap.Scroll)
}

func TestOutOfRangeCodesAreIgnored(t *testing.T) {
	s := newInputState()
	s.key(-1, true)
	s.key(common.MaxKeyCode, true)
	s.button(mouseButtons, true)

	snap := s.snapshot(true)
	assert.False(t, snap.Down(-1))
	assert.False(t, snap.Pressed(common.MaxKeyCode))
	assert.False(t, snap.MouseDown(mouseButtons))
	assert.True(t, snap.CloseRequested)
}

func TestMouseButtons(t *testing.T) {
	s := newInputState()
	s.button(common.MouseButtonRight, true)
	assert.True(t, s.snapshot(false).MouseDown(common.MouseButtonRight))
	s.button(common.MouseButtonRight, false)
	assert.False(t, s.snapshot(false).MouseDown(common.MouseButtonRight))
}

func TestBuilderOptions(t *testing.T) {
	w := newEngineWindow(WithTitle("water"), WithSize(640, 480), WithMinSize(100, 50), WithMaxSize(sizeUnlimited, 900))
	assert.Equal(t, "water", w.Title())
	width, height := w.FramebufferSize()
	assert.Equal(t, 640, width)
	assert.Equal(t, 480, height)
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 900, w.maxHeight)

	w = newEngineWindow(WithSize(0, 480))
	width, _ = w.FramebufferSize()
	assert.Equal(t, 1200, width)
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())

	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })
	w.framebufferResized(1920, 1080)
	assert.Equal(t, [2]int{1920, 1080}, got)

	snap := w.PollInput()
	assert.True(t, snap.CloseRequested)
}

func TestScriptedSnapshot(t *testing.T) {
	var base InputSnapshot
	snap := base.Press(common.KeyF5).Hold(common.KeyW).HoldButton(common.MouseButtonRight)
	assert.True(t, snap.Pressed(common.KeyF5))
	assert.True(t, snap.Down(common.KeyF5))
	assert.True(t, snap.Down(common.KeyW))
	assert.False(t, snap.Pressed(common.KeyW))
	assert.True(t, snap.MouseDown(common.MouseButtonRight))
	assert.False(t, base.Down(common.KeyW))
}
