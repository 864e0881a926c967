package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLight(t *testing.T) {
	l := NewDirectionalLight()
	assert.Equal(t, mgl32.Vec3{-1, 1, -1}, l.Position())
	assert.Equal(t, mgl32.Vec3{}, l.Target())
	assert.True(t, l.Direction().ApproxEqual(mgl32.Vec3{1, -1, 1}.Normalize()))

	want := mgl32.LookAtV(mgl32.Vec3{-1, 1, -1}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.True(t, l.ViewMatrix().ApproxEqual(want))
	assert.True(t, l.ProjectionMatrix().ApproxEqual(common.Ortho(-1, 1, -1, 1, 0.01, 5)))
}

func TestTargetProjectsToCenter(t *testing.T) {
	l := NewDirectionalLight()
	clip := l.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X(), 1e-5)
	assert.InDelta(t, 0, clip.Y(), 1e-5)
	assert.Greater(t, clip.Z(), float32(0))
	assert.Less(t, clip.Z(), float32(1))
}

func TestStraightDownLightStaysFinite(t *testing.T) {
	l := NewDirectionalLight(WithPosition(mgl32.Vec3{0, 2, 0}))
	for _, v := range l.ViewMatrix() {
		assert.False(t, v != v, "NaN in view matrix")
	}
}

func TestSetVolume(t *testing.T) {
	l := NewDirectionalLight()
	l.SetVolume(2, 0.1, 10)
	assert.True(t, l.ProjectionMatrix().ApproxEqual(common.Ortho(-2, 2, -2, 2, 0.1, 10)))
	l.SetPosition(mgl32.Vec3{1, 1, 1})
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, l.Position())
}
