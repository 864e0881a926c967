package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

// vecClose compares with an absolute tolerance; mgl32's relative compare is too strict at 0.
func vecClose(want, got mgl32.Vec3) bool {
	return want.Sub(got).Len() < 1e-4
}

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.True(t, vecClose(want, got), "want %v got %v", want, got)
}

func TestVecCloseAroundZero(t *testing.T) {
	assert.True(t, vecClose(mgl32.Vec3{0, 0.2, 0.8}, mgl32.Vec3{-3.5e-08, 0.2, 0.8}))
	assert.False(t, vecClose(mgl32.Vec3{0, 0.2, 0.8}, mgl32.Vec3{1e-3, 0.2, 0.8}))
}

func TestOrbitFollowsElapsedTime(t *testing.T) {
	cc := NewOrbitController()
	assertVec(t, mgl32.Vec3{0.8, 0.2, 0}, cc.Position())
	assertVec(t, mgl32.Vec3{0, -0.2, 0}, cc.Target())

	// a quarter turn at 0.2 rad/s
	cc.Update(Input{Forward: true}, 0.016, math32.Pi/2/0.2)
	assertVec(t, mgl32.Vec3{0, 0.2, 0.8}, cc.Position())
}

func TestFreeFlyStartsAtOrbitPose(t *testing.T) {
	cc := NewFreeFlyController()
	assert.Equal(t, ModeFreeFly, cc.Mode())
	assertVec(t, mgl32.Vec3{0.8, 0.2, 0}, cc.Position())

	dir := cc.Target().Sub(cc.Position())
	want := mgl32.Vec3{0, -0.2, 0}.Sub(mgl32.Vec3{0.8, 0.2, 0}).Normalize()
	assertVec(t, want, dir)
}

func TestFreeFlyMovement(t *testing.T) {
	cc := NewFreeFlyController(WithMoveSpeed(1))
	cc.SetPose(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1})

	cc.Update(Input{Forward: true}, 0.5, 0)
	assertVec(t, mgl32.Vec3{0, 0, -0.5}, cc.Position())

	cc.Update(Input{Right: true}, 0.5, 0)
	assertVec(t, mgl32.Vec3{0.5, 0, -0.5}, cc.Position())

	cc.Update(Input{Up: true}, 1, 0)
	assertVec(t, mgl32.Vec3{0.5, 1, -0.5}, cc.Position())

	cc.Update(Input{Up: true, Down: true}, 1, 0)
	assertVec(t, mgl32.Vec3{0.5, 1, -0.5}, cc.Position())
}

func TestFreeFlyLookOnlyWhileHeld(t *testing.T) {
	cc := NewFreeFlyController(WithMouseSensitivity(0.01))
	cc.SetPose(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})

	cc.Update(Input{MouseDX: 100}, 0.016, 0)
	assertVec(t, mgl32.Vec3{0, 0, -1}, cc.Target())

	cc.Update(Input{Look: true, MouseDX: 50 * math32.Pi}, 0.016, 0)
	assertVec(t, mgl32.Vec3{1, 0, 0}, cc.Target())
}

func TestFreeFlyPitchIsClamped(t *testing.T) {
	cc := NewFreeFlyController(WithMouseSensitivity(1))
	cc.SetPose(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	cc.Update(Input{Look: true, MouseDY: -10}, 0.016, 0)
	assert.Less(t, cc.Target().Y(), float32(1))
	assert.Greater(t, cc.Target().Y(), float32(0.99))
}

func TestSetModeKeepsPose(t *testing.T) {
	cc := NewOrbitController()
	cc.Update(Input{}, 0.016, 3)
	pos := cc.Position()

	cc.SetMode(ModeFreeFly)
	assertVec(t, pos, cc.Position())
	cc.Update(Input{}, 0.016, 10)
	assertVec(t, pos, cc.Position())

	cc.SetMode(ModeOrbit)
	cc.Update(Input{}, 0.016, 0)
	assertVec(t, mgl32.Vec3{0.8, 0.2, 0}, cc.Position())
}

func TestCameraMatricesFollowController(t *testing.T) {
	cc := NewOrbitController()
	cam := NewCamera(WithController(cc), WithFramebufferSize(1200, 800), WithClipPlanes(0.1, 10))
	assert.InDelta(t, 1.5, cam.Aspect(), 1e-6)
	assert.InDelta(t, DefaultFov, cam.Fov(), 1e-6)

	cam.Update(Input{}, 0.016, 1)
	assertVec(t, cc.Position(), cam.Position())
	assert.True(t, cam.ViewMatrix().ApproxEqualThreshold(mgl32.LookAtV(cc.Position(), cc.Target(), mgl32.Vec3{0, 1, 0}), 1e-5))

	id := cam.InverseViewProjectionMatrix().Mul4(cam.ViewProjectionMatrix())
	assert.True(t, id.ApproxEqualThreshold(mgl32.Ident4(), 1e-3))
}

func TestCameraIgnoresEmptyFramebuffer(t *testing.T) {
	cam := NewCamera(WithFramebufferSize(800, 400))
	cam.SetFramebufferSize(0, 0)
	assert.InDelta(t, 2, cam.Aspect(), 1e-6)
	assert.Equal(t, mgl32.Ident4(), cam.ViewMatrix())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "orbit", ModeOrbit.String())
	assert.Equal(t, "free-fly", ModeFreeFly.String())
}
