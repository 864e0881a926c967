package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerspectiveFovDepthRange(t *testing.T) {
	proj := PerspectiveFov(mgl32.DegToRad(45), 1200, 800, 0.1, 100)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})

	assert.InDelta(t, 0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-4)
}

func TestPerspectiveFovZeroHeight(t *testing.T) {
	proj := PerspectiveFov(mgl32.DegToRad(45), 800, 0, 0.1, 100)
	for _, v := range proj {
		assert.False(t, math.IsNaN(float64(v)))
		assert.False(t, math.IsInf(float64(v), 0))
	}
}

func TestOrthoDepthRange(t *testing.T) {
	proj := Ortho(-1, 1, -1, 1, 0.01, 5)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.01, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -5, 1})

	assert.InDelta(t, 0, near.Z(), 1e-5)
	assert.InDelta(t, 1, far.Z(), 1e-5)
}

func TestSurfaceWorldMatrixCentersUnitSquare(t *testing.T) {
	world := SurfaceWorldMatrix(2, mgl32.Vec3{-0.5, 0, -0.5})

	cases := []struct {
		in, want mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{-1, 0, -1}},
		{mgl32.Vec3{1, 0, 1}, mgl32.Vec3{1, 0, 1}},
		{mgl32.Vec3{0.5, 0.25, 0.5}, mgl32.Vec3{0, 0.5, 0}},
	}
	for _, c := range cases {
		got := mgl32.TransformCoordinate(c.in, world)
		assert.True(t, got.ApproxEqualThreshold(c.want, 1e-6), "got %v want %v", got, c.want)
	}
}

func TestNormalMatrixUndoesUniformScale(t *testing.T) {
	world := SurfaceWorldMatrix(2, mgl32.Vec3{-0.5, 0, -0.5})
	nm := NormalMatrix(world)

	assert.InDelta(t, 0.5, nm.At(0, 0), 1e-6)
	assert.InDelta(t, 0.5, nm.At(1, 1), 1e-6)
	assert.InDelta(t, 0.5, nm.At(2, 2), 1e-6)
	assert.InDelta(t, 0, nm.At(0, 3), 1e-6)
	assert.InDelta(t, 1, nm.At(3, 3), 1e-6)
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Len(t, SliceToBytes([]float32{1, 2, 3}), 12)
	assert.Len(t, SliceToBytes([]uint32{1}), 4)
}

func TestClampAndCoalesce(t *testing.T) {
	assert.Equal(t, float32(0.1), Clamp(float32(5), 0, 0.1))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))

	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestDecodeImageResamples(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	same, err := DecodeImageBytes(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), same.Width)
	assert.Equal(t, uint32(2), same.Height)
	assert.True(t, same.Valid())

	scaled, err := DecodeImageBytes(buf.Bytes(), 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), scaled.Width)
	assert.Equal(t, uint32(8), scaled.Height)
	assert.True(t, scaled.Valid())
	assert.InDelta(t, 200, int(scaled.Pixels[0]), 1)
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImageBytes([]byte("not an image"), 0)
	assert.Error(t, err)
}
