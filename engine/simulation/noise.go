package simulation

import (
	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/chewxy/math32"
)

// NoiseField is the host-side view of the noise texture the kernel reads with textureLoad.
type NoiseField interface {
	// Size returns the texture width and height in texels.
	Size() (int, int)
	// Value returns the red channel at texel (x, y), in [0, 1].
	Value(x, y int) float32
}

type textureNoise struct {
	data common.TextureStagingData
}

// NewTextureNoise wraps RGBA staging data as a NoiseField.
func NewTextureNoise(data common.TextureStagingData) NoiseField {
	return textureNoise{data: data}
}

func (n textureNoise) Size() (int, int) {
	return int(n.data.Width), int(n.data.Height)
}

func (n textureNoise) Value(x, y int) float32 {
	return float32(n.data.Pixels[(y*int(n.data.Width)+x)*4]) / 255
}

// ConstantNoise is a NoiseField with one texel of a fixed value.
type ConstantNoise float32

func (c ConstantNoise) Size() (int, int) {
	return 1, 1
}

func (c ConstantNoise) Value(int, int) float32 {
	return float32(c)
}

// NoiseAt samples the field the way the kernel does: the coordinate scrolls with time, wraps
// into [0, 1), picks the nearest texel, and the red channel is remapped to [-amplitude, amplitude].
func NoiseAt(field NoiseField, x, z, t, scale, amplitude float32) float32 {
	if field == nil {
		return 0
	}
	w, h := field.Size()
	if w == 0 || h == 0 {
		return 0
	}
	u := fract(x*scale + t*0.05)
	v := fract(z*scale + t*0.03)
	tx := min(int(u*float32(w)), w-1)
	ty := min(int(v*float32(h)), h-1)
	return (field.Value(tx, ty) - 0.5) * 2 * amplitude
}

func fract(v float32) float32 {
	return v - math32.Floor(v)
}
