package loader

import (
	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/chewxy/math32"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Fallback selects the procedural texture used when an asset cannot be loaded.
type Fallback int

const (
	// FallbackChecker is a 512x512 checkerboard with 32 pixel cells.
	FallbackChecker Fallback = iota
	// FallbackSubsurface is the 3x1 deep-water color ramp.
	FallbackSubsurface
	// FallbackNoise is tileable simplex noise in the red, green and blue channels.
	FallbackNoise
	// FallbackNoiseNormal is a normal map derived from FallbackNoise.
	FallbackNoiseNormal
)

const (
	CheckerSize = 512
	CheckerCell = 32
	NoiseSize   = 256
	// noiseFrequency is how many simplex features span the noise texture.
	noiseFrequency = 8
)

// subsurfaceRamp is the shallow-to-deep color ramp of the sub-surface lookup.
var subsurfaceRamp = [3][3]byte{{2, 204, 147}, {2, 127, 199}, {1, 9, 100}}

func (f Fallback) generate(seed int64) common.TextureStagingData {
	switch f {
	case FallbackSubsurface:
		return Subsurface()
	case FallbackNoise:
		return Noise(seed, NoiseSize)
	case FallbackNoiseNormal:
		return NoiseNormal(Noise(seed, NoiseSize))
	default:
		return Checker(CheckerSize, CheckerCell)
	}
}

// Checker builds a size x size black and white checkerboard.
func Checker(size, cell int) common.TextureStagingData {
	px := make([]byte, size*size*4)
	for y := range size {
		for x := range size {
			var v byte
			if (x/cell+y/cell)%2 == 0 {
				v = 255
			}
			i := (y*size + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = v, v, v, 255
		}
	}
	return common.TextureStagingData{Pixels: px, Width: uint32(size), Height: uint32(size)}
}

// Subsurface builds the 3x1 sub-surface color ramp.
func Subsurface() common.TextureStagingData {
	px := make([]byte, 0, 12)
	for _, c := range subsurfaceRamp {
		px = append(px, c[0], c[1], c[2], 255)
	}
	return common.TextureStagingData{Pixels: px, Width: 3, Height: 1}
}

// Noise builds a size x size simplex noise texture. It tiles by sampling a 4D torus.
func Noise(seed int64, size int) common.TextureStagingData {
	n := opensimplex.New32(seed)
	px := make([]byte, size*size*4)
	r := float32(noiseFrequency) / (2 * math32.Pi)
	for y := range size {
		for x := range size {
			u := 2 * math32.Pi * float32(x) / float32(size)
			v := 2 * math32.Pi * float32(y) / float32(size)
			s := n.Eval4(r*math32.Cos(u), r*math32.Sin(u), r*math32.Cos(v), r*math32.Sin(v))
			b := byte(common.Clamp((s*0.5+0.5)*255, 0, 255))
			i := (y*size + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = b, b, b, 255
		}
	}
	return common.TextureStagingData{Pixels: px, Width: uint32(size), Height: uint32(size), Linear: true}
}

// NoiseNormal converts a height texture (red channel) into a tangent-space normal map,
// wrapping at the edges.
func NoiseNormal(height common.TextureStagingData) common.TextureStagingData {
	w, h := int(height.Width), int(height.Height)
	at := func(x, y int) float32 {
		x, y = (x+w)%w, (y+h)%h
		return float32(height.Pixels[(y*w+x)*4]) / 255
	}
	const strength = 4
	px := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			dx := (at(x+1, y) - at(x-1, y)) * strength
			dy := (at(x, y+1) - at(x, y-1)) * strength
			l := math32.Sqrt(dx*dx + dy*dy + 1)
			nx, ny, nz := -dx/l, -dy/l, 1/l
			i := (y*w + x) * 4
			px[i] = encodeUnit(nx)
			px[i+1] = encodeUnit(ny)
			px[i+2] = encodeUnit(nz)
			px[i+3] = 255
		}
	}
	return common.TextureStagingData{Pixels: px, Width: uint32(w), Height: uint32(h), Linear: true}
}

func encodeUnit(v float32) byte {
	return byte(common.Clamp((v*0.5+0.5)*255+0.5, 0, 255))
}

var (
	skyZenith  = [3]float32{0.25, 0.45, 0.85}
	skyHorizon = [3]float32{0.85, 0.9, 0.95}
	skyGround  = [3]float32{0.3, 0.3, 0.3}
)

// GradientCubemap builds a sky cubemap of size x size faces shading from zenith to horizon
// by the direction's height, and a flat ground color below the horizon.
func GradientCubemap(size int) common.CubemapStagingData {
	var cube common.CubemapStagingData
	for f := range cube.Faces {
		px := make([]byte, size*size*4)
		for y := range size {
			for x := range size {
				u := 2*(float32(x)+0.5)/float32(size) - 1
				v := 2*(float32(y)+0.5)/float32(size) - 1
				dir := faceDirection(f, u, v)
				c := skyColor(dir[1] / math32.Sqrt(dir[0]*dir[0]+dir[1]*dir[1]+dir[2]*dir[2]))
				i := (y*size + x) * 4
				px[i], px[i+1], px[i+2], px[i+3] = toByte(c[0]), toByte(c[1]), toByte(c[2]), 255
			}
		}
		cube.Faces[f] = common.TextureStagingData{Pixels: px, Width: uint32(size), Height: uint32(size)}
	}
	return cube
}

// faceDirection maps face coordinates to a direction, faces in +X, -X, +Y, -Y, +Z, -Z order
// with v pointing down the image.
func faceDirection(face int, u, v float32) [3]float32 {
	switch face {
	case 0:
		return [3]float32{1, -v, -u}
	case 1:
		return [3]float32{-1, -v, u}
	case 2:
		return [3]float32{u, 1, v}
	case 3:
		return [3]float32{u, -1, -v}
	case 4:
		return [3]float32{u, -v, 1}
	default:
		return [3]float32{-u, -v, -1}
	}
}

func skyColor(height float32) [3]float32 {
	if height < 0 {
		return skyGround
	}
	var c [3]float32
	for i := range c {
		c[i] = skyHorizon[i] + (skyZenith[i]-skyHorizon[i])*height
	}
	return c
}

func toByte(v float32) byte {
	return byte(common.Clamp(v*255+0.5, 0, 255))
}
