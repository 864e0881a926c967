// Package terrain produces the ground heightfield the water flows over.
// Heights are defined on the unit square: a ridge along the x axis built from a
// gaussian bump, roughened with simplex noise.
package terrain

import (
	"github.com/chewxy/math32"
	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	// CoordinateStretch scales the distance from the far edge before it enters the gaussian.
	CoordinateStretch = 5.0
	// EFunctionStretch is the inverse width of the gaussian bump.
	EFunctionStretch = 10.0
	// EFunctionWeight is how strongly the gaussian carves into the base height.
	EFunctionWeight = -0.7
	// NoiseWeight scales the simplex roughness.
	NoiseWeight = 0.015
	// NoiseStretch is the simplex frequency across the unit square.
	NoiseStretch = 6.0
	// HeightScale is the overall vertical scale.
	HeightScale = 0.6
	// BaseHeight is the height before the gaussian and noise terms are applied.
	BaseHeight = 0.1
)

var invSqrt2Pi = 1 / math32.Sqrt(2*math32.Pi)

// Generator evaluates the terrain height function for one noise seed.
// It is safe for concurrent use.
type Generator struct {
	noise opensimplex.Noise32
}

// NewGenerator creates a Generator seeded with seed.
//
// Parameters:
//   - seed: the simplex noise seed
//
// Returns:
//   - *Generator: the new generator
func NewGenerator(seed int64) *Generator {
	return &Generator{noise: opensimplex.New32(seed)}
}

// Height returns the terrain height at (x, z) in unit-square coordinates.
//
// Parameters:
//   - x, z: the horizontal coordinate, nominally in [0, 1]
//
// Returns:
//   - float32: the height in world units before the surface world transform
func (g *Generator) Height(x, z float32) float32 {
	corrected := (1 - x) * CoordinateStretch
	e := invSqrt2Pi * math32.Exp(-(1/EFunctionStretch)*corrected*corrected)
	n := g.noise.Eval2(x*NoiseStretch, z*NoiseStretch)
	return HeightScale * (BaseHeight + EFunctionWeight*e + NoiseWeight*n)
}
