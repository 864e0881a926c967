package scene

import (
	"errors"
	"fmt"
)

// ErrCompositeSize is returned by CompositeReference when the four inputs disagree in length.
var ErrCompositeSize = errors.New("scene: composite inputs differ in size")

// CompositeReference is the CPU form of combine.wgsl. For every pixel the water color is taken
// only where the water depth is strictly nearer than the background depth, so ties keep the
// background.
//
// Parameters:
//   - bgColor, bgDepth: the background target
//   - waterColor, waterDepth: the water target
//
// Returns:
//   - [][4]float32: the composited colors
//   - error: ErrCompositeSize if the inputs differ in length
func CompositeReference(bgColor [][4]float32, bgDepth []float32, waterColor [][4]float32, waterDepth []float32) ([][4]float32, error) {
	n := len(bgColor)
	if len(bgDepth) != n || len(waterColor) != n || len(waterDepth) != n {
		return nil, fmt.Errorf("%w: %d, %d, %d, %d", ErrCompositeSize, n, len(bgDepth), len(waterColor), len(waterDepth))
	}
	out := make([][4]float32, n)
	for i := range out {
		if waterDepth[i] < bgDepth[i] {
			out[i] = waterColor[i]
		} else {
			out[i] = bgColor[i]
		}
	}
	return out, nil
}
