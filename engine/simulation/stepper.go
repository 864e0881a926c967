package simulation

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/chewxy/math32"
)

// Stepper is the CPU implementation of the simulation kernel. It exists so the update rule
// can be checked without a GPU, and it spreads rows over a worker pool when one is given.
type Stepper struct {
	Params Params
	Noise  NoiseField
	Pool   worker.DynamicWorkerPool
}

// NewStepper creates a Stepper.
//
// Parameters:
//   - params: the wave model constants
//   - noise: the noise field, nil for none
//   - pool: optional worker pool for row parallelism
//
// Returns:
//   - *Stepper: the new stepper
func NewStepper(params Params, noise NoiseField, pool worker.DynamicWorkerPool) *Stepper {
	return &Stepper{Params: params, Noise: noise, Pool: pool}
}

// Step computes next positions and normals from current positions for a dim x dim grid.
// dt is clamped with the stepper's MaxDeltaTime.
//
// Parameters:
//   - current: positions read this step
//   - next: positions written this step
//   - normals: normals written this step
//   - terrain: terrain positions under each vertex
//   - dim: vertices per side
//   - dt, elapsed: frame delta and total time in seconds
//
// Returns:
//   - error: ErrResolutionMismatch if any slice is not dim*dim long
func (s *Stepper) Step(current, next, normals, terrain [][4]float32, dim int, dt, elapsed float32) error {
	n := dim * dim
	if dim < 2 || len(current) != n || len(next) != n || len(normals) != n || len(terrain) != n {
		return fmt.Errorf("%w: dimension %d, current %d, next %d, normals %d, terrain %d",
			ErrResolutionMismatch, dim, len(current), len(next), len(normals), len(terrain))
	}

	u := NewUniforms(s.Params, dim, dt, elapsed)
	s.forEachRow(dim, func(z int) {
		for x := 0; x < dim; x++ {
			i := z*dim + x
			cur := current[i]
			shore := Shore(terrain[i][1], u.ShorelineDepth)
			target := (u.Amplitude*Wave(cur[0], cur[2], u.Time, u.WaveSpeed) +
				NoiseAt(s.Noise, cur[0], cur[2], u.Time, u.NoiseScale, u.NoiseAmplitude)) * shore
			blend := min(1, u.DeltaTime*u.Relaxation)

			next[i] = [4]float32{cur[0], cur[1] + (target-cur[1])*blend, cur[2], 0}
			normals[i] = surfaceNormal(current, x, z, dim)
		}
	})
	return nil
}

func (s *Stepper) forEachRow(dim int, fn func(z int)) {
	if s.Pool == nil {
		for z := 0; z < dim; z++ {
			fn(z)
		}
		return
	}

	var wg sync.WaitGroup
	for z := 0; z < dim; z++ {
		wg.Add(1)
		row := z
		s.Pool.SubmitTask(worker.Task{
			ID: row,
			Do: func() (any, error) {
				defer wg.Done()
				fn(row)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// surfaceNormal is the central difference normal with neighbours clamped at the border.
func surfaceNormal(p [][4]float32, x, z, dim int) [4]float32 {
	last := dim - 1
	left := p[z*dim+max(x-1, 0)]
	right := p[z*dim+min(x+1, last)]
	down := p[max(z-1, 0)*dim+x]
	up := p[min(z+1, last)*dim+x]

	a := [3]float32{up[0] - down[0], up[1] - down[1], up[2] - down[2]}
	b := [3]float32{right[0] - left[0], right[1] - left[1], right[2] - left[2]}
	n := [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
	l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [4]float32{0, 1, 0, 0}
	}
	return [4]float32{n[0] / l, n[1] / l, n[2] / l, 0}
}
