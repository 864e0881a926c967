package surface_mesh

import "github.com/Carmen-Shannon/automation/tools/worker"

// SurfaceMeshBuilderOption is a functional option for configuring a SurfaceMesh.
type SurfaceMeshBuilderOption func(*surfaceMesh)

// WithHeightSource sets the function that supplies the initial vertex heights.
// Without it the mesh is a flat water sheet at y = 0.
//
// Parameters:
//   - src: the height source, typically a terrain generator
//
// Returns:
//   - SurfaceMeshBuilderOption: option function to apply
func WithHeightSource(src HeightSource) SurfaceMeshBuilderOption {
	return func(m *surfaceMesh) {
		m.heights = src
	}
}

// WithWorkerPool builds grid rows in parallel on the given pool.
//
// Parameters:
//   - pool: the worker pool to submit row tasks to
//
// Returns:
//   - SurfaceMeshBuilderOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool) SurfaceMeshBuilderOption {
	return func(m *surfaceMesh) {
		m.pool = pool
	}
}
