package surface_mesh

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slopeSource struct{}

func (slopeSource) Height(x, z float32) float32 { return 0.5*x + 0.25*z }

type countingAllocator struct {
	created  []*wgpu.Buffer
	released map[*wgpu.Buffer]int
	sizes    map[string]int
	failAt   int
}

func newCountingAllocator() *countingAllocator {
	return &countingAllocator{released: map[*wgpu.Buffer]int{}, sizes: map[string]int{}, failAt: -1}
}

func (a *countingAllocator) CreateBuffer(label string, _ wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	if a.failAt == len(a.created) {
		return nil, errors.New("out of memory")
	}
	buf := new(wgpu.Buffer)
	a.created = append(a.created, buf)
	a.sizes[label] = len(data)
	return buf, nil
}

func (a *countingAllocator) ReleaseBuffer(buf *wgpu.Buffer) {
	a.released[buf]++
}

func TestIndexCountAndBounds(t *testing.T) {
	for _, r := range []int{1, 2, 3, 4, 7, 16, 200} {
		idx := BuildIndices(r)
		require.Len(t, idx, 6*r*r, "resolution %d", r)

		limit := uint32((r + 1) * (r + 1))
		for _, i := range idx {
			if !assert.Less(t, i, limit, "resolution %d", r) {
				break
			}
		}
	}
}

func TestIndicesFirstQuad(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 4, 0, 4, 3}, BuildIndices(2)[:6])
}

func TestLineIndicesCoverEdges(t *testing.T) {
	r := 3
	lines := BuildLineIndices(r)
	assert.Len(t, lines, 2*(2*r*(r+1)+r*r))
	assert.Zero(t, len(lines)%2)
	for _, i := range lines {
		assert.Less(t, i, uint32((r+1)*(r+1)))
	}
}

func TestZeroResolutionRejected(t *testing.T) {
	m, err := NewSurfaceMesh("water", 0)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrDegenerateResolution)

	_, err = NewSurfaceMesh("water", -3)
	assert.ErrorIs(t, err, ErrDegenerateResolution)
	assert.Nil(t, BuildIndices(0))
}

func TestFlatMeshInitialisesBothSlotsIdentically(t *testing.T) {
	m, err := NewSurfaceMesh("water", 4)
	require.NoError(t, err)

	assert.True(t, m.IsFlat())
	assert.Equal(t, 25, m.VertexCount())
	assert.Equal(t, 5, m.Dimension())

	cur, next := m.CurrentPositions(), m.NextPositions()
	assert.NotSame(t, cur, next)
	assert.Equal(t, cur.Data, next.Data)
	for _, p := range cur.Data {
		assert.Zero(t, p[1])
	}
	for _, n := range m.Normals() {
		assert.Equal(t, [4]float32{0, 1, 0, 0}, n)
	}

	// Slots must not alias: writing one leaves the other untouched.
	next.Data[0][1] = 1
	assert.Zero(t, cur.Data[0][1])
}

func TestGridLayout(t *testing.T) {
	m, err := NewSurfaceMesh("ground", 4, WithHeightSource(slopeSource{}))
	require.NoError(t, err)

	pos := m.CurrentPositions().Data
	// vertex (x=3, z=2) lives at z*(R+1)+x
	p := pos[2*5+3]
	assert.InDelta(t, 0.75, p[0], 1e-6)
	assert.InDelta(t, 0.5, p[2], 1e-6)
	assert.InDelta(t, 0.5*0.75+0.25*0.5, p[1], 1e-6)
	assert.Zero(t, p[3])
	assert.Equal(t, [2]float32{0.75, 0.5}, m.TexCoords()[2*5+3])
}

func TestTerrainNormals(t *testing.T) {
	m, err := NewSurfaceMesh("ground", 4, WithHeightSource(slopeSource{}))
	require.NoError(t, err)

	n := m.Normals()[0]
	assert.Greater(t, n[1], float32(0))
	assert.Less(t, n[0], float32(0), "slope rises along +x so the normal leans to -x")
	assert.InDelta(t, 1, n[0]*n[0]+n[1]*n[1]+n[2]*n[2], 1e-5)

	// last column and last row point straight up
	assert.Equal(t, [4]float32{0, 1, 0, 0}, m.Normals()[4])
	assert.Equal(t, [4]float32{0, 1, 0, 0}, m.Normals()[4*5+1])
}

func TestWorkerPoolBuildMatchesSequential(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 256, time.Second)

	seq, err := NewSurfaceMesh("ground", 32, WithHeightSource(slopeSource{}))
	require.NoError(t, err)
	par, err := NewSurfaceMesh("ground", 32, WithHeightSource(slopeSource{}), WithWorkerPool(pool))
	require.NoError(t, err)

	assert.Equal(t, seq.CurrentPositions().Data, par.CurrentPositions().Data)
	assert.Equal(t, seq.Normals(), par.Normals())
}

func TestSwapAlternatesStrictly(t *testing.T) {
	m, err := NewSurfaceMesh("water", 2)
	require.NoError(t, err)

	a, b := m.CurrentPositions(), m.NextPositions()
	for frame := 0; frame < 10; frame++ {
		if frame%2 == 0 {
			assert.Same(t, a, m.CurrentPositions(), "frame %d", frame)
			assert.Same(t, b, m.NextPositions(), "frame %d", frame)
		} else {
			assert.Same(t, b, m.CurrentPositions(), "frame %d", frame)
			assert.Same(t, a, m.NextPositions(), "frame %d", frame)
		}
		assert.Equal(t, uint64(frame), m.Generation())
		m.Swap()
	}
}

func TestUploadAndRelease(t *testing.T) {
	m, err := NewSurfaceMesh("water", 3)
	require.NoError(t, err)

	buf, count := m.IndexBuffer(false)
	assert.Nil(t, buf)
	assert.Equal(t, uint32(54), count)

	alloc := newCountingAllocator()
	require.NoError(t, m.Upload(alloc))
	require.Len(t, alloc.created, 6)
	assert.Equal(t, 16*16, alloc.sizes["water Positions A"])
	assert.Equal(t, 16*16, alloc.sizes["water Positions B"])
	assert.Equal(t, 8*16, alloc.sizes["water TexCoords"])
	assert.Equal(t, 4*54, alloc.sizes["water Indices"])

	assert.NotNil(t, m.CurrentPositions().Buffer)
	assert.NotSame(t, m.CurrentPositions().Buffer, m.NextPositions().Buffer)

	// A second upload is a no-op.
	require.NoError(t, m.Upload(alloc))
	assert.Len(t, alloc.created, 6)

	m.Release()
	m.Release()
	assert.Len(t, alloc.released, 6)
	for _, n := range alloc.released {
		assert.Equal(t, 1, n)
	}
	assert.Nil(t, m.CurrentPositions().Buffer)
}

func TestUploadFailureFreesPartialBuffers(t *testing.T) {
	m, err := NewSurfaceMesh("water", 3)
	require.NoError(t, err)

	alloc := newCountingAllocator()
	alloc.failAt = 3
	err = m.Upload(alloc)
	require.Error(t, err)
	assert.Len(t, alloc.released, 3)
	assert.Nil(t, m.NormalBuffer())
}
