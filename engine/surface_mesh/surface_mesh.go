package surface_mesh

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-water/common"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrDegenerateResolution is returned when a mesh is requested with fewer than one quad per side.
var ErrDegenerateResolution = errors.New("surface_mesh: resolution must be at least 1")

// ErrNotUploaded is returned by GPU-facing calls made before Upload.
var ErrNotUploaded = errors.New("surface_mesh: mesh buffers have not been uploaded")

// HeightSource supplies the initial height of the grid at unit-square coordinates.
// A nil HeightSource produces a flat sheet at y = 0.
type HeightSource interface {
	Height(x, z float32) float32
}

// BufferAllocator creates and frees GPU buffers on behalf of a mesh.
// The renderer implements it; tests substitute a counting fake.
type BufferAllocator interface {
	// CreateBuffer creates a GPU buffer initialized with data.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - usage: buffer usage flags
	//   - data: initial contents; its length is the buffer size
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: error if the buffer could not be created
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// ReleaseBuffer frees a buffer previously returned by CreateBuffer.
	//
	// Parameters:
	//   - buf: the buffer to free
	ReleaseBuffer(buf *wgpu.Buffer)
}

// PositionSlot is one of the two position storage slots of a SurfaceMesh.
type PositionSlot struct {
	// Index is 0 or 1 and never changes.
	Index int
	// Buffer is the GPU storage/vertex buffer, nil until Upload.
	Buffer *wgpu.Buffer
	// Data is the host-side copy. It holds the initial heights, and is only kept up to date
	// by the CPU reference stepper; the GPU path never reads it back.
	Data [][4]float32
}

const (
	positionUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	normalUsage   = wgpu.BufferUsageStorage | wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	texUsage      = wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	indexUsage    = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
)

type surfaceMesh struct {
	mu *sync.Mutex

	label      string
	resolution int
	heights    HeightSource
	pool       worker.DynamicWorkerPool

	slots      [2]*PositionSlot
	current    int
	generation uint64

	normals     [][4]float32
	texCoords   [][2]float32
	indices     []uint32
	lineIndices []uint32

	normalBuffer    *wgpu.Buffer
	texCoordBuffer  *wgpu.Buffer
	indexBuffer     *wgpu.Buffer
	lineIndexBuffer *wgpu.Buffer
	allocator       BufferAllocator
}

// SurfaceMesh is a regular (R+1)x(R+1) vertex grid with two alternating position slots.
//
// The renderer reads CurrentPositions while the compute stage writes NextPositions; Swap
// exchanges them once per frame after the compute work has been submitted. The index
// buffer and texture coordinates are static. Normals are single-buffered and shared by both slots.
type SurfaceMesh interface {
	// Label returns the debug label of the mesh.
	Label() string

	// Resolution returns R, the number of quads per side.
	Resolution() int

	// Dimension returns R+1, the number of vertices per side.
	Dimension() int

	// VertexCount returns (R+1)^2.
	VertexCount() int

	// IsFlat reports whether the mesh was built without a height source.
	IsFlat() bool

	// CurrentPositions returns the slot the renderer reads this frame.
	//
	// Returns:
	//   - *PositionSlot: the current slot
	CurrentPositions() *PositionSlot

	// NextPositions returns the slot the compute stage writes this frame.
	//
	// Returns:
	//   - *PositionSlot: the next slot
	NextPositions() *PositionSlot

	// Swap exchanges the current and next slots. Call exactly once per frame, after the
	// compute stage has been submitted and before the next frame's compute dispatch.
	Swap()

	// Generation returns the number of swaps performed so far.
	Generation() uint64

	// Normals returns the host-side normal data.
	Normals() [][4]float32

	// TexCoords returns the static texture coordinates.
	TexCoords() [][2]float32

	// Indices returns the triangle list indices, 6*R^2 entries.
	Indices() []uint32

	// LineIndices returns the grid edge indices used for wireframe rendering.
	LineIndices() []uint32

	// NormalBuffer returns the GPU normal buffer, nil until Upload.
	NormalBuffer() *wgpu.Buffer

	// TexCoordBuffer returns the GPU texture coordinate buffer, nil until Upload.
	TexCoordBuffer() *wgpu.Buffer

	// IndexBuffer returns the triangle or line index buffer and its index count.
	//
	// Parameters:
	//   - wireframe: selects the line index buffer
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer, nil until Upload
	//   - uint32: number of indices in the buffer
	IndexBuffer(wireframe bool) (*wgpu.Buffer, uint32)

	// Upload creates the GPU buffers for every attribute and both position slots.
	// Both slots start with identical contents.
	//
	// Parameters:
	//   - alloc: the allocator that creates and later frees the buffers
	//
	// Returns:
	//   - error: error if any buffer could not be created; buffers created so far are freed
	Upload(alloc BufferAllocator) error

	// Release frees the GPU buffers. Safe to call more than once.
	Release()
}

var _ SurfaceMesh = &surfaceMesh{}

// NewSurfaceMesh builds the grid topology and initial vertex data for a mesh of the given
// resolution. Both position slots are initialised identically.
//
// Parameters:
//   - label: debug label used for GPU buffers
//   - resolution: quads per side, must be >= 1
//   - options: functional options (height source, worker pool)
//
// Returns:
//   - SurfaceMesh: the new mesh, with host data populated and no GPU buffers
//   - error: ErrDegenerateResolution if resolution < 1
func NewSurfaceMesh(label string, resolution int, options ...SurfaceMeshBuilderOption) (SurfaceMesh, error) {
	if resolution < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrDegenerateResolution, resolution)
	}

	m := &surfaceMesh{
		mu:         &sync.Mutex{},
		label:      label,
		resolution: resolution,
	}
	for _, opt := range options {
		opt(m)
	}

	n := m.VertexCount()
	positions := make([][4]float32, n)
	m.normals = make([][4]float32, n)
	m.texCoords = make([][2]float32, n)

	m.forEachRow(func(z int) {
		m.fillRow(z, positions)
	})
	m.forEachRow(func(z int) {
		m.fillNormalRow(z, positions)
	})

	second := make([][4]float32, n)
	copy(second, positions)
	m.slots = [2]*PositionSlot{
		{Index: 0, Data: positions},
		{Index: 1, Data: second},
	}

	m.indices = BuildIndices(resolution)
	m.lineIndices = BuildLineIndices(resolution)
	return m, nil
}

// BuildIndices returns the triangle list for an R x R quad grid whose vertex (x, z) has index z*(R+1)+x.
//
// Parameters:
//   - resolution: quads per side
//
// Returns:
//   - []uint32: 6*R^2 indices, or nil for resolution < 1
func BuildIndices(resolution int) []uint32 {
	if resolution < 1 {
		return nil
	}
	vpr := uint32(resolution + 1)
	out := make([]uint32, 0, 6*resolution*resolution)
	for z := uint32(0); z < uint32(resolution); z++ {
		for x := uint32(0); x < uint32(resolution); x++ {
			v := z*vpr + x
			out = append(out,
				v, v+1, v+vpr+1,
				v, v+vpr+1, v+vpr,
			)
		}
	}
	return out
}

// BuildLineIndices returns a line list covering every triangle edge of the grid.
//
// Parameters:
//   - resolution: quads per side
//
// Returns:
//   - []uint32: pairs of vertex indices, or nil for resolution < 1
func BuildLineIndices(resolution int) []uint32 {
	if resolution < 1 {
		return nil
	}
	r := uint32(resolution)
	vpr := r + 1
	out := make([]uint32, 0, 2*(2*resolution*(resolution+1)+resolution*resolution))
	for z := uint32(0); z <= r; z++ {
		for x := uint32(0); x <= r; x++ {
			v := z*vpr + x
			if x < r {
				out = append(out, v, v+1)
			}
			if z < r {
				out = append(out, v, v+vpr)
			}
			if x < r && z < r {
				out = append(out, v, v+vpr+1)
			}
		}
	}
	return out
}

func (m *surfaceMesh) Label() string {
	return m.label
}

func (m *surfaceMesh) Resolution() int {
	return m.resolution
}

func (m *surfaceMesh) Dimension() int {
	return m.resolution + 1
}

func (m *surfaceMesh) VertexCount() int {
	return (m.resolution + 1) * (m.resolution + 1)
}

func (m *surfaceMesh) IsFlat() bool {
	return m.heights == nil
}

func (m *surfaceMesh) CurrentPositions() *PositionSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[m.current]
}

func (m *surfaceMesh) NextPositions() *PositionSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[1-m.current]
}

func (m *surfaceMesh) Swap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = 1 - m.current
	m.generation++
}

func (m *surfaceMesh) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *surfaceMesh) Normals() [][4]float32 {
	return m.normals
}

func (m *surfaceMesh) TexCoords() [][2]float32 {
	return m.texCoords
}

func (m *surfaceMesh) Indices() []uint32 {
	return m.indices
}

func (m *surfaceMesh) LineIndices() []uint32 {
	return m.lineIndices
}

func (m *surfaceMesh) NormalBuffer() *wgpu.Buffer {
	return m.normalBuffer
}

func (m *surfaceMesh) TexCoordBuffer() *wgpu.Buffer {
	return m.texCoordBuffer
}

func (m *surfaceMesh) IndexBuffer(wireframe bool) (*wgpu.Buffer, uint32) {
	if wireframe {
		return m.lineIndexBuffer, uint32(len(m.lineIndices))
	}
	return m.indexBuffer, uint32(len(m.indices))
}

func (m *surfaceMesh) Upload(alloc BufferAllocator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.allocator != nil {
		return nil
	}

	var created []*wgpu.Buffer
	create := func(name string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
		buf, err := alloc.CreateBuffer(m.label+" "+name, usage, data)
		if err != nil {
			for _, b := range created {
				alloc.ReleaseBuffer(b)
			}
			return nil, fmt.Errorf("surface_mesh: %s %s buffer: %w", m.label, name, err)
		}
		created = append(created, buf)
		return buf, nil
	}

	var bufs [6]*wgpu.Buffer
	var err error
	if bufs[0], err = create("Positions A", positionUsage, common.SliceToBytes(m.slots[0].Data)); err != nil {
		return err
	}
	if bufs[1], err = create("Positions B", positionUsage, common.SliceToBytes(m.slots[1].Data)); err != nil {
		return err
	}
	if bufs[2], err = create("Normals", normalUsage, common.SliceToBytes(m.normals)); err != nil {
		return err
	}
	if bufs[3], err = create("TexCoords", texUsage, common.SliceToBytes(m.texCoords)); err != nil {
		return err
	}
	if bufs[4], err = create("Indices", indexUsage, common.SliceToBytes(m.indices)); err != nil {
		return err
	}
	if bufs[5], err = create("Line Indices", indexUsage, common.SliceToBytes(m.lineIndices)); err != nil {
		return err
	}

	m.slots[0].Buffer = bufs[0]
	m.slots[1].Buffer = bufs[1]
	m.normalBuffer = bufs[2]
	m.texCoordBuffer = bufs[3]
	m.indexBuffer = bufs[4]
	m.lineIndexBuffer = bufs[5]
	m.allocator = alloc
	return nil
}

func (m *surfaceMesh) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.allocator == nil {
		return
	}
	for _, buf := range []*wgpu.Buffer{
		m.slots[0].Buffer, m.slots[1].Buffer,
		m.normalBuffer, m.texCoordBuffer, m.indexBuffer, m.lineIndexBuffer,
	} {
		if buf != nil {
			m.allocator.ReleaseBuffer(buf)
		}
	}
	m.slots[0].Buffer, m.slots[1].Buffer = nil, nil
	m.normalBuffer, m.texCoordBuffer, m.indexBuffer, m.lineIndexBuffer = nil, nil, nil, nil
	m.allocator = nil
}

// forEachRow runs fn for every grid row, fanning rows out over the worker pool when one is set.
func (m *surfaceMesh) forEachRow(fn func(z int)) {
	rows := m.resolution + 1
	if m.pool == nil {
		for z := 0; z < rows; z++ {
			fn(z)
		}
		return
	}

	var wg sync.WaitGroup
	for z := 0; z < rows; z++ {
		wg.Add(1)
		row := z
		m.pool.SubmitTask(worker.Task{
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

func (m *surfaceMesh) fillRow(z int, positions [][4]float32) {
	dim := m.resolution + 1
	r := float32(m.resolution)
	for x := 0; x < dim; x++ {
		u, v := float32(x)/r, float32(z)/r
		var h float32
		if m.heights != nil {
			h = m.heights.Height(u, v)
		}
		i := z*dim + x
		positions[i] = [4]float32{u, h, v, 0}
		m.texCoords[i] = [2]float32{u, v}
	}
}

// fillNormalRow derives the normal of each vertex from its +x and +z neighbours.
// The last row and column have no forward neighbour and point straight up.
func (m *surfaceMesh) fillNormalRow(z int, positions [][4]float32) {
	dim := m.resolution + 1
	for x := 0; x < dim; x++ {
		i := z*dim + x
		if m.heights == nil || x == dim-1 || z == dim-1 {
			m.normals[i] = [4]float32{0, 1, 0, 0}
			continue
		}
		p := positions[i]
		px := positions[i+1]
		pz := positions[i+dim]
		dx := [3]float32{px[0] - p[0], px[1] - p[1], px[2] - p[2]}
		dz := [3]float32{pz[0] - p[0], pz[1] - p[1], pz[2] - p[2]}

		// cross(dz, dx) points up for a grid laid out along +x and +z.
		n := [3]float32{
			dz[1]*dx[2] - dz[2]*dx[1],
			dz[2]*dx[0] - dz[0]*dx[2],
			dz[0]*dx[1] - dz[1]*dx[0],
		}
		l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l == 0 {
			m.normals[i] = [4]float32{0, 1, 0, 0}
			continue
		}
		m.normals[i] = [4]float32{n[0] / l, n[1] / l, n[2] / l, 0}
	}
}
