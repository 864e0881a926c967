package target

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAllocator struct {
	live      map[*wgpu.TextureView]string
	allocated int
	freed     int
	failOn    int // fail the n-th allocation (1-based), 0 never
}

func newFakeAllocator() *fakeAllocator {
	return &fakeAllocator{live: make(map[*wgpu.TextureView]string)}
}

func (f *fakeAllocator) AllocateTarget(label string, width, height int) (Textures, error) {
	f.allocated++
	if f.failOn != 0 && f.allocated == f.failOn {
		return Textures{}, errors.New("out of memory")
	}
	t := Textures{
		Color:     &wgpu.Texture{},
		ColorView: &wgpu.TextureView{},
		Depth:     &wgpu.Texture{},
		DepthView: &wgpu.TextureView{},
	}
	f.live[t.ColorView] = label
	return t, nil
}

func (f *fakeAllocator) FreeTarget(t Textures) {
	if _, ok := f.live[t.ColorView]; !ok {
		panic("double free")
	}
	delete(f.live, t.ColorView)
	f.freed++
}

func screenTargets(t *testing.T, alloc *fakeAllocator, w, h int) Manager {
	t.Helper()
	m := NewManager(alloc)
	_, err := m.MakeTarget("background", w, h, true)
	require.NoError(t, err)
	_, err = m.MakeTarget("water", w, h, true)
	require.NoError(t, err)
	_, err = m.MakeTarget("water_map", 1024, 1024, false)
	require.NoError(t, err)
	return m
}

func TestMakeTargetValidates(t *testing.T) {
	m := NewManager(newFakeAllocator())

	_, err := m.MakeTarget("zero", 0, 10, false)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = m.MakeTarget("background", 800, 600, true)
	require.NoError(t, err)
	_, err = m.MakeTarget("background", 800, 600, true)
	assert.ErrorIs(t, err, ErrDuplicateTarget)
	_, err = m.MakeTarget("water", 640, 480, true)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = m.Target("missing")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.ErrorIs(t, m.Resize("missing", 1, 1), ErrUnknownTarget)
}

func TestTargetHasBothTextures(t *testing.T) {
	m := NewManager(newFakeAllocator())
	tg, err := m.MakeTarget("top_view", 1024, 1024, false)
	require.NoError(t, err)
	assert.NotNil(t, tg.ColorView())
	assert.NotNil(t, tg.DepthView())
	assert.Equal(t, uint64(1), tg.Version())
	w, h := tg.Size()
	assert.Equal(t, []int{1024, 1024}, []int{w, h})
	assert.False(t, tg.ScreenSized())
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	bg, _ := m.Target("background")
	view := bg.ColorView()

	require.NoError(t, m.ResizeScreen(800, 600))
	require.NoError(t, m.ResizeScreen(800, 600))
	assert.Same(t, view, bg.ColorView())
	assert.Equal(t, uint64(1), bg.Version())
	assert.Equal(t, 3, alloc.allocated)
	assert.Zero(t, alloc.freed)
}

func TestResizeScreenKeepsIdentityAndFreesOld(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	bg, _ := m.Target("background")
	old := bg.ColorView()

	require.NoError(t, m.ResizeScreen(1920, 1080))
	again, _ := m.Target("background")
	assert.Same(t, bg, again)
	assert.NotSame(t, old, bg.ColorView())
	assert.Equal(t, uint64(2), bg.Version())

	for _, name := range []string{"background", "water"} {
		tg, err := m.Target(name)
		require.NoError(t, err)
		w, h := tg.Size()
		assert.Equal(t, 1920, w, name)
		assert.Equal(t, 1080, h, name)
	}
	wm, _ := m.Target("water_map")
	w, _ := wm.Size()
	assert.Equal(t, 1024, w)

	assert.NoError(t, m.Validate())
	assert.Equal(t, 2, alloc.freed)
	assert.Len(t, alloc.live, 3)
	sw, sh := m.ScreenSize()
	assert.Equal(t, []int{1920, 1080}, []int{sw, sh})
}

func TestResizeScreenFailureIsAtomic(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	alloc.failOn = alloc.allocated + 2 // second screen target fails

	err := m.ResizeScreen(1024, 768)
	require.Error(t, err)
	for _, name := range []string{"background", "water"} {
		tg, _ := m.Target(name)
		w, h := tg.Size()
		assert.Equal(t, []int{800, 600}, []int{w, h})
	}
	assert.Len(t, alloc.live, 3)
	assert.NoError(t, m.Validate())
}

func TestResizeRefusesToSplitScreenTargets(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	allocated := alloc.allocated

	err := m.Resize("background", 1920, 1080)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "water is 800x600")
	assert.Equal(t, allocated, alloc.allocated, "nothing allocated for a refused resize")

	bg, _ := m.Target("background")
	w, h := bg.Size()
	assert.Equal(t, []int{800, 600}, []int{w, h})
	assert.Equal(t, uint64(1), bg.Version())
	assert.NoError(t, m.Validate())
}

func TestResizeSingleTargets(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	require.NoError(t, m.Resize("water_map", 512, 512))
	wm, _ := m.Target("water_map")
	w, h := wm.Size()
	assert.Equal(t, []int{512, 512}, []int{w, h})
	assert.Equal(t, 1, alloc.freed)

	lone := NewManager(newFakeAllocator())
	_, err := lone.MakeTarget("screen", 800, 600, true)
	require.NoError(t, err)
	require.NoError(t, lone.Resize("screen", 1024, 768))
	sw, sh := lone.ScreenSize()
	assert.Equal(t, []int{1024, 768}, []int{sw, sh})
	assert.NoError(t, lone.Validate())
}

func TestReleaseFreesEverything(t *testing.T) {
	alloc := newFakeAllocator()
	m := screenTargets(t, alloc, 800, 600)
	require.NoError(t, m.ResizeScreen(1200, 800))
	m.Release()
	assert.Empty(t, alloc.live)
	assert.Equal(t, alloc.allocated, alloc.freed)
	assert.Empty(t, m.Names())
}
