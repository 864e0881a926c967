package target

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

type manager struct {
	mu *sync.Mutex

	allocator Allocator
	targets   map[string]*target
	order     []string
}

// Manager owns every off-screen target. It is the only component that allocates or frees
// target textures, so each texture has exactly one owner.
type Manager interface {
	// MakeTarget allocates a new named target.
	//
	// Parameters:
	//   - name: unique target name, also used as the texture label
	//   - width, height: the size in pixels
	//   - screenSized: whether ResizeScreen resizes this target
	//
	// Returns:
	//   - Target: the new target
	//   - error: ErrInvalidSize, ErrDuplicateTarget, ErrDimensionMismatch or an allocation error
	MakeTarget(name string, width, height int, screenSized bool) (Target, error)

	// Target looks up a target by name.
	//
	// Parameters:
	//   - name: the target name
	//
	// Returns:
	//   - Target: the target
	//   - error: ErrUnknownTarget if no target has that name
	Target(name string) (Target, error)

	// Names returns the target names in creation order.
	Names() []string

	// Resize reallocates one target. Matching dimensions are a no-op. New textures are
	// allocated before the old ones are freed, so a failed resize leaves the target intact.
	// A screen-sized target cannot leave the size of the other screen-sized targets; use
	// ResizeScreen to resize them together.
	//
	// Parameters:
	//   - name: the target name
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - error: ErrUnknownTarget, ErrInvalidSize, ErrDimensionMismatch or an allocation error
	Resize(name string, width, height int) error

	// ResizeScreen resizes every screen-sized target together. Either all of them change or,
	// on an allocation failure, none do.
	//
	// Parameters:
	//   - width, height: the new framebuffer size in pixels
	//
	// Returns:
	//   - error: ErrInvalidSize or an allocation error
	ResizeScreen(width, height int) error

	// ScreenSize returns the common size of the screen-sized targets, or zeros when there are none.
	ScreenSize() (int, int)

	// Validate checks that all screen-sized targets share one size.
	//
	// Returns:
	//   - error: ErrDimensionMismatch naming the disagreeing targets, or nil
	Validate() error

	// Release frees every target. The manager is empty afterwards.
	Release()
}

var _ Manager = &manager{}

// NewManager creates an empty target manager.
//
// Parameters:
//   - allocator: creates and frees the textures
//
// Returns:
//   - Manager: the new manager
func NewManager(allocator Allocator) Manager {
	return &manager{
		mu:        &sync.Mutex{},
		allocator: allocator,
		targets:   make(map[string]*target),
	}
}

func (m *manager) MakeTarget(name string, width, height int, screenSized bool) (Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrInvalidSize, name, width, height)
	}
	if _, ok := m.targets[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTarget, name)
	}
	if screenSized {
		if w, h := m.screenSize(); (w != 0 || h != 0) && (w != width || h != height) {
			return nil, fmt.Errorf("%w: %s is %dx%d, screen targets are %dx%d", ErrDimensionMismatch, name, width, height, w, h)
		}
	}

	tex, err := m.allocator.AllocateTarget(name, width, height)
	if err != nil {
		return nil, fmt.Errorf("target: failed to allocate %s: %w", name, err)
	}

	t := &target{
		name:        name,
		width:       width,
		height:      height,
		screenSized: screenSized,
		version:     1,
		textures:    tex,
	}
	m.targets[name] = t
	m.order = append(m.order, name)
	return t, nil
}

func (m *manager) Target(name string) (Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return t, nil
}

func (m *manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *manager) Resize(name string, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.targets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %s %dx%d", ErrInvalidSize, name, width, height)
	}
	if t.width == width && t.height == height {
		return nil
	}
	if t.screenSized {
		for _, other := range m.order {
			o := m.targets[other]
			if o != t && o.screenSized && (o.width != width || o.height != height) {
				return fmt.Errorf("%w: %s cannot become %dx%d while %s is %dx%d",
					ErrDimensionMismatch, name, width, height, o.name, o.width, o.height)
			}
		}
	}

	tex, err := m.allocator.AllocateTarget(name, width, height)
	if err != nil {
		return fmt.Errorf("target: failed to resize %s: %w", name, err)
	}
	m.replace(t, tex, width, height)
	return nil
}

func (m *manager) ResizeScreen(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: screen %dx%d", ErrInvalidSize, width, height)
	}

	var pending []*target
	for _, name := range m.order {
		t := m.targets[name]
		if t.screenSized && (t.width != width || t.height != height) {
			pending = append(pending, t)
		}
	}

	allocated := make([]Textures, 0, len(pending))
	for _, t := range pending {
		tex, err := m.allocator.AllocateTarget(t.name, width, height)
		if err != nil {
			for _, a := range allocated {
				m.allocator.FreeTarget(a)
			}
			return fmt.Errorf("target: failed to resize %s: %w", t.name, err)
		}
		allocated = append(allocated, tex)
	}

	for i, t := range pending {
		m.replace(t, allocated[i], width, height)
	}
	return nil
}

func (m *manager) ScreenSize() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screenSize()
}

func (m *manager) Validate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ref *target
	var errs []error
	for _, name := range m.order {
		t := m.targets[name]
		if !t.screenSized {
			continue
		}
		if ref == nil {
			ref = t
			continue
		}
		if t.width != ref.width || t.height != ref.height {
			errs = append(errs, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d",
				ErrDimensionMismatch, t.name, t.width, t.height, ref.name, ref.width, ref.height))
		}
	}
	return errors.Join(errs...)
}

func (m *manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := append([]string(nil), m.order...)
	sort.Strings(names)
	for _, name := range names {
		m.allocator.FreeTarget(m.targets[name].textures)
	}
	m.targets = make(map[string]*target)
	m.order = nil
}

func (m *manager) screenSize() (int, int) {
	for _, name := range m.order {
		if t := m.targets[name]; t.screenSized {
			return t.width, t.height
		}
	}
	return 0, 0
}

func (m *manager) replace(t *target, tex Textures, width, height int) {
	old := t.textures
	t.textures = tex
	t.width = width
	t.height = height
	t.version++
	m.allocator.FreeTarget(old)
}
