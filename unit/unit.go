package unit

import (
	"fmt"
	"sync"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/resource"
)

// Unit is the caller-visible processing unit. It owns its native image and
// holds one arena reference per buffer it depends on.
type Unit struct {
	native opcall.Image
	arena  *resource.Arena
	refs   Refs
	mu     sync.Mutex
	closed bool
}

// New wraps a native image with an empty reference set. arena may be nil for
// units that can never depend on pinned memory, such as promoted constants.
func New(native opcall.Image, arena *resource.Arena) *Unit {
	return &Unit{
		native: native,
		arena:  arena,
		refs:   make(Refs),
	}
}

// FromMemory pins data in arena and wraps an engine image that aliases it.
// The returned unit owns the pin; data must not be reused by the caller
// until every unit depending on it is closed.
func FromMemory(eng opcall.Engine, arena *resource.Arena, data []float64, width, height, bands int) (*Unit, error) {
	if arena == nil {
		return nil, errors.InvalidInput(errors.PhaseEngine, "memory units need an arena")
	}
	img, err := eng.ImageFromMemory(data, width, height, bands)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "image from memory")
	}
	h := arena.Pin(&resource.Buffer{Data: data})
	if h == 0 {
		return nil, errors.New(errors.PhaseEngine, errors.KindClosed).Detail("arena closed").Build()
	}
	return &Unit{
		native: img,
		arena:  arena,
		refs:   NewRefs(h),
	}, nil
}

// Native returns the engine image.
func (u *Unit) Native() opcall.Image {
	return u.native
}

// Arena returns the arena the unit's references live in, or nil.
func (u *Unit) Arena() *resource.Arena {
	return u.arena
}

func (u *Unit) Width() int  { return u.native.Width() }
func (u *Unit) Height() int { return u.native.Height() }
func (u *Unit) Bands() int  { return u.native.Bands() }

// References returns a copy of the buffers this unit keeps alive.
func (u *Unit) References() Refs {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.refs.Clone()
}

// Adopt unions refs into the unit's own set, taking an arena reference for
// each handle not already held.
func (u *Unit) Adopt(refs Refs) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return
	}
	for h := range refs {
		if u.refs.Has(h) {
			continue
		}
		if u.arena != nil && !u.arena.Retain(h) {
			continue
		}
		u.refs.Add(h)
	}
}

// Close releases every buffer reference. It is safe to call more than once.
func (u *Unit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true
	if u.arena != nil {
		for h := range u.refs {
			u.arena.Release(h)
		}
	}
	u.refs = make(Refs)
	return nil
}

func (u *Unit) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

func (u *Unit) String() string {
	if f, ok := u.native.(fmt.Stringer); ok {
		return f.String()
	}
	return fmt.Sprintf("Image %dx%dx%d", u.Width(), u.Height(), u.Bands())
}
