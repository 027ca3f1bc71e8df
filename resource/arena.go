package resource

import (
	"math"
	"sync"
)

// Arena holds buffers that processing units depend on. Every holder of a
// handle owns one reference; the buffer is dropped when the last one goes.
type Arena struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		backend: NewLocalBackend(),
	}
}

// Pin stores value with one reference owned by the caller.
// Returns 0 if the arena is closed.
func (a *Arena) Pin(value any) Handle {
	handle, err := a.backend.Create(value)
	if err != nil {
		return 0
	}

	a.notify(Event{
		Type:   EventPinned,
		Handle: handle,
		Refs:   1,
		Value:  value,
	})

	return handle
}

// Get retrieves a live value by handle.
func (a *Arena) Get(handle Handle) (any, bool) {
	return a.backend.Get(handle)
}

// Retain adds a reference to a live buffer.
func (a *Arena) Retain(handle Handle) bool {
	refs, ok := a.backend.Retain(handle)
	if !ok {
		return false
	}
	a.notify(Event{
		Type:   EventRetained,
		Handle: handle,
		Refs:   refs,
	})
	return true
}

// Release drops a reference, running the value's Dropper when it was the last.
func (a *Arena) Release(handle Handle) bool {
	value, refs, dropped, ok := a.backend.Release(handle)
	if !ok {
		return false
	}

	if !dropped {
		a.notify(Event{
			Type:   EventReleased,
			Handle: handle,
			Refs:   refs,
		})
		return true
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	a.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Value:  value,
	})
	return true
}

// Refs returns the current reference count of a live buffer.
func (a *Arena) Refs(handle Handle) (int, bool) {
	return a.backend.Refs(handle)
}

// Live reports whether handle still names a buffer.
func (a *Arena) Live(handle Handle) bool {
	_, ok := a.backend.Refs(handle)
	return ok
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Unsubscribe removes an observer.
func (a *Arena) Unsubscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	for i, obs := range a.observers {
		if obs == o {
			a.observers = append(a.observers[:i], a.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live buffers.
func (a *Arena) Len() int {
	return a.backend.Len()
}

// Close drops every buffer and stops accepting new ones.
func (a *Arena) Close() error {
	return a.backend.Close()
}

func (a *Arena) notify(e Event) {
	a.obsMu.RLock()
	observers := a.observers
	a.obsMu.RUnlock()

	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}

// Buffer is caller memory pinned for engine images to alias.
type Buffer struct {
	Data []float64
}

// Drop poisons the samples so any image still aliasing them reads NaN.
func (b *Buffer) Drop() {
	for i := range b.Data {
		b.Data[i] = math.NaN()
	}
	b.Data = nil
}
