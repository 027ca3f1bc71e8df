// Package resource provides the ref-counted buffer arena behind processing units.
//
// Engine images may alias memory they do not own: an image made from caller
// memory, or a view cut out of another image, reads the same samples. The
// arena gives each such buffer an integer handle and a reference count so
// that ownership can be shared by every unit that depends on it.
//
// # Buffer Lifecycle
//
//	arena := resource.NewArena()
//
//	// Pin caller memory; the caller owns the first reference
//	h := arena.Pin(&resource.Buffer{Data: pixels})
//
//	// Every unit derived from it takes its own reference
//	arena.Retain(h)
//
//	// The buffer is dropped when the last reference goes
//	arena.Release(h)
//	arena.Release(h)
//
// Dropped buffers run their Dropper. Buffer poisons its samples with NaN so a
// view that outlived its backing memory shows up as NaN instead of silently
// reading reused memory.
//
// # Observers
//
// Register observers to trace buffer lifecycle events:
//
//	arena.Subscribe(obs) // obs.OnResourceEvent(resource.Event)
//
// Events are EventPinned, EventRetained, EventReleased and EventDropped.
//
// # Memory Management
//
// Handles are never collected automatically. Units release their references
// in Close. Close the arena to drop everything that is left.
package resource
