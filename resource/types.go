package resource

// Handle is an opaque reference to a buffer in an arena.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Event types for buffer lifecycle notifications.
type EventType uint8

const (
	EventPinned EventType = iota
	EventRetained
	EventReleased
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventPinned:
		return "pinned"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a buffer lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Refs   int
	Type   EventType
}

// Observer receives notifications about buffer lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage for ref-counted values.
type Backend interface {
	// Create stores a value with one reference and returns its handle.
	Create(value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Retain adds a reference.
	Retain(handle Handle) (int, bool)

	// Release drops a reference. When the last reference goes the value is
	// returned with dropped set so the caller can run its destructor.
	Release(handle Handle) (value any, refs int, dropped bool, ok bool)

	// Close releases all values held by the backend.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup when their
// last reference is released.
type Dropper interface {
	Drop()
}
