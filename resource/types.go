package resource

import "fmt"

// Handle is an opaque reference to a value in a table.
//
// The low 32 bits hold the 1-based slot, the high bits hold the slot
// generation. Generations are 31 bits wide so a Handle always fits in a
// non-negative int64. Handle 0 is reserved and always invalid.
type Handle uint64

const (
	slotBits       = 32
	slotMask       = 1<<slotBits - 1
	generationMask = 1<<31 - 1
)

func makeHandle(slot, generation uint32) Handle {
	return Handle(uint64(generation)<<slotBits | uint64(slot))
}

func (h Handle) slot() uint32 {
	return uint32(h & slotMask)
}

func (h Handle) generation() uint32 {
	return uint32(h >> slotBits)
}

// String formats the handle as slot@generation.
func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.slot(), h.generation())
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value and its type by handle.
	Get(handle Handle) (any, uint32, error)

	// Drop removes a resource and returns its value. The handle is
	// invalid afterwards, including for a second Drop.
	Drop(handle Handle) (any, uint32, error)

	// Close releases all resources held by the backend.
	Close() error
}

// TypedTable provides type-safe access to resources of a specific type.
type TypedTable[T any] interface {
	// Insert adds a value and returns its handle.
	Insert(value T) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (T, error)

	// Remove drops a resource and returns its value.
	Remove(handle Handle) (T, error)

	// Len returns the number of active resources of this type.
	Len() int

	// Each iterates over all active resources of this type.
	Each(func(Handle, T) bool)
}

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop()
}
