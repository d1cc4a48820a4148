package resource

import (
	"sync"

	"github.com/wippyai/indexbind/errors"
)

// LocalBackend is an in-memory slot map with generation-checked handles.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	capacity int
	live     int
	mu       sync.RWMutex
	closed   bool
}

var _ Backend = (*LocalBackend)(nil)

type entry struct {
	value      any
	typeID     uint32
	generation uint32
	valid      bool
}

// NewLocalBackend creates a new in-memory backend. A capacity of zero
// means the table is bounded only by the slot space.
func NewLocalBackend(capacity int) *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
		capacity: capacity,
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errors.Closed(errors.PhaseHandle, "handle table")
	}
	if b.capacity > 0 && b.live >= b.capacity {
		return 0, errors.ResourceExhausted(b.capacity)
	}

	if n := len(b.freeList); n > 0 {
		idx := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		e := &b.entries[idx]
		e.value = value
		e.typeID = typeID
		e.valid = true
		b.live++
		return makeHandle(idx+1, e.generation), nil
	}

	if len(b.entries) >= slotMask {
		return 0, errors.ResourceExhausted(len(b.entries))
	}

	b.entries = append(b.entries, entry{
		value:      value,
		typeID:     typeID,
		generation: 1,
		valid:      true,
	})
	b.live++
	return makeHandle(uint32(len(b.entries)), 1), nil
}

// lookup returns the live entry for handle. Caller holds b.mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, error) {
	slot := handle.slot()
	if slot == 0 || int(slot) > len(b.entries) {
		return nil, errors.StaleHandle(uint64(handle))
	}
	e := &b.entries[slot-1]
	if !e.valid || e.generation != handle.generation() {
		return nil, errors.StaleHandle(uint64(handle))
	}
	return e, nil
}

// Get retrieves a value and its type by handle.
func (b *LocalBackend) Get(handle Handle) (any, uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, 0, err
	}
	return e.value, e.typeID, nil
}

// Drop removes a resource and returns its value.
func (b *LocalBackend) Drop(handle Handle) (any, uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, 0, err
	}
	return b.release(handle.slot()-1, e), e.typeID, nil
}

// DropTyped removes a resource only if it has the expected type.
func (b *LocalBackend) DropTyped(handle Handle, typeID uint32) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	if e.typeID != typeID {
		return nil, errors.TypeMismatch(uint64(handle), typeID, e.typeID)
	}
	return b.release(handle.slot()-1, e), nil
}

// release invalidates the entry and recycles its slot. Caller holds b.mu.
func (b *LocalBackend) release(idx uint32, e *entry) any {
	value := e.value
	e.value = nil
	e.valid = false
	e.generation++
	if e.generation > generationMask {
		e.generation = 1
	}
	b.freeList = append(b.freeList, idx)
	b.live--
	return value
}

// Close releases all resources.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var droppers []Dropper
	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				droppers = append(droppers, d)
			}
		}
	}
	b.entries = nil
	b.freeList = nil
	b.live = 0
	b.mu.Unlock()

	for _, d := range droppers {
		d.Drop()
	}
	return nil
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all active resources. fn must not call back into
// the backend.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i+1), e.generation), e.typeID, e.value) {
				break
			}
		}
	}
}
