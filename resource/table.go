package resource

import (
	"sync"

	"github.com/wippyai/indexbind/errors"
)

// Table maps handles to values and notifies observers about lifecycle events.
// It is safe for concurrent use.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// Option configures a Table.
type Option func(*tableOptions)

type tableOptions struct {
	capacity int
}

// WithCapacity bounds the number of live handles. Allocation beyond the
// bound fails with a resource_exhausted error.
func WithCapacity(n int) Option {
	return func(o *tableOptions) {
		o.capacity = n
	}
}

// NewTable creates a new table with a LocalBackend.
func NewTable(opts ...Option) *Table {
	var o tableOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Table{
		backend: NewLocalBackend(o.capacity),
	}
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the process-wide table. It is created on first use and
// never reset.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID uint32, value any) (Handle, error) {
	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, error) {
	value, _, err := t.backend.Get(handle)
	return value, err
}

// GetTyped retrieves a value only if it was inserted with typeID.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, error) {
	value, actual, err := t.backend.Get(handle)
	if err != nil {
		return nil, err
	}
	if actual != typeID {
		return nil, errors.TypeMismatch(uint64(handle), typeID, actual)
	}
	return value, nil
}

// Remove drops a resource and returns its value. Removing the same handle
// twice fails with a stale_handle error and leaves other entries untouched.
func (t *Table) Remove(handle Handle) (any, error) {
	value, typeID, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}
	t.dropped(handle, typeID, value)
	return value, nil
}

// RemoveTyped drops a resource only if it was inserted with typeID.
// A handle of another type stays live.
func (t *Table) RemoveTyped(handle Handle, typeID uint32) (any, error) {
	value, err := t.backend.DropTyped(handle, typeID)
	if err != nil {
		return nil, err
	}
	t.dropped(handle, typeID, value)
	return value, nil
}

func (t *Table) dropped(handle Handle, typeID uint32, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. Observers must be comparable.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Clear drops all resources. It keeps going past failures and returns
// them joined.
func (t *Table) Clear() error {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})
	var errs []error
	for _, h := range handles {
		if _, err := t.Remove(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases all resources and stops accepting new ones.
func (t *Table) Close() error {
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Resolve returns the value behind handle as T. The handle must be live
// and must have been inserted with typeID.
func Resolve[T any](t *Table, handle Handle, typeID uint32) (T, error) {
	var zero T
	value, err := t.GetTyped(handle, typeID)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, errors.New(errors.PhaseHandle, errors.KindTypeMismatch).
			Value(uint64(handle)).
			Detail("handle %s holds %T, want %T", handle, value, zero).
			Build()
	}
	return typed, nil
}

// Typed is a TypedTable view of one type ID in a Table.
type Typed[T any] struct {
	table  *Table
	typeID uint32
}

var _ TypedTable[int] = (*Typed[int])(nil)

// NewTyped returns a typed view of table for values inserted with typeID.
func NewTyped[T any](table *Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, error) {
	return Resolve[T](t.table, handle, t.typeID)
}

// Remove drops a resource and returns its value. A handle whose value is
// not a T is left live.
func (t *Typed[T]) Remove(handle Handle) (T, error) {
	var zero T
	if _, err := Resolve[T](t.table, handle, t.typeID); err != nil {
		return zero, err
	}
	value, err := t.table.RemoveTyped(handle, t.typeID)
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// Len returns the number of active resources of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, typeID uint32, _ any) bool {
		if typeID == t.typeID {
			n++
		}
		return true
	})
	return n
}

// Each iterates over all active resources of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, value any) bool {
		if typeID != t.typeID {
			return true
		}
		typed, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
