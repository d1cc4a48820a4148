package binding

import (
	"github.com/wippyai/indexbind/index"
	"github.com/wippyai/indexbind/resource"
)

func (b *Binding) iterator(h resource.Handle) (*index.ListIterator, error) {
	return resolve[*index.ListIterator](b, h, TypeListIterator)
}

// ListIterNext returns the next value, or nil once the iterator is
// exhausted. Exhaustion is not an error.
func (b *Binding) ListIterNext(it resource.Handle) ([]byte, error) {
	return guard(b, "list_iter_next", func() ([]byte, error) {
		i, err := b.iterator(it)
		if err != nil {
			return nil, err
		}
		v, _ := i.Next()
		return v, nil
	})
}

// ListIterPeek returns the value ListIterNext would return without
// advancing.
func (b *Binding) ListIterPeek(it resource.Handle) ([]byte, error) {
	return guard(b, "list_iter_peek", func() ([]byte, error) {
		i, err := b.iterator(it)
		if err != nil {
			return nil, err
		}
		v, _ := i.Peek()
		return v, nil
	})
}

// ListIterFree invalidates an iterator handle.
func (b *Binding) ListIterFree(it resource.Handle) error {
	return b.Guard("list_iter_free", func() error {
		return b.free(it, TypeListIterator)
	})
}
