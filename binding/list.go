package binding

import (
	"github.com/wippyai/indexbind/index"
	"github.com/wippyai/indexbind/resource"
	"github.com/wippyai/indexbind/storage"
)

// ListCreate returns a handle to the list name over view. The list is
// read-only when view is a snapshot.
func (b *Binding) ListCreate(name string, view resource.Handle) (resource.Handle, error) {
	return guard(b, "list_create", func() (resource.Handle, error) {
		addr, err := index.NewAddress(name)
		if err != nil {
			return 0, err
		}
		return b.createList(addr, view)
	})
}

// ListCreateInGroup returns a handle to the list stored under key in group.
func (b *Binding) ListCreateInGroup(group string, key []byte, view resource.Handle) (resource.Handle, error) {
	return guard(b, "list_create_in_group", func() (resource.Handle, error) {
		addr, err := index.InGroup(group, key)
		if err != nil {
			return 0, err
		}
		return b.createList(addr, view)
	})
}

func (b *Binding) createList(addr index.Address, view resource.Handle) (resource.Handle, error) {
	v, err := resolve[storage.View](b, view, TypeView)
	if err != nil {
		return 0, err
	}
	return b.insert(TypeList, newListVariant(addr, v))
}

func (b *Binding) list(h resource.Handle) (*ListVariant, error) {
	return resolve[*ListVariant](b, h, TypeList)
}

// ListFree invalidates a list handle. Iterators created from the list are
// not affected.
func (b *Binding) ListFree(list resource.Handle) error {
	return b.Guard("list_free", func() error {
		return b.free(list, TypeList)
	})
}

// ListGet returns the value at pos, or nil if pos is out of range. A
// present value is never nil.
func (b *Binding) ListGet(list resource.Handle, pos int64) ([]byte, error) {
	return guard(b, "list_get", func() ([]byte, error) {
		i, err := Position(pos)
		if err != nil {
			return nil, err
		}
		l, err := b.list(list)
		if err != nil {
			return nil, err
		}
		v, _ := l.reader().Get(i)
		return v, nil
	})
}

// ListGetLast returns the last value, or nil if the list is empty.
func (b *Binding) ListGetLast(list resource.Handle) ([]byte, error) {
	return guard(b, "list_get_last", func() ([]byte, error) {
		l, err := b.list(list)
		if err != nil {
			return nil, err
		}
		v, _ := l.reader().Last()
		return v, nil
	})
}

// ListIsEmpty reports whether the list has no values.
func (b *Binding) ListIsEmpty(list resource.Handle) (bool, error) {
	return guard(b, "list_is_empty", func() (bool, error) {
		l, err := b.list(list)
		if err != nil {
			return false, err
		}
		return l.reader().IsEmpty(), nil
	})
}

// ListSize returns the number of values in the list.
func (b *Binding) ListSize(list resource.Handle) (int64, error) {
	return guard(b, "list_size", func() (int64, error) {
		l, err := b.list(list)
		if err != nil {
			return 0, err
		}
		return size(l.reader().Len())
	})
}

// ListIter returns an iterator over the list as it is now.
func (b *Binding) ListIter(list resource.Handle) (resource.Handle, error) {
	return guard(b, "list_iter", func() (resource.Handle, error) {
		l, err := b.list(list)
		if err != nil {
			return 0, err
		}
		return b.insert(TypeListIterator, l.reader().Iter())
	})
}

// ListIterFrom returns an iterator starting at from.
func (b *Binding) ListIterFrom(list resource.Handle, from int64) (resource.Handle, error) {
	return guard(b, "list_iter_from", func() (resource.Handle, error) {
		i, err := Position(from)
		if err != nil {
			return 0, err
		}
		l, err := b.list(list)
		if err != nil {
			return 0, err
		}
		return b.insert(TypeListIterator, l.reader().IterFrom(i))
	})
}

// ListAdd appends v. It fails with a protocol violation on a snapshot
// list.
func (b *Binding) ListAdd(list resource.Handle, v []byte) error {
	return b.Guard("list_add", func() error {
		w, err := b.writer(list, "list_add")
		if err != nil {
			return err
		}
		return w.Push(v)
	})
}

// ListExtend appends every value in order.
func (b *Binding) ListExtend(list resource.Handle, values [][]byte) error {
	return b.Guard("list_extend", func() error {
		w, err := b.writer(list, "list_extend")
		if err != nil {
			return err
		}
		return w.Extend(values...)
	})
}

// ListRemoveLast removes and returns the last value, or nil if the list is
// empty.
func (b *Binding) ListRemoveLast(list resource.Handle) ([]byte, error) {
	return guard(b, "list_remove_last", func() ([]byte, error) {
		w, err := b.writer(list, "list_remove_last")
		if err != nil {
			return nil, err
		}
		v, _, err := w.Pop()
		return v, err
	})
}

// ListTruncate keeps the first n values.
func (b *Binding) ListTruncate(list resource.Handle, n int64) error {
	return b.Guard("list_truncate", func() error {
		length, err := Position(n)
		if err != nil {
			return err
		}
		w, err := b.writer(list, "list_truncate")
		if err != nil {
			return err
		}
		return w.Truncate(length)
	})
}

// ListSet overwrites the value at pos. pos must be below the list size.
func (b *Binding) ListSet(list resource.Handle, pos int64, v []byte) error {
	return b.Guard("list_set", func() error {
		i, err := Position(pos)
		if err != nil {
			return err
		}
		w, err := b.writer(list, "list_set")
		if err != nil {
			return err
		}
		return w.Set(i, v)
	})
}

// ListClear removes every value. It fails with a protocol violation on a
// snapshot list.
func (b *Binding) ListClear(list resource.Handle) error {
	return b.Guard("list_clear", func() error {
		w, err := b.writer(list, "list_clear")
		if err != nil {
			return err
		}
		return w.Clear()
	})
}

func (b *Binding) writer(list resource.Handle, op string) (*index.MutableList, error) {
	l, err := b.list(list)
	if err != nil {
		return nil, err
	}
	return l.writer(op)
}
