package binding

import (
	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/index"
	"github.com/wippyai/indexbind/storage"
)

// ListVariant is a list bound either to a snapshot, read-only, or to a
// fork. Exactly one field is set.
type ListVariant struct {
	readOnly *index.List
	mutable  *index.MutableList
}

func newListVariant(addr index.Address, view storage.View) *ListVariant {
	if fork, ok := view.Fork(); ok {
		return &ListVariant{mutable: index.NewMutableList(addr, fork)}
	}
	return &ListVariant{readOnly: index.NewList(addr, view)}
}

func (v *ListVariant) reader() *index.List {
	if v.mutable != nil {
		return &v.mutable.List
	}
	return v.readOnly
}

func (v *ListVariant) writer(op string) (*index.MutableList, error) {
	if v.mutable == nil {
		return nil, errors.ReadOnly(op)
	}
	return v.mutable, nil
}

// IsMutable reports whether the list is bound to a fork.
func (v *ListVariant) IsMutable() bool {
	return v.mutable != nil
}

// Address returns the address the list was created with.
func (v *ListVariant) Address() index.Address {
	return v.reader().Address()
}
