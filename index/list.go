// Package index implements ordered lists of byte values over a storage
// view. A List only reads; a MutableList writes through a Fork.
//
// A list stores its length under prefix‖0x00 and element i under
// prefix‖0x01‖i as a big-endian uint64, so elements sort by position.
package index

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/indexbind/storage"
)

// List reads a list laid out under its address in a view. Reads through a
// fork see the fork's uncommitted writes.
type List struct {
	addr   Address
	view   storage.View
	prefix []byte
}

// NewList returns a read-only list over view. The view must outlive the
// list.
func NewList(addr Address, view storage.View) *List {
	return &List{addr: addr, view: view, prefix: addr.prefix()}
}

func (l *List) Address() Address {
	return l.addr
}

func (l *List) lengthKey() []byte {
	key := make([]byte, 0, len(l.prefix)+1)
	key = append(key, l.prefix...)
	return append(key, lengthTag)
}

func (l *List) elementKey(i uint64) []byte {
	key := make([]byte, 0, len(l.prefix)+9)
	key = append(key, l.prefix...)
	key = append(key, elementTag)
	return binary.BigEndian.AppendUint64(key, i)
}

// Len returns the number of elements. It panics if the stored length is
// corrupt.
func (l *List) Len() uint64 {
	raw, ok := l.view.Access().Get(l.lengthKey())
	if !ok {
		return 0
	}
	if len(raw) != 8 {
		panic(fmt.Sprintf("index: corrupt length of list %s: %d bytes", l.addr, len(raw)))
	}
	return binary.BigEndian.Uint64(raw)
}

func (l *List) IsEmpty() bool {
	return l.Len() == 0
}

// Get returns a copy of element i. Positions at or past Len are absent.
func (l *List) Get(i uint64) ([]byte, bool) {
	if i >= l.Len() {
		return nil, false
	}
	return l.element(i)
}

func (l *List) element(i uint64) ([]byte, bool) {
	v, ok := l.view.Access().Get(l.elementKey(i))
	if !ok {
		panic(fmt.Sprintf("index: list %s is missing element %d", l.addr, i))
	}
	// never nil, so an empty value stays distinct from absent
	return append([]byte{}, v...), true
}

// Last returns a copy of the last element.
func (l *List) Last() ([]byte, bool) {
	n := l.Len()
	if n == 0 {
		return nil, false
	}
	return l.element(n - 1)
}

// Iter returns an iterator over the list as it is now.
func (l *List) Iter() *ListIterator {
	return l.IterFrom(0)
}

// IterFrom returns an iterator starting at from. A start at or past Len
// yields an exhausted iterator.
func (l *List) IterFrom(from uint64) *ListIterator {
	snap := NewList(l.addr, storage.SnapshotView(l.view.PointInTime()))
	return &ListIterator{
		list: snap,
		pos:  from,
		end:  snap.Len(),
	}
}
