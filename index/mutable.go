package index

import (
	"encoding/binary"

	"github.com/wippyai/indexbind/errors"
	"github.com/wippyai/indexbind/storage"
)

// MutableList is a list bound to a Fork. It is not safe for concurrent use,
// and neither is any other list sharing its fork.
type MutableList struct {
	List
	fork *storage.Fork
}

// NewMutableList returns the list at addr writing into fork.
func NewMutableList(addr Address, fork *storage.Fork) *MutableList {
	return &MutableList{
		List: List{addr: addr, view: storage.ForkView(fork), prefix: addr.prefix()},
		fork: fork,
	}
}

func (l *MutableList) setLen(n uint64) error {
	if n == 0 {
		return l.fork.Delete(l.lengthKey())
	}
	return l.fork.Put(l.lengthKey(), binary.BigEndian.AppendUint64(nil, n))
}

// Push appends v.
func (l *MutableList) Push(v []byte) error {
	n := l.Len()
	if err := l.fork.Put(l.elementKey(n), v); err != nil {
		return err
	}
	return l.setLen(n + 1)
}

// Extend appends every value in order.
func (l *MutableList) Extend(values ...[]byte) error {
	n := l.Len()
	for _, v := range values {
		if err := l.fork.Put(l.elementKey(n), v); err != nil {
			return err
		}
		n++
	}
	return l.setLen(n)
}

// Pop removes and returns the last element.
func (l *MutableList) Pop() ([]byte, bool, error) {
	n := l.Len()
	if n == 0 {
		return nil, false, nil
	}
	v, _ := l.element(n - 1)
	if err := l.fork.Delete(l.elementKey(n - 1)); err != nil {
		return nil, false, err
	}
	if err := l.setLen(n - 1); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Truncate keeps the first n elements. It does nothing if the list is not
// longer than n.
func (l *MutableList) Truncate(n uint64) error {
	length := l.Len()
	if n >= length {
		return nil
	}
	for i := n; i < length; i++ {
		if err := l.fork.Delete(l.elementKey(i)); err != nil {
			return err
		}
	}
	return l.setLen(n)
}

// Set overwrites element i. i must be below Len.
func (l *MutableList) Set(i uint64, v []byte) error {
	if n := l.Len(); i >= n {
		err := errors.OutOfBounds(errors.PhaseIndex, []string{l.addr.String()}, i, n)
		err.Op = "set"
		return err
	}
	return l.fork.Put(l.elementKey(i), v)
}

// Clear removes every element.
func (l *MutableList) Clear() error {
	_, err := l.fork.DeletePrefix(l.prefix)
	return err
}
