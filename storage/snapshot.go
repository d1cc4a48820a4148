package storage

import (
	"bytes"

	"github.com/google/btree"
)

// Access is the read surface shared by Snapshot and Fork. Returned slices
// belong to the view and must not be modified.
type Access interface {
	Get(key []byte) ([]byte, bool)
	Contains(key []byte) bool
	// Ascend calls fn for every key >= from in order until fn returns false.
	Ascend(from []byte, fn func(key, value []byte) bool)
}

// Snapshot is an immutable view. It is safe for concurrent reads.
type Snapshot struct {
	tree       *btree.BTreeG[item]
	dbID       string
	generation uint64
}

var (
	_ Access = (*Snapshot)(nil)
	_ Access = (*Fork)(nil)
)

func (s *Snapshot) Get(key []byte) ([]byte, bool) {
	return get(s.tree, key)
}

func (s *Snapshot) Contains(key []byte) bool {
	return s.tree.Has(item{key: key})
}

func (s *Snapshot) Ascend(from []byte, fn func(key, value []byte) bool) {
	ascend(s.tree, from, fn)
}

// Generation returns the merge generation the snapshot was taken at.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// DatabaseID returns the ID of the database the snapshot was taken from.
func (s *Snapshot) DatabaseID() string {
	return s.dbID
}

func get(tree *btree.BTreeG[item], key []byte) ([]byte, bool) {
	it, ok := tree.Get(item{key: key})
	if !ok {
		return nil, false
	}
	return it.value, true
}

func ascend(tree *btree.BTreeG[item], from []byte, fn func(key, value []byte) bool) {
	tree.AscendGreaterOrEqual(item{key: from}, func(it item) bool {
		return fn(it.key, it.value)
	})
}

func collectPrefix(tree *btree.BTreeG[item], prefix []byte) [][]byte {
	var keys [][]byte
	ascend(tree, prefix, func(key, _ []byte) bool {
		if !bytes.HasPrefix(key, prefix) {
			return false
		}
		keys = append(keys, key)
		return true
	})
	return keys
}
