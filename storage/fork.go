package storage

import (
	"bytes"

	"github.com/google/btree"

	"github.com/wippyai/indexbind/errors"
)

type change struct {
	key     []byte
	value   []byte
	deleted bool
}

func lessChange(a, b change) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type savepoint struct {
	tree  *btree.BTreeG[item]
	patch *btree.BTreeG[change]
}

// Fork is a mutable view. Writes are buffered in the fork and reach the
// database only through Database.Merge. A Fork is not safe for concurrent
// use; callers serialize every access to one fork.
type Fork struct {
	db         *Database
	tree       *btree.BTreeG[item]
	patch      *btree.BTreeG[change]
	saved      savepoint
	generation uint64
	sealed     bool
}

func newFork(db *Database, tree *btree.BTreeG[item], generation uint64) *Fork {
	f := &Fork{
		db:         db,
		tree:       tree,
		patch:      btree.NewG(db.degree, lessChange),
		generation: generation,
	}
	f.Checkpoint()
	return f
}

func (f *Fork) Get(key []byte) ([]byte, bool) {
	return get(f.tree, key)
}

func (f *Fork) Contains(key []byte) bool {
	return f.tree.Has(item{key: key})
}

func (f *Fork) Ascend(from []byte, fn func(key, value []byte) bool) {
	ascend(f.tree, from, fn)
}

// Put stores a copy of key and value.
func (f *Fork) Put(key, value []byte) error {
	if f.sealed {
		return errors.Closed(errors.PhaseStorage, "fork")
	}
	k := bytes.Clone(key)
	v := append([]byte{}, value...)
	f.tree.ReplaceOrInsert(item{key: k, value: v})
	f.patch.ReplaceOrInsert(change{key: k, value: v})
	return nil
}

func (f *Fork) Delete(key []byte) error {
	if f.sealed {
		return errors.Closed(errors.PhaseStorage, "fork")
	}
	f.remove(bytes.Clone(key))
	return nil
}

// DeletePrefix removes every key starting with prefix and returns how many
// keys were removed.
func (f *Fork) DeletePrefix(prefix []byte) (int, error) {
	if f.sealed {
		return 0, errors.Closed(errors.PhaseStorage, "fork")
	}
	keys := collectPrefix(f.tree, prefix)
	for _, k := range keys {
		f.remove(k)
	}
	return len(keys), nil
}

func (f *Fork) remove(key []byte) {
	f.tree.Delete(item{key: key})
	f.patch.ReplaceOrInsert(change{key: key, deleted: true})
}

// Snapshot returns an immutable view of the fork's current state. Later
// writes to the fork are not visible through it.
func (f *Fork) Snapshot() *Snapshot {
	return &Snapshot{
		tree:       f.tree.Clone(),
		dbID:       f.db.id,
		generation: f.generation,
	}
}

// Checkpoint marks the current state as the one Rollback returns to.
func (f *Fork) Checkpoint() {
	f.saved = savepoint{
		tree:  f.tree.Clone(),
		patch: f.patch.Clone(),
	}
}

// Rollback discards every change made since the last Checkpoint, or since
// the fork was created.
func (f *Fork) Rollback() {
	f.tree = f.saved.tree.Clone()
	f.patch = f.saved.patch.Clone()
}

// Changes returns the number of keys written or deleted in the fork.
func (f *Fork) Changes() int {
	return f.patch.Len()
}

// Sealed reports whether the fork was merged.
func (f *Fork) Sealed() bool {
	return f.sealed
}

// Generation returns the merge generation the fork was created at.
func (f *Fork) Generation() uint64 {
	return f.generation
}
