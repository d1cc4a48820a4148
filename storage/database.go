// Package storage provides the views list indexes are built over: an
// ordered key space with immutable Snapshots and buffered, mutable Forks
// that are merged back atomically.
package storage

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/errors"
)

const defaultDegree = 32

type item struct {
	key   []byte
	value []byte
}

func lessItem(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

func newTree(degree int) *btree.BTreeG[item] {
	return btree.NewG(degree, lessItem)
}

// Database is the committed state. Snapshot and Fork are O(1): they share
// nodes with the committed tree copy-on-write.
type Database struct {
	mu         sync.Mutex
	id         string
	degree     int
	tree       *btree.BTreeG[item]
	generation uint64
	backend    Backend
	closed     bool
}

// NewMemoryDatabase returns a database that is never persisted.
func NewMemoryDatabase() *Database {
	db, err := newDatabase(NewMemoryBackend(), defaultDegree)
	if err != nil {
		// MemoryBackend never fails to load.
		panic(err)
	}
	return db
}

// Open opens the database described by cfg. An empty StoragePath yields a
// memory database.
func Open(cfg *configuration.Configuration) (*Database, error) {
	degree := cfg.BTreeDegree
	if degree < 2 {
		degree = defaultDegree
	}

	if cfg.StoragePath == "" {
		return newDatabase(NewMemoryBackend(), degree)
	}

	backend, err := NewSQLiteBackend(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	db, err := newDatabase(backend, degree)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return db, nil
}

// OpenBackend opens a database over an existing backend.
func OpenBackend(backend Backend) (*Database, error) {
	return newDatabase(backend, defaultDegree)
}

func newDatabase(backend Backend, degree int) (*Database, error) {
	meta, err := backend.LoadMeta()
	if err != nil {
		return nil, err
	}
	records, err := backend.LoadAll()
	if err != nil {
		return nil, err
	}

	tree := newTree(degree)
	for _, r := range records {
		tree.ReplaceOrInsert(item{key: r.Key, value: r.Value})
	}

	db := &Database{
		id:         meta.ID,
		degree:     degree,
		tree:       tree,
		generation: meta.Generation,
		backend:    backend,
	}

	if db.id == "" {
		db.id = uuid.New().String()
		if err := backend.Commit(Batch{Meta: Meta{ID: db.id}}); err != nil {
			return nil, err
		}
	}

	Logger().Debug("database opened",
		zap.String("db", db.id),
		zap.Uint64("generation", db.generation),
		zap.Int("records", tree.Len()))

	return db, nil
}

// ID returns the identity of the database. It survives reopening.
func (d *Database) ID() string {
	return d.id
}

// Generation returns the number of merges applied so far.
func (d *Database) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// Snapshot returns an immutable view of the committed state.
func (d *Database) Snapshot() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &Snapshot{
		tree:       d.tree.Clone(),
		dbID:       d.id,
		generation: d.generation,
	}
}

// Fork returns a mutable view over the committed state. Changes stay in
// the fork until Merge.
func (d *Database) Fork() *Fork {
	d.mu.Lock()
	defer d.mu.Unlock()
	return newFork(d, d.tree.Clone(), d.generation)
}

// Merge applies the changes buffered in f to the committed state and to the
// backend in one batch. A merged fork is sealed.
func (d *Database) Merge(f *Fork) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.Closed(errors.PhaseStorage, "database")
	}
	if f.db != d {
		return errors.New(errors.PhaseStorage, errors.KindInvalidInput).
			Op("merge").
			Detail("fork belongs to database %s", f.db.id).
			Build()
	}
	if f.sealed {
		return errors.Closed(errors.PhaseStorage, "fork")
	}

	batch := Batch{Meta: Meta{ID: d.id, Generation: d.generation + 1}}
	f.patch.Ascend(func(c change) bool {
		if c.deleted {
			batch.Deletes = append(batch.Deletes, c.key)
		} else {
			batch.Puts = append(batch.Puts, Record{Key: c.key, Value: c.value})
		}
		return true
	})

	if err := d.backend.Commit(batch); err != nil {
		return err
	}

	for _, k := range batch.Deletes {
		d.tree.Delete(item{key: k})
	}
	for _, r := range batch.Puts {
		d.tree.ReplaceOrInsert(item{key: r.Key, value: r.Value})
	}
	d.generation++
	f.sealed = true

	Logger().Info("fork merged",
		zap.String("db", d.id),
		zap.Uint64("generation", d.generation),
		zap.Int("puts", len(batch.Puts)),
		zap.Int("deletes", len(batch.Deletes)))

	return nil
}

// Close releases the backend. Views taken earlier stay readable.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.backend.Close()
}
