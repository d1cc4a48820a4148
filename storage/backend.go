package storage

import (
	"bytes"
	"database/sql"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wippyai/indexbind/errors"
)

// Record is one persisted key/value pair.
type Record struct {
	Key   []byte
	Value []byte
}

// Meta identifies a persisted database and the last merged generation.
type Meta struct {
	ID         string
	Generation uint64
}

// Batch is the unit a Backend commits atomically.
type Batch struct {
	Puts    []Record
	Deletes [][]byte
	Meta    Meta
}

// Backend persists the state behind a Database. Commit must apply a whole
// Batch or nothing.
type Backend interface {
	LoadAll() ([]Record, error)
	LoadMeta() (Meta, error)
	Commit(b Batch) error
	Close() error
}

// MemoryBackend keeps committed state in a map. It is the backend of
// databases without a storage path.
type MemoryBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	meta    Meta
	commits int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) LoadAll() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]Record, 0, len(m.data))
	for k, v := range m.data {
		records = append(records, Record{Key: []byte(k), Value: v})
	}
	slices.SortFunc(records, func(a, b Record) int {
		return bytes.Compare(a.Key, b.Key)
	})
	return records, nil
}

func (m *MemoryBackend) LoadMeta() (Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta, nil
}

func (m *MemoryBackend) Commit(b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range b.Deletes {
		delete(m.data, string(k))
	}
	for _, r := range b.Puts {
		m.data[string(r.Key)] = r.Value
	}
	m.meta = b.Meta
	m.commits++
	return nil
}

// Commits returns how many batches were committed.
func (m *MemoryBackend) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *MemoryBackend) Close() error {
	return nil
}

// SQLiteBackend persists records in a single SQLite file.
type SQLiteBackend struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.IO("open sqlite "+path, err)
	}
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE IF NOT EXISTS data (
		key BLOB PRIMARY KEY,
		value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, errors.IO("init tables", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		Logger().Warn("failed to set sqlite pragma", zap.String("path", path), zap.Error(err))
	}

	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) LoadAll() ([]Record, error) {
	rows, err := s.db.Query("SELECT key, value FROM data ORDER BY key ASC")
	if err != nil {
		return nil, errors.IO("load records", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.IO("scan record", err)
		}
		if v == nil {
			v = []byte{}
		}
		records = append(records, Record{Key: k, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IO("load records", err)
	}
	return records, nil
}

func (s *SQLiteBackend) LoadMeta() (Meta, error) {
	var meta Meta

	rows, err := s.db.Query("SELECT name, value FROM meta")
	if err != nil {
		return meta, errors.IO("load meta", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return meta, errors.IO("scan meta", err)
		}
		switch name {
		case "id":
			meta.ID = value
		case "generation":
			g, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return meta, errors.IO("parse generation "+value, err)
			}
			meta.Generation = g
		}
	}
	if err := rows.Err(); err != nil {
		return meta, errors.IO("load meta", err)
	}
	return meta, nil
}

func (s *SQLiteBackend) Commit(b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.IO("begin", err)
	}

	if err := commitBatch(tx, b); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.IO("commit", err)
	}
	return nil
}

func commitBatch(tx *sql.Tx, b Batch) error {
	if len(b.Deletes) > 0 {
		del, err := tx.Prepare("DELETE FROM data WHERE key = ?")
		if err != nil {
			return errors.IO("prepare delete", err)
		}
		defer del.Close()
		for _, k := range b.Deletes {
			if _, err := del.Exec(k); err != nil {
				return errors.IO("delete record", err)
			}
		}
	}

	if len(b.Puts) > 0 {
		put, err := tx.Prepare("INSERT OR REPLACE INTO data (key, value) VALUES (?, ?)")
		if err != nil {
			return errors.IO("prepare put", err)
		}
		defer put.Close()
		for _, r := range b.Puts {
			value := r.Value
			if value == nil {
				value = []byte{}
			}
			if _, err := put.Exec(r.Key, value); err != nil {
				return errors.IO("put record", err)
			}
		}
	}

	meta := [][2]string{
		{"id", b.Meta.ID},
		{"generation", strconv.FormatUint(b.Meta.Generation, 10)},
	}
	for _, m := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (name, value) VALUES (?, ?)", m[0], m[1]); err != nil {
			return errors.IO("write meta", err)
		}
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.IO("close sqlite", err)
	}
	return nil
}
