// Package memory provides an in-memory ingest.Store with real
// staging-then-commit transaction semantics. It backs the test suite and
// the memory:// destination used for dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/datalift/ingest/internal/ingest"
)

type table struct {
	schema ingest.Schema
	rows   [][]string
}

// Store implements ingest.Store. Safe for concurrent use by multiple
// dataset tasks.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table

	// batchLog records the size of every attempted insert per table,
	// including inserts later rolled back. Tests assert batching
	// behavior through it.
	batchLog map[string][]int

	// InsertErr, when set, is consulted before each batch insert and can
	// inject failures. rowsSoFar counts rows already staged in the
	// current transaction.
	InsertErr func(tableName string, rowsSoFar int) error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tables:   make(map[string]*table),
		batchLog: make(map[string][]int),
	}
}

func (s *Store) CreateTable(_ context.Context, name string, schema ingest.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; ok {
		return &ingest.TableAlreadyExistsError{Table: name}
	}
	s.tables[name] = &table{schema: append(ingest.Schema(nil), schema...)}
	return nil
}

func (s *Store) TableExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tables[name]
	return ok, nil
}

func (s *Store) CountRows(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return 0, fmt.Errorf("no such table %s", name)
	}
	return int64(len(t.rows)), nil
}

// InTransaction stages all writes and merges them only when fn succeeds,
// mirroring the rollback behavior of the SQL stores.
func (s *Store) InTransaction(ctx context.Context, fn func(tx ingest.BatchWriter) error) error {
	tx := &memTx{store: s, staged: make(map[string][][]string)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, rows := range tx.staged {
		t, ok := s.tables[name]
		if !ok {
			return fmt.Errorf("no such table %s", name)
		}
		t.rows = append(t.rows, rows...)
	}
	return nil
}

// Rows returns a copy of a committed table's rows, or nil if absent.
func (s *Store) Rows(name string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	return append([][]string(nil), t.rows...)
}

// Schema returns the schema a table was provisioned with.
func (s *Store) Schema(name string) ingest.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	return append(ingest.Schema(nil), t.schema...)
}

// BatchSizes returns the sizes of all insert attempts against a table.
func (s *Store) BatchSizes(name string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.batchLog[name]...)
}

type memTx struct {
	store  *Store
	staged map[string][][]string
}

func (tx *memTx) InsertBatch(ctx context.Context, tableName string, schema ingest.Schema, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if tx.store.InsertErr != nil {
		if err := tx.store.InsertErr(tableName, len(tx.staged[tableName])); err != nil {
			return err
		}
	}

	tx.store.mu.Lock()
	t, ok := tx.store.tables[tableName]
	if ok {
		tx.store.batchLog[tableName] = append(tx.store.batchLog[tableName], len(rows))
	}
	tx.store.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such table %s", tableName)
	}

	for _, row := range rows {
		if len(row) != len(t.schema) {
			return fmt.Errorf("table %s: row has %d values, schema has %d columns", tableName, len(row), len(t.schema))
		}
		tx.staged[tableName] = append(tx.staged[tableName], append([]string(nil), row...))
	}
	return nil
}
