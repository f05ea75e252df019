// Package sqlite implements ingest.Store on a local SQLite file via
// database/sql and mattn/go-sqlite3. It serves file-backed destinations
// and local smoke runs where no Postgres is available.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/datalift/ingest/internal/ingest"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements ingest.Store. SQLite allows one writer at a time;
// concurrent dataset transactions serialize on the write lock, which is
// correct if slower than Postgres.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Busy timeout so concurrent dataset writers wait for the lock
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateTable(ctx context.Context, name string, schema ingest.Schema) error {
	// SQLite reports an existing table as a generic error; check first
	// so the caller gets the typed failure the guard contract names.
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return &ingest.TableAlreadyExistsError{Table: name}
	}

	if _, err := s.db.ExecContext(ctx, createTableSQL(name, schema)); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return count > 0, nil
}

func (s *Store) CountRows(ctx context.Context, name string) (int64, error) {
	var count int64
	sql := fmt.Sprintf(`SELECT count(*) FROM %s`, quoteIdent(name))
	if err := s.db.QueryRowContext(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows %s: %w", name, err)
	}
	return count, nil
}

func (s *Store) InTransaction(ctx context.Context, fn func(tx ingest.BatchWriter) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txWriter{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txWriter struct {
	tx *sql.Tx
}

// InsertBatch issues one multi-row INSERT per batch.
func (w *txWriter) InsertBatch(ctx context.Context, tableName string, schema ingest.Schema, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(tableName))
	b.WriteString(" (")
	for i, col := range schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col.Name))
	}
	b.WriteString(") VALUES ")

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(schema)), ", ") + ")"
	args := make([]any, 0, len(rows)*len(schema))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholder)

		converted, err := convertRow(row, schema)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		args = append(args, converted...)
	}

	if _, err := w.tx.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", tableName, err)
	}
	return nil
}

// createTableSQL builds the DDL: an autoincrement synthetic key plus one
// column per inferred field, typed by the fixed mapping. The key is
// named _row_id so a source column named "id" cannot collide with it.
func createTableSQL(name string, schema ingest.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (_row_id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, col := range schema {
		b.WriteString(", ")
		b.WriteString(quoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(storageType(col.Type))
	}
	b.WriteString(")")
	return b.String()
}

// storageType is the fixed inferred-type to SQLite-type mapping.
func storageType(t ingest.ColumnType) string {
	switch t {
	case ingest.TypeInt32, ingest.TypeInt64:
		return "INTEGER"
	case ingest.TypeFloat64:
		return "REAL"
	case ingest.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
