// Package postgres implements ingest.Store on PostgreSQL via pgx/v5.
// Batch inserts use the COPY protocol inside the load transaction, so a
// failed load leaves the destination table untouched.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/datalift/ingest/internal/ingest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgDuplicateTable is the SQLSTATE Postgres raises for CREATE TABLE
// against an existing relation.
const pgDuplicateTable = "42P07"

// Store implements ingest.Store backed by a pgx connection pool. Each
// transaction checks out its own connection, so concurrent dataset loads
// cannot roll each other back.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The caller owns the pool's lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateTable(ctx context.Context, name string, schema ingest.Schema) error {
	if _, err := s.pool.Exec(ctx, createTableSQL(name, schema)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateTable {
			return &ingest.TableAlreadyExistsError{Table: name}
		}
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return exists, nil
}

func (s *Store) CountRows(ctx context.Context, name string) (int64, error) {
	var count int64
	sql := fmt.Sprintf(`SELECT count(*) FROM %s`, pgx.Identifier{name}.Sanitize())
	if err := s.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows %s: %w", name, err)
	}
	return count, nil
}

func (s *Store) InTransaction(ctx context.Context, fn func(tx ingest.BatchWriter) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgTx.Rollback(ctx)

	if err := fn(&txWriter{tx: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txWriter struct {
	tx pgx.Tx
}

// InsertBatch converts raw CSV values per the inferred column types and
// streams them through COPY.
func (w *txWriter) InsertBatch(ctx context.Context, tableName string, schema ingest.Schema, rows [][]string) error {
	values := make([][]any, len(rows))
	for i, row := range rows {
		converted, err := convertRow(row, schema)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		values[i] = converted
	}

	_, err := w.tx.CopyFrom(ctx, pgx.Identifier{tableName}, columnIdents(schema), pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", tableName, err)
	}
	return nil
}

// createTableSQL builds the DDL: a bigserial synthetic key plus one
// column per inferred field, typed by the fixed mapping. The key is
// named _row_id so a source column named "id" cannot collide with it.
func createTableSQL(name string, schema ingest.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgx.Identifier{name}.Sanitize())
	b.WriteString(" (_row_id BIGSERIAL PRIMARY KEY")
	for _, col := range schema {
		b.WriteString(", ")
		b.WriteString(pgx.Identifier{col.Name}.Sanitize())
		b.WriteString(" ")
		b.WriteString(storageType(col.Type))
	}
	b.WriteString(")")
	return b.String()
}

// storageType is the fixed inferred-type to Postgres-type mapping.
func storageType(t ingest.ColumnType) string {
	switch t {
	case ingest.TypeInt32:
		return "INTEGER"
	case ingest.TypeInt64:
		return "BIGINT"
	case ingest.TypeFloat64:
		return "DOUBLE PRECISION"
	case ingest.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func columnIdents(schema ingest.Schema) []string {
	return schema.Names()
}
