package ingest

import "context"

// Store is the destination relational store the pipeline writes to.
// Implementations live under internal/store; the core only speaks this
// interface so tests can run against the in-memory store.
type Store interface {
	// CreateTable provisions a table with a synthetic auto-increment
	// primary key plus one column per schema entry, using the store's
	// fixed type mapping. Returns *TableAlreadyExistsError if the table
	// is already present. DDL commits immediately; it is not part of any
	// load transaction.
	CreateTable(ctx context.Context, name string, schema Schema) error

	// TableExists reports whether the named table is present.
	TableExists(ctx context.Context, name string) (bool, error)

	// CountRows returns the table's current row count.
	CountRows(ctx context.Context, name string) (int64, error)

	// InTransaction runs fn inside a single transaction. If fn returns
	// an error the transaction is rolled back and nothing fn wrote is
	// visible; otherwise it commits atomically. Each call gets its own
	// session, so a rollback in one dataset cannot affect another.
	InTransaction(ctx context.Context, fn func(tx BatchWriter) error) error
}

// BatchWriter inserts row batches inside an open transaction. Rows are
// raw CSV string values in schema column order; the store converts them
// to its storage types.
type BatchWriter interface {
	InsertBatch(ctx context.Context, table string, schema Schema, rows [][]string) error
}

// Fetcher copies a remote archive to a local staging path. Implemented
// in internal/fetch; opaque to the pipeline.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Extractor unpacks a staged archive into a directory of plain files.
// Implemented in internal/extract; opaque to the pipeline.
type Extractor interface {
	Extract(ctx context.Context, archive, dir string) error
}
