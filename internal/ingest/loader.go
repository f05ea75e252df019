package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultBatchSize bounds in-memory rows when the configuration does not
// say otherwise. Batches cap memory use; they are not commit boundaries.
const DefaultBatchSize = 50

// Loader streams a source file's rows into a destination table inside
// one transaction spanning the entire file.
//
// The parser and the inserter are decoupled by an unbuffered channel:
// the parser blocks while a batch insert is in flight, so memory stays
// O(batch size) regardless of file size. Any insert or parse failure
// rolls the whole transaction back; the table gains exactly the source's
// row count or nothing.
type Loader struct {
	Store Store

	// BatchSize is the number of rows per insert. Zero or negative means
	// DefaultBatchSize.
	BatchSize int
}

// Load streams d.SourceFile into d.Table and returns the number of rows
// committed. Failures surface as *LoadError with the transaction rolled
// back.
func (l *Loader) Load(ctx context.Context, d Dataset, schema Schema) (int64, error) {
	batchSize := l.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	r, closer, err := openCSV(d.SourceFile)
	if err != nil {
		return 0, &LoadError{Table: d.Table, Err: err}
	}
	defer closer.Close()

	header, err := readHeader(r, d.SourceFile)
	if err != nil {
		return 0, &LoadError{Table: d.Table, Err: err}
	}
	if err := matchHeader(header, schema, d.SourceFile); err != nil {
		return 0, &LoadError{Table: d.Table, Err: err}
	}

	// Producer: parse rows and hand them over one at a time. The send
	// blocks until the consumer is ready, which is the backpressure that
	// keeps the parser from outrunning the inserter.
	rows := make(chan []string)
	parseErr := make(chan error, 1)
	go func() {
		defer close(rows)
		for {
			row, err := r.Read()
			if errors.Is(err, io.EOF) {
				parseErr <- nil
				return
			}
			if err != nil {
				parseErr <- fmt.Errorf("parse %s: %w", d.SourceFile, err)
				return
			}
			if isEmptyRow(row) {
				continue
			}
			select {
			case rows <- row:
			case <-ctx.Done():
				parseErr <- ctx.Err()
				return
			}
		}
	}()

	var total int64
	err = l.Store.InTransaction(ctx, func(tx BatchWriter) error {
		batch := make([][]string, 0, batchSize)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := tx.InsertBatch(ctx, d.Table, schema, batch); err != nil {
				return err
			}
			total += int64(len(batch))
			batch = batch[:0]
			return nil
		}

		for row := range rows {
			batch = append(batch, row)
			if len(batch) == batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := <-parseErr; err != nil {
			return err
		}
		// Remaining partial batch at end of file.
		return flush()
	})
	if err != nil {
		// Drain the producer so its goroutine exits even when the
		// transaction failed mid-file.
		for range rows {
		}
		return 0, &LoadError{Table: d.Table, Err: err}
	}

	return total, nil
}

// matchHeader verifies the file's header still matches the schema the
// table was provisioned from: same column names in the same order.
func matchHeader(header []string, schema Schema, path string) error {
	if len(header) != len(schema) {
		return fmt.Errorf("%s: header has %d columns, schema has %d", path, len(header), len(schema))
	}
	for i, name := range header {
		if name != schema[i].Name {
			return fmt.Errorf("%s: header column %d is %q, schema expects %q", path, i, name, schema[i].Name)
		}
	}
	return nil
}
