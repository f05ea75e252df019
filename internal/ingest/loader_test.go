package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/datalift/ingest/internal/ingest"
	"github.com/datalift/ingest/internal/store/memory"
)

func TestLoader_BatchSplit(t *testing.T) {
	store := memory.New()
	if err := store.CreateTable(context.Background(), "customers", testSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	d := ingest.Dataset{
		Name:       "customers",
		SourceFile: writeCSV(t, "customers.csv", "id,name", 25),
		Table:      "customers",
	}

	loader := &ingest.Loader{Store: store, BatchSize: 10}
	rows, err := loader.Load(context.Background(), d, testSchema)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rows != 25 {
		t.Errorf("Load() rows = %d, want 25", rows)
	}

	count, err := store.CountRows(context.Background(), "customers")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 25 {
		t.Errorf("committed rows = %d, want 25", count)
	}

	want := []int{10, 10, 5}
	got := store.BatchSizes("customers")
	if len(got) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, got[i], want[i])
		}
	}
}

// If insertion fails mid-file, the transaction rolls back and the table
// gains zero rows from the run; never a partial 10 or 14.
func TestLoader_MidFileFailureRollsBack(t *testing.T) {
	store := memory.New()
	if err := store.CreateTable(context.Background(), "customers", testSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	store.InsertErr = func(table string, rowsSoFar int) error {
		if rowsSoFar >= 10 {
			return fmt.Errorf("disk full")
		}
		return nil
	}

	d := ingest.Dataset{
		Name:       "customers",
		SourceFile: writeCSV(t, "customers.csv", "id,name", 25),
		Table:      "customers",
	}

	loader := &ingest.Loader{Store: store, BatchSize: 10}
	_, err := loader.Load(context.Background(), d, testSchema)

	var loadErr *ingest.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
	if loadErr.Table != "customers" {
		t.Errorf("LoadError.Table = %q, want %q", loadErr.Table, "customers")
	}

	count, err := store.CountRows(context.Background(), "customers")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after rollback = %d, want 0", count)
	}
}

func TestLoader_PartialFinalBatch(t *testing.T) {
	store := memory.New()
	if err := store.CreateTable(context.Background(), "t", testSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	d := ingest.Dataset{
		Name:       "t",
		SourceFile: writeCSV(t, "t.csv", "id,name", 3),
		Table:      "t",
	}

	loader := &ingest.Loader{Store: store, BatchSize: 10}
	rows, err := loader.Load(context.Background(), d, testSchema)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rows != 3 {
		t.Errorf("Load() rows = %d, want 3", rows)
	}

	got := store.BatchSizes("t")
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("batch sizes = %v, want [3]", got)
	}
}

func TestLoader_HeaderSchemaMismatch(t *testing.T) {
	store := memory.New()
	if err := store.CreateTable(context.Background(), "t", testSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	d := ingest.Dataset{
		Name:       "t",
		SourceFile: writeCSV(t, "t.csv", "id,renamed", 2),
		Table:      "t",
	}

	loader := &ingest.Loader{Store: store, BatchSize: 10}
	_, err := loader.Load(context.Background(), d, testSchema)

	var loadErr *ingest.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}

	count, _ := store.CountRows(context.Background(), "t")
	if count != 0 {
		t.Errorf("rows after header mismatch = %d, want 0", count)
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	store := memory.New()
	if err := store.CreateTable(context.Background(), "t", testSchema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := ingest.Dataset{
		Name:       "t",
		SourceFile: writeCSV(t, "t.csv", "id,name", 100),
		Table:      "t",
	}

	loader := &ingest.Loader{Store: store, BatchSize: 10}
	if _, err := loader.Load(ctx, d, testSchema); err == nil {
		t.Fatal("Load() = nil error with cancelled context")
	}

	count, _ := store.CountRows(context.Background(), "t")
	if count != 0 {
		t.Errorf("rows after cancellation = %d, want 0", count)
	}
}
