package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/datalift/ingest/internal/ingest"
	"github.com/datalift/ingest/internal/store/memory"
)

// stubFetcher stands in for the remote transfer: it just creates the
// staging file.
type stubFetcher struct {
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _, dest string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("archive"), 0o644)
}

// stubExtractor stands in for decompression: it writes the given files
// into the extraction directory.
type stubExtractor struct {
	files map[string]string
	err   error
}

func (e *stubExtractor) Extract(_ context.Context, _, dir string) error {
	if e.err != nil {
		return e.err
	}
	for name, content := range e.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func customersCSV(rows int) string {
	content := "id,name,signup_date\n"
	for i := 1; i <= rows; i++ {
		content += fmt.Sprintf("%d,Customer %d,2024-01-%02d\n", i, i, i%28+1)
	}
	return content
}

func organizationsCSV(rows int) string {
	content := "org_id,org_name,employees\n"
	for i := 1; i <= rows; i++ {
		content += fmt.Sprintf("%d,Org %d,%d\n", i, i, i*10)
	}
	return content
}

func testOrchestrator(t *testing.T, store *memory.Store, fetcher ingest.Fetcher, extractor ingest.Extractor, datasets ...ingest.Dataset) *ingest.Orchestrator {
	t.Helper()
	base := t.TempDir()
	if len(datasets) == 0 {
		datasets = []ingest.Dataset{
			{Name: "customers", SourceFile: "customers.csv", Table: "customers"},
			{Name: "organizations", SourceFile: "organizations.csv", Table: "organizations"},
		}
	}
	return ingest.NewOrchestrator(store, fetcher, extractor, datasets, ingest.Options{
		ArchiveURL:  "https://example.com/data.zip",
		ArchivePath: filepath.Join(base, "staging", "data.zip"),
		ExtractDir:  filepath.Join(base, "extracted"),
		SampleSize:  10,
		BatchSize:   10,
	}, nil)
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	store := memory.New()
	extractor := &stubExtractor{files: map[string]string{
		"customers.csv":     customersCSV(25),
		"organizations.csv": organizationsCSV(7),
	}}
	orch := testOrchestrator(t, store, &stubFetcher{}, extractor)

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := report.Loaded(); got != 32 {
		t.Errorf("report.Loaded() = %d, want 32", got)
	}

	for table, want := range map[string]int64{"customers": 25, "organizations": 7} {
		count, err := store.CountRows(context.Background(), table)
		if err != nil {
			t.Fatalf("CountRows(%s): %v", table, err)
		}
		if count != want {
			t.Errorf("%s rows = %d, want %d", table, count, want)
		}
	}

	schema := store.Schema("customers")
	want := ingest.Schema{
		{Name: "id", Type: ingest.TypeInt32},
		{Name: "name", Type: ingest.TypeString},
		{Name: "signup_date", Type: ingest.TypeTimestamp},
	}
	if len(schema) != len(want) {
		t.Fatalf("customers schema = %v, want %v", schema, want)
	}
	for i := range want {
		if schema[i] != want[i] {
			t.Errorf("customers column %d = %+v, want %+v", i, schema[i], want[i])
		}
	}

	for _, run := range report.Runs {
		if run.State != ingest.StateCommitted {
			t.Errorf("dataset %s state = %s, want %s", run.Dataset.Name, run.State, ingest.StateCommitted)
		}
		if run.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Errorf("dataset %s has zero run ID", run.Dataset.Name)
		}
	}
}

// Running twice against unchanged input must not duplicate rows: the
// second run finds equal counts and skips both datasets.
func TestOrchestrator_IdempotentRerun(t *testing.T) {
	store := memory.New()
	extractor := &stubExtractor{files: map[string]string{
		"customers.csv":     customersCSV(25),
		"organizations.csv": organizationsCSV(7),
	}}
	fetcher := &stubFetcher{}
	orch := testOrchestrator(t, store, fetcher, extractor)

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	report, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if got := report.Skipped(); got != 2 {
		t.Errorf("second run skipped = %d, want 2", got)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2 (fetch reruns, loads do not)", fetcher.calls)
	}

	count, err := store.CountRows(context.Background(), "customers")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 25 {
		t.Errorf("customers rows after rerun = %d, want 25", count)
	}
}

func TestOrchestrator_ExtractionFailure(t *testing.T) {
	store := memory.New()
	extractor := &stubExtractor{err: errors.New("corrupt archive")}
	orch := testOrchestrator(t, store, &stubFetcher{}, extractor)

	_, err := orch.Run(context.Background())

	var extractErr *ingest.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Run() error = %v, want *ExtractionError", err)
	}

	// The run failed before any dataset processing: no tables exist.
	for _, table := range []string{"customers", "organizations"} {
		exists, err := store.TableExists(context.Background(), table)
		if err != nil {
			t.Fatalf("TableExists(%s): %v", table, err)
		}
		if exists {
			t.Errorf("table %s exists after extraction failure", table)
		}
	}
}

func TestOrchestrator_FetchFailure(t *testing.T) {
	store := memory.New()
	orch := testOrchestrator(t, store, &stubFetcher{err: errors.New("connection refused")}, &stubExtractor{})

	_, err := orch.Run(context.Background())

	var fetchErr *ingest.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Run() error = %v, want *FetchError", err)
	}
	if fetchErr.URL != "https://example.com/data.zip" {
		t.Errorf("FetchError.URL = %q", fetchErr.URL)
	}
}

func TestOrchestrator_EmptyDatasetFailsWithContext(t *testing.T) {
	store := memory.New()
	extractor := &stubExtractor{files: map[string]string{
		"customers.csv": "id,name,signup_date\n", // header only
	}}
	orch := testOrchestrator(t, store, &stubFetcher{}, extractor,
		ingest.Dataset{Name: "customers", SourceFile: "customers.csv", Table: "customers"})

	_, err := orch.Run(context.Background())

	var stageErr *ingest.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Run() error = %v, want *StageError", err)
	}
	if stageErr.Dataset != "customers" {
		t.Errorf("StageError.Dataset = %q, want %q", stageErr.Dataset, "customers")
	}
	if stageErr.Stage != ingest.StageInfer {
		t.Errorf("StageError.Stage = %q, want %q", stageErr.Stage, ingest.StageInfer)
	}

	var emptyErr *ingest.EmptySourceError
	if !errors.As(err, &emptyErr) {
		t.Errorf("Run() error does not wrap *EmptySourceError: %v", err)
	}
}

// An inconsistent table must fail its dataset without any further writes.
func TestOrchestrator_InconsistentTableFails(t *testing.T) {
	store := memory.New()
	extractor := &stubExtractor{files: map[string]string{
		"customers.csv": customersCSV(25),
	}}
	orch := testOrchestrator(t, store, &stubFetcher{}, extractor,
		ingest.Dataset{Name: "customers", SourceFile: "customers.csv", Table: "customers"})

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Sabotage: grow the source so counts no longer match.
	extractor.files["customers.csv"] = customersCSV(30)

	_, err := orch.Run(context.Background())

	var inconsistent *ingest.InconsistentStateError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("Run() error = %v, want *InconsistentStateError", err)
	}
	if inconsistent.TableRows != 25 || inconsistent.SourceRows != 30 {
		t.Errorf("counts = table %d source %d, want 25/30", inconsistent.TableRows, inconsistent.SourceRows)
	}

	count, err := store.CountRows(context.Background(), "customers")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 25 {
		t.Errorf("customers rows = %d, want 25 (no writes after guard failure)", count)
	}
}
