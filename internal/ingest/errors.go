package ingest

// errors.go defines the typed failures the pipeline can surface.
//
// Every error carries enough context (dataset, stage, table, counts) for
// the caller to decide whether a rerun is safe. The pipeline itself never
// retries; rerunning is the retry mechanism, made safe by the guard.

import "fmt"

// EmptySourceError reports a source file with a header but no data rows,
// or no rows at all. Inference cannot proceed without a sample.
type EmptySourceError struct {
	Path string
}

func (e *EmptySourceError) Error() string {
	return fmt.Sprintf("source file %s has no data rows", e.Path)
}

// InconsistentStateError reports a destination table whose row count
// differs from the source file's. The pipeline never overwrites or
// appends to such a table; operator intervention is required.
type InconsistentStateError struct {
	Table      string
	SourceRows int64
	TableRows  int64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("table %s holds %d rows but source has %d; refusing to touch it",
		e.Table, e.TableRows, e.SourceRows)
}

// TableAlreadyExistsError reports provisioning against an existing table.
// Seeing this means a guard check was skipped or raced.
type TableAlreadyExistsError struct {
	Table string
}

func (e *TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %s already exists", e.Table)
}

// FetchError reports a failure copying the remote archive to staging.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports a failure unpacking the staged archive.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// LoadError reports a failure during batched insertion. The enclosing
// transaction has been rolled back: the destination table is exactly as
// it was before the run started.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load into %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Stage names used in StageError and log fields.
const (
	StageFetch     = "fetch"
	StageExtract   = "extract"
	StageInfer     = "infer"
	StageGuard     = "guard"
	StageProvision = "provision"
	StageLoad      = "load"
)

// StageError wraps a failure with the dataset and pipeline stage it
// occurred in.
type StageError struct {
	Dataset string
	Stage   string
	Err     error
}

func (e *StageError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("dataset %s: %s: %v", e.Dataset, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
