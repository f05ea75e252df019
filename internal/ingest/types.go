// Package ingest implements the bulk CSV ingestion pipeline: per-column
// type inference, destination table provisioning, idempotency checking,
// and transactional batch loading, driven by an orchestrator that runs
// one independent task per dataset.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// ColumnType is one of the types the inferencer can assign to a column.
type ColumnType string

const (
	TypeInt32     ColumnType = "int32"
	TypeInt64     ColumnType = "int64"
	TypeFloat64   ColumnType = "float64"
	TypeTimestamp ColumnType = "timestamp"
	TypeString    ColumnType = "string"
)

// Column pairs a header name with its inferred type.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the inferred column set for one source file, in header order.
// Column names are unique; the set is fixed once inference completes.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Dataset binds one named source file to one destination table.
// SourceFile is resolved relative to the extraction directory.
type Dataset struct {
	Name       string
	SourceFile string
	Table      string
}

// RunState is the lifecycle state of one dataset's ingestion run.
type RunState string

const (
	StatePending      RunState = "pending"
	StateInferred     RunState = "inferred"
	StateSkipped      RunState = "skipped"
	StateProvisioning RunState = "provisioning"
	StateLoading      RunState = "loading"
	StateCommitted    RunState = "committed"
	StateFailed       RunState = "failed"
)

// IngestionRun tracks one dataset through the pipeline. Each run is owned
// by the orchestrator and shares no mutable state with sibling runs.
type IngestionRun struct {
	ID       uuid.UUID
	Dataset  Dataset
	State    RunState
	Schema   Schema
	Rows     int64
	Started  time.Time
	Finished time.Time
}

// Duration reports how long the run took, or time spent so far if the
// run has not finished.
func (r *IngestionRun) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// RunReport summarizes one orchestrator invocation.
type RunReport struct {
	Runs []IngestionRun
}

// Loaded returns the total number of rows committed across all runs.
func (r *RunReport) Loaded() int64 {
	var total int64
	for _, run := range r.Runs {
		if run.State == StateCommitted {
			total += run.Rows
		}
	}
	return total
}

// Skipped returns how many datasets were already fully loaded.
func (r *RunReport) Skipped() int {
	var n int
	for _, run := range r.Runs {
		if run.State == StateSkipped {
			n++
		}
	}
	return n
}
