package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options configures one orchestrator invocation. All values come from
// the caller; the pipeline keeps no ambient state.
type Options struct {
	// ArchiveURL is the remote archive to fetch.
	ArchiveURL string

	// ArchivePath is the local staging path the archive is fetched to.
	ArchivePath string

	// ExtractDir is where the archive is unpacked. Dataset source files
	// are resolved relative to it.
	ExtractDir string

	// SampleSize and BatchSize feed the inferencer and loader; zero
	// means their defaults.
	SampleSize int
	BatchSize  int
}

// Orchestrator drives the end-to-end run: fetch, extract, then one
// concurrent task per dataset running infer, guard, provision, load.
type Orchestrator struct {
	store     Store
	fetcher   Fetcher
	extractor Extractor
	datasets  []Dataset
	opts      Options
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline together. logger may be nil, in
// which case slog.Default is used.
func NewOrchestrator(store Store, fetcher Fetcher, extractor Extractor, datasets []Dataset, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		datasets:  datasets,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes the whole pipeline. Fetch and extract are sequential
// prerequisites; datasets then run concurrently and independently, each
// with its own transaction. The first unrecoverable error cancels the
// sibling tasks and is returned wrapped in a *StageError naming the
// dataset and stage. There are no automatic retries: rerunning is safe
// because the guard skips datasets that are already complete.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	if len(o.datasets) == 0 {
		return nil, fmt.Errorf("no datasets configured")
	}

	for _, dir := range []string{filepath.Dir(o.opts.ArchivePath), o.opts.ExtractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	o.logger.Info("fetching archive", "url", o.opts.ArchiveURL, "dest", o.opts.ArchivePath)
	if err := o.fetcher.Fetch(ctx, o.opts.ArchiveURL, o.opts.ArchivePath); err != nil {
		return nil, &StageError{Stage: StageFetch, Err: &FetchError{URL: o.opts.ArchiveURL, Err: err}}
	}

	o.logger.Info("extracting archive", "archive", o.opts.ArchivePath, "dir", o.opts.ExtractDir)
	if err := o.extractor.Extract(ctx, o.opts.ArchivePath, o.opts.ExtractDir); err != nil {
		return nil, &StageError{Stage: StageExtract, Err: &ExtractionError{Archive: o.opts.ArchivePath, Err: err}}
	}

	runs := make([]IngestionRun, len(o.datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range o.datasets {
		resolved := d
		resolved.SourceFile = filepath.Join(o.opts.ExtractDir, d.SourceFile)
		g.Go(func() error {
			run, err := o.runDataset(gctx, resolved)
			runs[i] = run
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &RunReport{Runs: runs}
	o.logger.Info("ingestion complete",
		"datasets", len(runs),
		"rows_loaded", report.Loaded(),
		"skipped", report.Skipped(),
	)
	return report, nil
}

// runDataset walks one dataset through its lifecycle:
// pending -> inferred -> {skipped | provisioning -> loading -> committed}
// and failed on any error.
func (o *Orchestrator) runDataset(ctx context.Context, d Dataset) (IngestionRun, error) {
	run := IngestionRun{
		ID:      uuid.New(),
		Dataset: d,
		State:   StatePending,
		Started: time.Now(),
	}
	logger := o.logger.With("run_id", run.ID, "dataset", d.Name, "table", d.Table)

	fail := func(stage string, err error) (IngestionRun, error) {
		run.State = StateFailed
		run.Finished = time.Now()
		logger.Error("dataset failed", "stage", stage, "error", err)
		return run, &StageError{Dataset: d.Name, Stage: stage, Err: err}
	}

	inferencer := &Inferencer{SampleSize: o.opts.SampleSize}
	schema, err := inferencer.Infer(ctx, d.SourceFile)
	if err != nil {
		return fail(StageInfer, err)
	}
	run.Schema = schema
	run.State = StateInferred
	logger.Debug("schema inferred", "columns", len(schema))

	guard := &Guard{Store: o.store}
	skip, err := guard.Check(ctx, d)
	if err != nil {
		return fail(StageGuard, err)
	}
	if skip {
		run.State = StateSkipped
		run.Finished = time.Now()
		logger.Info("dataset already ingested, skipping")
		return run, nil
	}

	run.State = StateProvisioning
	provisioner := &Provisioner{Store: o.store}
	if err := provisioner.Provision(ctx, d, schema); err != nil {
		return fail(StageProvision, err)
	}

	run.State = StateLoading
	loader := &Loader{Store: o.store, BatchSize: o.opts.BatchSize}
	rows, err := loader.Load(ctx, d, schema)
	if err != nil {
		return fail(StageLoad, err)
	}

	run.Rows = rows
	run.State = StateCommitted
	run.Finished = time.Now()
	logger.Info("dataset committed", "rows", rows, "duration", run.Duration())
	return run, nil
}
