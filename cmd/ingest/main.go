package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/datalift/ingest/internal/config"
	"github.com/datalift/ingest/internal/extract"
	"github.com/datalift/ingest/internal/fetch"
	"github.com/datalift/ingest/internal/ingest"
	"github.com/datalift/ingest/internal/logging"
	"github.com/datalift/ingest/internal/store/memory"
	"github.com/datalift/ingest/internal/store/postgres"
	"github.com/datalift/ingest/internal/store/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"archive_url", cfg.Pipeline.ArchiveURL,
		"datasets", len(cfg.Pipeline.Datasets),
		"sample_size", cfg.Pipeline.SampleSize,
		"batch_size", cfg.Pipeline.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	datasets, err := cfg.Pipeline.DatasetList()
	if err != nil {
		return err
	}

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fetcher, err := fetch.ForURL(ctx, cfg.Pipeline.ArchiveURL, fetch.Options{
		Timeout:  cfg.Fetch.Timeout,
		S3Region: cfg.Fetch.S3Region,
	})
	if err != nil {
		return err
	}

	archivePath, err := stagedArchivePath(cfg.Pipeline.ArchiveURL, cfg.Pipeline.StagingDir)
	if err != nil {
		return err
	}

	extractor, err := extract.ForArchive(archivePath)
	if err != nil {
		return err
	}

	orch := ingest.NewOrchestrator(store, fetcher, extractor, datasets, ingest.Options{
		ArchiveURL:  cfg.Pipeline.ArchiveURL,
		ArchivePath: archivePath,
		ExtractDir:  cfg.Pipeline.ExtractDir,
		SampleSize:  cfg.Pipeline.SampleSize,
		BatchSize:   cfg.Pipeline.BatchSize,
	}, slog.Default())

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	for _, r := range report.Runs {
		slog.Info("dataset result",
			"dataset", r.Dataset.Name,
			"state", r.State,
			"rows", r.Rows,
			"duration", r.Duration(),
		)
	}
	return nil
}

// openStore selects the destination store by URL scheme.
func openStore(ctx context.Context, cfg *config.Config) (ingest.Store, func(), error) {
	dbURL := cfg.Database.URL
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		slog.Info("connected to postgres")
		return postgres.New(pool), pool.Close, nil

	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite database", "path", path)
		return store, func() { store.Close() }, nil

	case strings.HasPrefix(dbURL, "memory://"):
		slog.Warn("using in-memory store; nothing will be persisted")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database URL scheme in %q", dbURL)
	}
}

// stagedArchivePath derives the local staging file name from the archive
// URL's last path element.
func stagedArchivePath(archiveURL, stagingDir string) (string, error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return "", fmt.Errorf("parse archive URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive archive file name from %q", archiveURL)
	}
	return filepath.Join(stagingDir, name), nil
}
