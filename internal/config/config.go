// Package config provides centralized configuration for the pipeline.
// It loads settings from environment variables with defaults and
// validates everything on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/datalift/ingest/internal/ingest"
)

// Config holds all pipeline configuration.
type Config struct {
	Pipeline PipelineConfig
	Database DatabaseConfig
	Fetch    FetchConfig
	Logging  LoggingConfig
}

// PipelineConfig holds the ingestion run settings.
type PipelineConfig struct {
	// ArchiveURL is the remote archive to ingest (required).
	// Supported schemes: http, https, s3, file.
	ArchiveURL string `env:"ARCHIVE_URL" required:"true"`

	// StagingDir is where the archive is downloaded (default: ./staging)
	StagingDir string `env:"STAGING_DIR" default:"./staging"`

	// ExtractDir is where the archive is unpacked; dataset source files
	// are resolved relative to it (default: ./staging/extracted)
	ExtractDir string `env:"EXTRACT_DIR" default:"./staging/extracted"`

	// Datasets maps dataset names to source file and destination table,
	// comma-separated entries of the form name=file:table.
	Datasets []string `env:"DATASETS" default:"customers=customers.csv:customers,organizations=organizations.csv:organizations"`

	// SampleSize is how many data rows type inference reads (default: 10)
	SampleSize int `env:"SAMPLE_SIZE" default:"10"`

	// BatchSize is the number of rows per batch insert (default: 50)
	BatchSize int `env:"BATCH_SIZE" default:"50"`
}

// DatabaseConfig holds destination store settings.
type DatabaseConfig struct {
	// URL selects and configures the destination store (required).
	// postgres:// uses pgx; sqlite://path uses a local SQLite file;
	// memory:// keeps everything in process (dry runs).
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections kept open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection closes (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// FetchConfig holds archive download settings.
type FetchConfig struct {
	// Timeout bounds a single archive download (default: 5m)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"5m"`

	// S3Region is the AWS region for s3:// archive URLs (default: us-east-1)
	S3Region string `env:"S3_REGION" default:"us-east-1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DatasetList parses the configured name=file:table entries.
func (c *PipelineConfig) DatasetList() ([]ingest.Dataset, error) {
	if len(c.Datasets) == 0 {
		return nil, fmt.Errorf("no datasets configured")
	}

	datasets := make([]ingest.Dataset, 0, len(c.Datasets))
	seen := make(map[string]bool, len(c.Datasets))
	for _, entry := range c.Datasets {
		name, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("dataset entry %q: want name=file:table", entry)
		}
		file, table, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("dataset entry %q: want name=file:table", entry)
		}

		name, file, table = strings.TrimSpace(name), strings.TrimSpace(file), strings.TrimSpace(table)
		if name == "" || file == "" || table == "" {
			return nil, fmt.Errorf("dataset entry %q: empty name, file, or table", entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate dataset %q", name)
		}
		seen[name] = true

		datasets = append(datasets, ingest.Dataset{Name: name, SourceFile: file, Table: table})
	}
	return datasets, nil
}

// String returns a safe representation for logging; the database URL is
// masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Pipeline: {ArchiveURL: %q, Datasets: %d, SampleSize: %d, BatchSize: %d}, ",
		c.Pipeline.ArchiveURL, len(c.Pipeline.Datasets), c.Pipeline.SampleSize, c.Pipeline.BatchSize))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Fetch: {Timeout: %s}, ", c.Fetch.Timeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
