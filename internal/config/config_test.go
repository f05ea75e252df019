package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ARCHIVE_URL", "https://example.com/data.zip")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.StagingDir != "./staging" {
		t.Errorf("StagingDir = %q, want %q", cfg.Pipeline.StagingDir, "./staging")
	}
	if cfg.Pipeline.SampleSize != 10 {
		t.Errorf("SampleSize = %d, want 10", cfg.Pipeline.SampleSize)
	}
	if cfg.Pipeline.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Pipeline.BatchSize)
	}
	if len(cfg.Pipeline.Datasets) != 2 {
		t.Errorf("Datasets = %v, want 2 entries", cfg.Pipeline.Datasets)
	}
	if cfg.Database.MaxConns != 20 {
		t.Errorf("MaxConns = %d, want 20", cfg.Database.MaxConns)
	}
	if cfg.Fetch.Timeout != 5*time.Minute {
		t.Errorf("Fetch.Timeout = %s, want 5m", cfg.Fetch.Timeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SAMPLE_SIZE", "25")
	t.Setenv("BATCH_SIZE", "90")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FETCH_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.SampleSize != 25 {
		t.Errorf("SampleSize = %d, want 25", cfg.Pipeline.SampleSize)
	}
	if cfg.Pipeline.BatchSize != 90 {
		t.Errorf("BatchSize = %d, want 90", cfg.Pipeline.BatchSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Fetch.Timeout != 90*time.Second {
		t.Errorf("Fetch.Timeout = %s, want 90s", cfg.Fetch.Timeout)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("ARCHIVE_URL", "https://example.com/data.zip")
	t.Setenv("DB_URL", "postgres://localhost/alttest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil error without ARCHIVE_URL")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative sample size", "SAMPLE_SIZE", "-1"},
		{"zero batch size", "BATCH_SIZE", "0"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad duration", "FETCH_TIMEOUT", "fast"},
		{"malformed dataset", "DATASETS", "customers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() = nil error with %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestDatasetList(t *testing.T) {
	cfg := PipelineConfig{Datasets: []string{
		"customers=customers.csv:customers",
		"organizations=organizations.csv:org_table",
	}}

	datasets, err := cfg.DatasetList()
	if err != nil {
		t.Fatalf("DatasetList() error = %v", err)
	}
	if len(datasets) != 2 {
		t.Fatalf("got %d datasets, want 2", len(datasets))
	}
	if datasets[0].Name != "customers" || datasets[0].SourceFile != "customers.csv" || datasets[0].Table != "customers" {
		t.Errorf("datasets[0] = %+v", datasets[0])
	}
	if datasets[1].Table != "org_table" {
		t.Errorf("datasets[1].Table = %q, want %q", datasets[1].Table, "org_table")
	}
}

func TestDatasetList_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{"no separator", []string{"customers"}},
		{"missing table", []string{"customers=customers.csv"}},
		{"empty name", []string{"=file.csv:table"}},
		{"duplicate name", []string{"a=a.csv:a", "a=b.csv:b"}},
		{"empty list", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := PipelineConfig{Datasets: tt.entries}
			if _, err := cfg.DatasetList(); err == nil {
				t.Errorf("DatasetList(%v) = nil error", tt.entries)
			}
		})
	}
}

func TestConfigString_MasksURL(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "postgres://localhost/test") {
		t.Errorf("String() leaks database URL: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() missing mask: %s", s)
	}
}
