package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// openCSV opens path and returns a csv.Reader over the sanitized stream.
// The caller owns the returned closer.
func openCSV(path string) (*csv.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := csv.NewReader(sanitizedReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	return r, f, nil
}

// readHeader reads the header row and returns trimmed column names.
// Returns *EmptySourceError if the file has no rows at all.
func readHeader(r *csv.Reader, path string) ([]string, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &EmptySourceError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	return names, nil
}

// CountDataRows scans the whole file and returns the number of data rows
// after the header, excluding fully empty lines. This is the source-side
// count the idempotency guard compares against the destination table.
func CountDataRows(path string) (int64, error) {
	r, closer, err := openCSV(path)
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	if _, err := readHeader(r, path); err != nil {
		return 0, err
	}

	var count int64
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("count rows of %s: %w", path, err)
		}
		if isEmptyRow(row) {
			continue
		}
		count++
	}
}

// isEmptyRow reports whether every cell is blank. Trailing empty lines in
// exported CSVs would otherwise skew counts and produce all-NULL rows.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
