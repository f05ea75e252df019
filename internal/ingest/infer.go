package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
)

// DefaultSampleSize is how many data rows the inferencer reads when the
// configuration does not say otherwise.
const DefaultSampleSize = 10

var (
	allDigitsRegex = regexp.MustCompile(`^\d+$`)
	decimalRegex   = regexp.MustCompile(`^\d+\.\d+$`)
)

// Inferencer samples the head of a source file and derives one type per
// header column.
//
// A column's type is the first distinct classification encountered while
// scanning the sample in row order. In practice that means the first
// sampled value decides: a column whose row-1 value is atypical (an ID
// written as text in row 1 but numeric thereafter) gets its type from
// that one value. This matches the historical behavior of the pipeline
// and is kept deliberately; it is NOT a majority vote.
type Inferencer struct {
	// SampleSize is the maximum number of data rows read. Zero or
	// negative means DefaultSampleSize.
	SampleSize int
}

// Infer reads the header and up to SampleSize data rows of path and
// returns the inferred schema. Returns *EmptySourceError when no data
// rows exist.
func (inf *Inferencer) Infer(ctx context.Context, path string) (Schema, error) {
	sampleSize := inf.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	r, closer, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	header, err := readHeader(r, path)
	if err != nil {
		return nil, err
	}
	if err := checkUniqueColumns(header, path); err != nil {
		return nil, err
	}

	var sample [][]string
	for len(sample) < sampleSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", path, err)
		}
		if isEmptyRow(row) {
			continue
		}
		sample = append(sample, row)
	}

	if len(sample) == 0 {
		return nil, &EmptySourceError{Path: path}
	}

	schema := make(Schema, len(header))
	for col, name := range header {
		schema[col] = Column{Name: name, Type: inferColumn(sample, col)}
	}
	return schema, nil
}

// inferColumn classifies every sampled value for one column and returns
// the first distinct classification in row order.
func inferColumn(sample [][]string, col int) ColumnType {
	seen := make(map[ColumnType]bool)
	var ordered []ColumnType

	for _, row := range sample {
		var value string
		if col < len(row) {
			value = row[col]
		}
		t := classifyValue(value)
		if !seen[t] {
			seen[t] = true
			ordered = append(ordered, t)
		}
	}

	return ordered[0]
}

// classifyValue applies the ordered classification rules:
// all digits fitting int32 range, all digits otherwise, digits-dot-digits,
// parseable calendar date/time, then string. All-digit values overflowing
// int64 fall through to string since no destination type can hold them.
func classifyValue(s string) ColumnType {
	if allDigitsRegex.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if n <= math.MaxInt32 {
				return TypeInt32
			}
			return TypeInt64
		}
	} else if decimalRegex.MatchString(s) {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return TypeFloat64
		}
	} else if _, ok := ParseTimestamp(s); ok {
		return TypeTimestamp
	}
	return TypeString
}

// checkUniqueColumns enforces the schema invariant of exactly one type
// per column name.
func checkUniqueColumns(header []string, path string) error {
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if name == "" {
			return fmt.Errorf("%s: header contains an empty column name", path)
		}
		if seen[name] {
			return fmt.Errorf("%s: duplicate column %q in header", path, name)
		}
		seen[name] = true
	}
	return nil
}
