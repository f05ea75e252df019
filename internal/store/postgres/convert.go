package postgres

// convert.go turns raw CSV string values into the Go/pgtype values the
// COPY protocol encodes for each inferred column type. Empty cells
// become NULLs; a value the column's type cannot represent is a hard
// error, which aborts the batch and rolls back the load.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datalift/ingest/internal/ingest"
	"github.com/jackc/pgx/v5/pgtype"
)

func convertRow(row []string, schema ingest.Schema) ([]any, error) {
	if len(row) != len(schema) {
		return nil, fmt.Errorf("have %d values, schema has %d columns", len(row), len(schema))
	}

	values := make([]any, len(row))
	for i, raw := range row {
		v, err := convertValue(raw, schema[i].Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", schema[i].Name, err)
		}
		values[i] = v
	}
	return values, nil
}

func convertValue(raw string, t ingest.ColumnType) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch t {
	case ingest.TypeInt32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid int32 %q", raw)
		}
		return int32(n), nil

	case ingest.TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int64 %q", raw)
		}
		return n, nil

	case ingest.TypeFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float64 %q", raw)
		}
		return f, nil

	case ingest.TypeTimestamp:
		ts, ok := ingest.ParseTimestamp(raw)
		if !ok {
			return nil, fmt.Errorf("invalid timestamp %q", raw)
		}
		return pgtype.Timestamp{Time: ts, Valid: true}, nil

	default:
		return pgtype.Text{String: raw, Valid: true}, nil
	}
}
