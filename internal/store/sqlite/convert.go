package sqlite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datalift/ingest/internal/ingest"
)

// convertRow turns raw CSV string values into driver-native values for
// each inferred column type. Empty cells become NULLs.
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
	case ingest.TypeInt32, ingest.TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil

	case ingest.TypeFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", raw)
		}
		return f, nil

	case ingest.TypeTimestamp:
		ts, ok := ingest.ParseTimestamp(raw)
		if !ok {
			return nil, fmt.Errorf("invalid timestamp %q", raw)
		}
		return ts, nil

	default:
		return raw, nil
	}
}
