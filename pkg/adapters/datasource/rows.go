package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
)

// CollectSQLRows drains database/sql rows into a QueryResult, stopping after
// maxRows. Truncated is set when at least one more row was available.
// Text columns scanned as []byte are converted to strings.
func CollectSQLRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	maxRows = EffectiveMaxRows(maxRows)

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}

		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
				continue
			}
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{
		Columns:   columnNames,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// ContextError maps a failure caused by the context. A cancelled parent is
// returned unchanged so callers can tell cancellation from a failed query;
// an expired deadline becomes a Timeout. Returns nil when the context is
// still live.
func ContextError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	default:
		return apperrors.Wrap(apperrors.KindTimeout, "query exceeded execution deadline", err)
	}
}

// StringOption reads an optional string from a backing config map.
func StringOption(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// IntOption reads an optional integer, accepting the float64 that JSON and
// the int that YAML decode into.
func IntOption(config map[string]any, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
