package datasource

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// DefaultMaxRows is used when a caller passes a non-positive row cap.
const DefaultMaxRows = 1000

// Adaptor executes read-only queries against the backing store of exactly
// one partition. Each implementation owns its connection and must be closed
// when done. Implementations are safe for concurrent use.
type Adaptor interface {
	// Dialect is the query language the store accepts.
	Dialect() models.Dialect

	// Query runs a read-only statement and returns at most maxRows rows.
	// Failures are returned as *apperrors.Error classified into the shared
	// taxonomy; a cancelled parent context is returned as ctx.Err().
	Query(ctx context.Context, query string, maxRows int) (*QueryResult, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// SchemaScoped is implemented by adaptors whose partition lives in one
// named schema of a store that may hold other partitions. Queries may
// qualify tables with that schema and no other.
type SchemaScoped interface {
	Schema() string
}

// QueryResult holds the bounded rows of one execution.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
	Duration  time.Duration    `json:"duration"`
}

// EffectiveMaxRows applies the default to a non-positive cap.
func EffectiveMaxRows(maxRows int) int {
	if maxRows <= 0 {
		return DefaultMaxRows
	}
	return maxRows
}
