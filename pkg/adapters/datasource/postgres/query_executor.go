// Package postgres provides a read-only adaptor over one PostgreSQL schema
// per cell-library partition.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/retry"
)

// SQLSTATE codes used for classification.
const (
	codeUndefinedTable    = "42P01"
	codeUndefinedColumn   = "42703"
	codeUndefinedFunction = "42883"
	codeSyntaxError       = "42601"
	codeAmbiguousColumn   = "42702"
	codeGroupingError     = "42803"
	codeDatatypeMismatch  = "42804"
	codeQueryCanceled     = "57014"
	codeReadOnlyTx        = "25006"
)

// QueryExecutor runs queries inside read-only transactions on a pool
// dedicated to one partition.
type QueryExecutor struct {
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

// NewQueryExecutor creates the partition's pool. The schema, when set, is
// pinned as the search_path of every connection.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*QueryExecutor, error) {
	connStr := buildConnectionString(cfg)
	logger.Debug("Opening PostgreSQL partition",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)),
		zap.String("schema", cfg.Schema))

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.Schema != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = cfg.Schema
	}
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	// Create pool with retry logic for transient failures
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		return pgxpool.NewWithConfig(ctx, poolConfig)
	})
	if err != nil {
		logger.Error("failed to create pool after retries",
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &QueryExecutor{
		pool:   pool,
		schema: cfg.Schema,
		logger: logger.Named("postgres"),
	}, nil
}

func (e *QueryExecutor) Dialect() models.Dialect {
	return models.DialectSQL
}

// Schema is the partition's search_path schema.
func (e *QueryExecutor) Schema() string {
	return e.schema
}

// Query runs a statement in a read-only transaction and collects at most
// maxRows rows. The transaction is always rolled back.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, maxRows int) (*datasource.QueryResult, error) {
	start := time.Now()
	maxRows = datasource.EffectiveMaxRows(maxRows)

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, sqlQuery)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, e.classify(ctx, err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, e.classify(ctx, err)
	}

	return &datasource.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// classify maps SQLSTATE codes into the shared taxonomy.
func (e *QueryExecutor) classify(ctx context.Context, err error) error {
	if cerr := datasource.ContextError(ctx, err); cerr != nil {
		return cerr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable, codeUndefinedColumn:
			return apperrors.Wrap(apperrors.KindUnknownSchemaElement, pgErr.Message, err)
		case codeSyntaxError, codeUndefinedFunction, codeAmbiguousColumn, codeGroupingError, codeDatatypeMismatch:
			return apperrors.Wrap(apperrors.KindQuerySyntaxError, pgErr.Message, err)
		case codeQueryCanceled:
			return apperrors.Wrap(apperrors.KindTimeout, pgErr.Message, err)
		case codeReadOnlyTx:
			return apperrors.Wrap(apperrors.KindExecutionError, "store is read-only", err)
		}
		return apperrors.Wrap(apperrors.KindExecutionError, pgErr.Message, err)
	}

	e.logger.Debug("unclassified postgres error", zap.String("error", logging.SanitizeError(err)))
	return apperrors.Wrap(apperrors.KindExecutionError, "query failed", err)
}

func (e *QueryExecutor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

// Close releases the pool.
func (e *QueryExecutor) Close() error {
	e.pool.Close()
	return nil
}

var (
	_ datasource.Adaptor      = (*QueryExecutor)(nil)
	_ datasource.SchemaScoped = (*QueryExecutor)(nil)
)
