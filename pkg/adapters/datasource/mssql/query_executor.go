// Package mssql provides a read-only adaptor over a SQL Server database per
// cell-library partition.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/retry"
)

// SQL Server error numbers used for classification.
const (
	errIncorrectSyntax        = 102
	errIncorrectSyntaxKeyword = 156
	errUnknownFunction        = 195
	errInvalidColumn          = 207
	errInvalidObject          = 208
	errAmbiguousColumn        = 209
	errUnboundIdentifier      = 4104
	errReadOnlyDatabase       = 3906
	errNotInGroupBy           = 8120
)

// QueryExecutor provides SQL Server query execution.
type QueryExecutor struct {
	db     *sql.DB
	schema string
	logger *zap.Logger
}

// NewQueryExecutor opens a connection pool for the partition's database.
// A configured schema must be the login's default schema, which is where
// SQL Server resolves unqualified table names.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*QueryExecutor, error) {
	connStr := connectionString(cfg)
	logger.Debug("Opening SQL Server partition",
		zap.String("dsn", logging.SanitizeConnectionString(connStr)),
		zap.String("schema", cfg.Schema))

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	// Only transient failures are retried.
	err = retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sql server: %s", logging.SanitizeError(err))
	}

	var actual string
	if err := db.QueryRowContext(ctx, "SELECT SCHEMA_NAME()").Scan(&actual); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read default schema: %s", logging.SanitizeError(err))
	}
	schema, err := scopeSchema(cfg.Schema, actual)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &QueryExecutor{db: db, schema: schema, logger: logger.Named("mssql")}, nil
}

// scopeSchema returns the schema the partition is scoped to: the
// configured one, which must equal the login's default, or the default
// itself when none is configured.
func scopeSchema(configured, actual string) (string, error) {
	if configured == "" {
		return actual, nil
	}
	if !strings.EqualFold(configured, actual) {
		return "", fmt.Errorf("partition schema %q is not the login's default schema %q", configured, actual)
	}
	return configured, nil
}

func (e *QueryExecutor) Dialect() models.Dialect {
	return models.DialectSQL
}

func (e *QueryExecutor) Schema() string {
	return e.schema
}

// Query runs the statement unwrapped and collects at most maxRows rows.
// The driver has no read-only transactions; writes are refused upstream
// and by the ReadOnly application intent.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, maxRows int) (*datasource.QueryResult, error) {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer rows.Close()

	result, err := datasource.CollectSQLRows(rows, maxRows)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// classify maps SQL Server error numbers into the shared taxonomy.
func (e *QueryExecutor) classify(ctx context.Context, err error) error {
	if cerr := datasource.ContextError(ctx, err); cerr != nil {
		return cerr
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case errInvalidColumn, errInvalidObject, errUnboundIdentifier:
			return apperrors.Wrap(apperrors.KindUnknownSchemaElement, msErr.Message, err)
		case errIncorrectSyntax, errIncorrectSyntaxKeyword, errUnknownFunction, errAmbiguousColumn, errNotInGroupBy:
			return apperrors.Wrap(apperrors.KindQuerySyntaxError, msErr.Message, err)
		case errReadOnlyDatabase:
			return apperrors.Wrap(apperrors.KindExecutionError, "store is read-only", err)
		}
		return apperrors.Wrap(apperrors.KindExecutionError, msErr.Message, err)
	}

	e.logger.Debug("unclassified sql server error", zap.String("error", logging.SanitizeError(err)))
	return apperrors.Wrap(apperrors.KindExecutionError, "query failed", err)
}

func (e *QueryExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the database connection.
func (e *QueryExecutor) Close() error {
	return e.db.Close()
}

var (
	_ datasource.Adaptor      = (*QueryExecutor)(nil)
	_ datasource.SchemaScoped = (*QueryExecutor)(nil)
)
