// Package sqlite provides a read-only adaptor over a SQLite file, one file
// per cell-library partition.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// SQLite result codes used for classification.
const (
	codeReadOnly  = 8
	codeInterrupt = 9
)

var (
	noSuchObject = regexp.MustCompile(`no such (table|column|function): (\S+)`)
	syntaxError  = regexp.MustCompile(`(syntax error|incomplete input|unrecognized token)`)
)

// Config contains SQLite-specific connection options.
type Config struct {
	Path         string
	MaxOpenConns int
}

// FromMap creates a Config from a backing config map.
func FromMap(config map[string]any) (*Config, error) {
	path := datasource.StringOption(config, "path")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &Config{
		Path:         path,
		MaxOpenConns: datasource.IntOption(config, "max_open_conns", 4),
	}, nil
}

// Adaptor runs read-only queries against one SQLite database file.
type Adaptor struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewAdaptor opens the file in read-only, query-only mode. The file must
// already exist; the store is materialized elsewhere.
func NewAdaptor(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adaptor, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("sqlite partition file: %w", err)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	return &Adaptor{
		db:     db,
		path:   cfg.Path,
		logger: logger.Named("sqlite"),
	}, nil
}

func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

func (a *Adaptor) Dialect() models.Dialect {
	return models.DialectSQL
}

// Schema is the name SQLite gives the opened file.
func (a *Adaptor) Schema() string {
	return "main"
}

// Query runs the statement and collects at most maxRows rows.
func (a *Adaptor) Query(ctx context.Context, query string, maxRows int) (*datasource.QueryResult, error) {
	start := time.Now()

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, a.classify(ctx, err)
	}
	defer rows.Close()

	result, err := datasource.CollectSQLRows(rows, maxRows)
	if err != nil {
		return nil, a.classify(ctx, err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// classify maps driver failures into the shared taxonomy.
func (a *Adaptor) classify(ctx context.Context, err error) error {
	if cerr := datasource.ContextError(ctx, err); cerr != nil {
		return cerr
	}

	msg := err.Error()
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case codeReadOnly:
			return apperrors.Wrap(apperrors.KindExecutionError, "store is read-only", err)
		case codeInterrupt:
			return apperrors.Wrap(apperrors.KindTimeout, "query interrupted", err)
		}
	}

	if m := noSuchObject.FindStringSubmatch(msg); m != nil {
		if m[1] == "function" {
			return apperrors.Newf(apperrors.KindQuerySyntaxError, "unknown function %s", m[2])
		}
		return apperrors.Newf(apperrors.KindUnknownSchemaElement, "%s %s", m[1], m[2])
	}
	if syntaxError.MatchString(msg) {
		return apperrors.New(apperrors.KindQuerySyntaxError, strings.TrimPrefix(msg, "SQL logic error: "))
	}

	a.logger.Debug("unclassified sqlite error", zap.String("error", logging.SanitizeError(err)))
	return apperrors.Wrap(apperrors.KindExecutionError, "query failed", err)
}

func (a *Adaptor) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adaptor) Close() error {
	return a.db.Close()
}

var (
	_ datasource.Adaptor      = (*Adaptor)(nil)
	_ datasource.SchemaScoped = (*Adaptor)(nil)
)
