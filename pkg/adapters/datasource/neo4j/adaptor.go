// Package neo4j provides a read-only adaptor over a Neo4j database, one
// database per design-stage partition.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// Config contains Neo4j connection options for one partition.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// FromMap creates a Config from a backing config map. The password falls
// back to NEO4J_PASSWORD.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		URI:      datasource.StringOption(config, "uri"),
		Username: datasource.StringOption(config, "username"),
		Password: datasource.StringOption(config, "password"),
		Database: datasource.StringOption(config, "database"),
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Username == "" {
		cfg.Username = "neo4j"
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("NEO4J_PASSWORD")
	}
	return cfg, nil
}

// Adaptor runs auto-commit read queries in read sessions. Sessions are not
// retried by the driver.
type Adaptor struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewAdaptor creates the driver and verifies connectivity.
func NewAdaptor(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adaptor, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j: %s", logging.SanitizeError(err))
	}

	return &Adaptor{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.Named("neo4j"),
	}, nil
}

func (a *Adaptor) Dialect() models.Dialect {
	return models.DialectCypher
}

// Query runs the statement and collects at most maxRows records.
func (a *Adaptor) Query(ctx context.Context, query string, maxRows int) (*datasource.QueryResult, error) {
	start := time.Now()
	maxRows = datasource.EffectiveMaxRows(maxRows)

	session := a.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: a.database,
	})
	defer func() { _ = session.Close(context.WithoutCancel(ctx)) }()

	res, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, a.classify(ctx, err)
	}

	keys, err := res.Keys()
	if err != nil {
		return nil, a.classify(ctx, err)
	}

	rows := make([]map[string]any, 0)
	truncated := false
	for res.Next(ctx) {
		if len(rows) == maxRows {
			truncated = true
			break
		}
		record := res.Record()
		row := make(map[string]any, len(record.Keys))
		for i, k := range record.Keys {
			row[k] = convertValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, a.classify(ctx, err)
	}

	return &datasource.QueryResult{
		Columns:   keys,
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// convertValue flattens graph entities into plain maps for JSON output.
func convertValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return map[string]any{"labels": t.Labels, "properties": t.Props}
	case neo4j.Relationship:
		return map[string]any{"type": t.Type, "properties": t.Props}
	case neo4j.Path:
		nodes := make([]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = convertValue(n)
		}
		rels := make([]any, len(t.Relationships))
		for i, r := range t.Relationships {
			rels[i] = convertValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = convertValue(e)
		}
		return out
	default:
		return v
	}
}

// classify maps Neo4j status codes into the shared taxonomy.
func (a *Adaptor) classify(ctx context.Context, err error) error {
	if cerr := datasource.ContextError(ctx, err); cerr != nil {
		return cerr
	}

	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		switch {
		case nerr.Code == "Neo.ClientError.Statement.SyntaxError":
			return apperrors.Wrap(apperrors.KindQuerySyntaxError, nerr.Msg, err)
		case nerr.Code == "Neo.ClientError.Statement.AccessMode",
			nerr.Code == "Neo.ClientError.Security.Forbidden":
			return apperrors.Wrap(apperrors.KindExecutionError, "store is read-only", err)
		case strings.Contains(nerr.Code, "TransactionTimedOut"):
			return apperrors.Wrap(apperrors.KindTimeout, nerr.Msg, err)
		case strings.HasPrefix(nerr.Code, "Neo.ClientError.Statement."):
			return apperrors.Wrap(apperrors.KindQuerySyntaxError, nerr.Msg, err)
		}
		return apperrors.Wrap(apperrors.KindExecutionError, nerr.Msg, err)
	}

	a.logger.Debug("unclassified neo4j error", zap.String("error", logging.SanitizeError(err)))
	return apperrors.Wrap(apperrors.KindExecutionError, "query failed", err)
}

func (a *Adaptor) Ping(ctx context.Context) error {
	return a.driver.VerifyConnectivity(ctx)
}

func (a *Adaptor) Close() error {
	return a.driver.Close(context.Background())
}

var _ datasource.Adaptor = (*Adaptor)(nil)
