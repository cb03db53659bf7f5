// Package partition implements the schema partition store: a fixed set of
// independently queryable schema slices, each backed by its own adaptor
// handle, with read-only execution scoped to one slice at a time.
package partition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/catalog"
	"github.com/ekaya-inc/ekaya-eda/pkg/cypher"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-eda/pkg/sql"
)

// DefaultExecuteTimeout bounds a query when the caller passes no timeout.
const DefaultExecuteTimeout = 30 * time.Second

// ExecuteOptions bound one execution.
type ExecuteOptions struct {
	Timeout time.Duration
	MaxRows int
}

// Store exposes the materialized partitions. All methods are safe for
// concurrent use; descriptors are shared and must not be modified.
type Store interface {
	// ListPartitions returns the keys of a view in sorted order.
	ListPartitions(view models.View) []models.PartitionKey

	// GetDescriptor fails with UnknownPartition when the key has no backing.
	GetDescriptor(key models.PartitionKey) (*models.SchemaDescriptor, error)

	// Execute runs one read-only query against exactly one partition.
	// Store and query failures are reported in the result. The error is
	// non-nil only for an unknown partition or when ctx itself is done.
	Execute(ctx context.Context, key models.PartitionKey, dialect models.Dialect, query string, opts ExecuteOptions) (models.ExecutionResult, error)

	// Ping checks every backing store and returns failures by key.
	Ping(ctx context.Context) map[string]error

	Close() error
}

type partition struct {
	key        models.PartitionKey
	descriptor *models.SchemaDescriptor
	adaptor    datasource.Adaptor
	schema     string // qualifier a query may use for its own tables
}

// AdaptorStore is the Store over one precomputed adaptor handle per
// partition key.
type AdaptorStore struct {
	mu         sync.RWMutex
	partitions map[models.PartitionKey]*partition
	logger     *zap.Logger
}

// NewStore creates an empty store. Partitions are added with Add.
func NewStore(logger *zap.Logger) *AdaptorStore {
	return &AdaptorStore{
		partitions: make(map[models.PartitionKey]*partition),
		logger:     logger.Named("partition"),
	}
}

// Open builds a store from a catalog, opening one adaptor per partition.
// Any adaptor that fails to open closes the ones already opened.
func Open(ctx context.Context, cat *catalog.Catalog, logger *zap.Logger) (Store, error) {
	s := NewStore(logger)
	for _, b := range cat.Backings() {
		adaptor, err := datasource.Open(ctx, b.Adaptor, b.Options, logger)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open partition %s: %s", b.Key, logging.SanitizeError(err))
		}
		if err := s.Add(b.Key, b.Descriptor, adaptor); err != nil {
			_ = adaptor.Close()
			_ = s.Close()
			return nil, err
		}
		s.logger.Info("Partition opened",
			zap.String("partition", b.Key.String()),
			zap.String("adaptor", b.Adaptor))
	}
	return s, nil
}

// Add registers a partition. The adaptor's dialect must match the
// descriptor's and a key may be added only once.
func (s *AdaptorStore) Add(key models.PartitionKey, descriptor *models.SchemaDescriptor, adaptor datasource.Adaptor) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if descriptor == nil {
		return fmt.Errorf("partition %s: descriptor is required", key)
	}
	if descriptor.View != key.View {
		return fmt.Errorf("partition %s: descriptor belongs to view %q", key, descriptor.View)
	}
	if adaptor.Dialect() != descriptor.Dialect {
		return fmt.Errorf("partition %s: adaptor speaks %s, descriptor expects %s", key, adaptor.Dialect(), descriptor.Dialect)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.partitions[key]; exists {
		return fmt.Errorf("partition %s already registered", key)
	}
	p := &partition{key: key, descriptor: descriptor, adaptor: adaptor}
	if scoped, ok := adaptor.(datasource.SchemaScoped); ok {
		p.schema = scoped.Schema()
	}
	s.partitions[key] = p
	return nil
}

func (s *AdaptorStore) ListPartitions(view models.View) []models.PartitionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]models.PartitionKey, 0, len(s.partitions))
	for k := range s.partitions {
		if k.View == view {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (s *AdaptorStore) lookup(key models.PartitionKey) (*partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[key]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindUnknownPartition, "no materialized backing for partition %s", key)
	}
	return p, nil
}

func (s *AdaptorStore) GetDescriptor(key models.PartitionKey) (*models.SchemaDescriptor, error) {
	p, err := s.lookup(key)
	if err != nil {
		return nil, err
	}
	return p.descriptor, nil
}

// Execute gates the query before it reaches the adaptor: it must be a
// single read-only statement in the partition's dialect and may only name
// elements of the partition's descriptor.
func (s *AdaptorStore) Execute(ctx context.Context, key models.PartitionKey, dialect models.Dialect, query string, opts ExecuteOptions) (models.ExecutionResult, error) {
	p, err := s.lookup(key)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.ExecutionResult{}, err
	}

	start := time.Now()
	if dialect != p.descriptor.Dialect {
		return failed(start, apperrors.KindExecutionError,
			fmt.Sprintf("partition %s accepts %s queries, got %s", key, p.descriptor.Dialect, dialect)), nil
	}

	normalized, kind, detail := gate(dialect, query, p.descriptor, p.schema)
	if kind != apperrors.KindNone {
		s.logger.Debug("Query refused before execution",
			zap.String("partition", key.String()),
			zap.String("error_class", string(kind)),
			zap.String("query", logging.SanitizeQuery(query)))
		return failed(start, kind, detail), nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultExecuteTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := p.adaptor.Query(execCtx, normalized, opts.MaxRows)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ExecutionResult{}, ctxErr
		}
		var appErr *apperrors.Error
		kind := apperrors.KindExecutionError
		switch {
		case errors.As(err, &appErr):
			kind = appErr.Kind
		case execCtx.Err() != nil:
			kind = apperrors.KindTimeout
		}
		s.logger.Debug("Query failed",
			zap.String("partition", key.String()),
			zap.String("error_class", string(kind)),
			zap.String("error", logging.SanitizeError(err)))
		return failed(start, kind, logging.SanitizeError(err)), nil
	}

	return models.ExecutionResult{
		Succeeded: true,
		Columns:   res.Columns,
		Rows:      res.Rows,
		RowCount:  res.RowCount,
		Truncated: res.Truncated,
		Duration:  time.Since(start),
	}, nil
}

// gate runs the dialect's static checks and returns the normalized query,
// or the failure kind and detail.
func gate(dialect models.Dialect, query string, d *models.SchemaDescriptor, schema string) (string, apperrors.ErrorKind, string) {
	var (
		normalized string
		err        error
		unknown    []string
	)
	switch dialect {
	case models.DialectSQL:
		v := sqlcheck.ValidateReadOnly(query)
		normalized, err = v.NormalizedSQL, v.Error
		if err == nil {
			unknown = sqlcheck.UnknownReferences(normalized, d, schema)
		}
		switch {
		case errors.Is(err, sqlcheck.ErrMultipleStatements), errors.Is(err, sqlcheck.ErrEmptyStatement):
			return "", apperrors.KindQuerySyntaxError, err.Error()
		case err != nil:
			return "", apperrors.KindExecutionError, err.Error()
		}
	case models.DialectCypher:
		v := cypher.ValidateReadOnly(query)
		normalized, err = v.Normalized, v.Error
		if err == nil {
			unknown = cypher.UnknownReferences(normalized, d)
		}
		switch {
		case errors.Is(err, cypher.ErrMultipleStatements), errors.Is(err, cypher.ErrEmptyStatement):
			return "", apperrors.KindQuerySyntaxError, err.Error()
		case err != nil:
			return "", apperrors.KindExecutionError, err.Error()
		}
	default:
		return "", apperrors.KindExecutionError, fmt.Sprintf("unsupported dialect %q", dialect)
	}

	if len(unknown) > 0 {
		return "", apperrors.KindUnknownSchemaElement,
			"not in partition schema: "+strings.Join(unknown, ", ")
	}
	return normalized, apperrors.KindNone, ""
}

func failed(start time.Time, kind apperrors.ErrorKind, detail string) models.ExecutionResult {
	r := models.FailedResult(kind, detail)
	r.Duration = time.Since(start)
	return r
}

func (s *AdaptorStore) Ping(ctx context.Context) map[string]error {
	s.mu.RLock()
	parts := make([]*partition, 0, len(s.partitions))
	for _, p := range s.partitions {
		parts = append(parts, p)
	}
	s.mu.RUnlock()

	failures := make(map[string]error)
	for _, p := range parts {
		if err := p.adaptor.Ping(ctx); err != nil {
			failures[p.key.String()] = err
		}
	}
	return failures
}

// Close closes every adaptor and empties the store.
func (s *AdaptorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, p := range s.partitions {
		if err := p.adaptor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
		delete(s.partitions, key)
	}
	return errors.Join(errs...)
}

var _ Store = (*AdaptorStore)(nil)
