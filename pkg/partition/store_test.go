package partition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/catalog"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/testhelpers"
)

type fakeAdaptor struct {
	dialect   models.Dialect
	schema    string
	queryFunc func(ctx context.Context, query string, maxRows int) (*datasource.QueryResult, error)
	pingErr   error
	calls     atomic.Int32
	closed    atomic.Bool
}

func (f *fakeAdaptor) Dialect() models.Dialect { return f.dialect }

func (f *fakeAdaptor) Query(ctx context.Context, query string, maxRows int) (*datasource.QueryResult, error) {
	f.calls.Add(1)
	if f.queryFunc != nil {
		return f.queryFunc(ctx, query, maxRows)
	}
	return &datasource.QueryResult{Columns: []string{"n"}, Rows: []map[string]any{{"n": 1}}, RowCount: 1}, nil
}

func (f *fakeAdaptor) Schema() string { return f.schema }

func (f *fakeAdaptor) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeAdaptor) Close() error {
	f.closed.Store(true)
	return nil
}

var (
	hdNom = models.CellPartition("HighDensity", "nom")
	hdMax = models.CellPartition("HighDensity", "max")
	place = models.NetlistPartition("place")
)

func newFakeStore(t *testing.T) (*AdaptorStore, *fakeAdaptor, *fakeAdaptor) {
	t.Helper()
	s := NewStore(zap.NewNop())
	cells := &fakeAdaptor{dialect: models.DialectSQL, schema: "highdensity_nom"}
	graph := &fakeAdaptor{dialect: models.DialectCypher}
	require.NoError(t, s.Add(hdNom, testhelpers.CellsDescriptor(), cells))
	require.NoError(t, s.Add(hdMax, testhelpers.CellsDescriptor(), &fakeAdaptor{dialect: models.DialectSQL, schema: "highdensity_max"}))
	require.NoError(t, s.Add(place, testhelpers.NetlistDescriptor(), graph))
	return s, cells, graph
}

func TestStore_ListAndDescriptor(t *testing.T) {
	s, _, _ := newFakeStore(t)

	assert.Equal(t, []models.PartitionKey{hdMax, hdNom}, s.ListPartitions(models.ViewCells))
	assert.Equal(t, []models.PartitionKey{place}, s.ListPartitions(models.ViewNetlist))

	d, err := s.GetDescriptor(hdNom)
	require.NoError(t, err)
	assert.True(t, d.HasTable("Macros"))

	_, err = s.GetDescriptor(models.CellPartition("HighDensity", "typ"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownPartition)
	assert.Contains(t, err.Error(), "cells:HighDensity/typ")
}

func TestStore_Add_Validation(t *testing.T) {
	s := NewStore(zap.NewNop())
	sqlAdaptor := &fakeAdaptor{dialect: models.DialectSQL}

	err := s.Add(place, testhelpers.NetlistDescriptor(), sqlAdaptor)
	assert.ErrorContains(t, err, "adaptor speaks sql, descriptor expects cypher")

	err = s.Add(hdNom, testhelpers.NetlistDescriptor(), sqlAdaptor)
	assert.ErrorContains(t, err, `descriptor belongs to view "netlist"`)

	err = s.Add(models.PartitionKey{View: models.ViewCells, LibraryVariant: "HighDensity"}, testhelpers.CellsDescriptor(), sqlAdaptor)
	assert.Error(t, err)

	require.NoError(t, s.Add(hdNom, testhelpers.CellsDescriptor(), sqlAdaptor))
	assert.ErrorContains(t, s.Add(hdNom, testhelpers.CellsDescriptor(), sqlAdaptor), "already registered")
}

func TestStore_Execute_GatesBeforeAdaptor(t *testing.T) {
	s, cells, graph := newFakeStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     models.PartitionKey
		dialect models.Dialect
		query   string
		want    apperrors.ErrorKind
	}{
		{"write statement", hdNom, models.DialectSQL, "UPDATE Macros SET Width = 0", apperrors.KindExecutionError},
		{"select into", hdNom, models.DialectSQL, "SELECT * INTO Backup FROM Macros", apperrors.KindExecutionError},
		{"two statements", hdNom, models.DialectSQL, "SELECT 1; SELECT 2", apperrors.KindQuerySyntaxError},
		{"empty", hdNom, models.DialectSQL, "  ", apperrors.KindQuerySyntaxError},
		{"unknown column", hdNom, models.DialectSQL, "SELECT Slew FROM Macros", apperrors.KindUnknownSchemaElement},
		{"unknown table", hdNom, models.DialectSQL, "SELECT Name FROM Wires", apperrors.KindUnknownSchemaElement},
		{"sibling partition schema", hdNom, models.DialectSQL, "SELECT Width FROM highdensity_max.Macros", apperrors.KindUnknownSchemaElement},
		{"sibling schema in a join", hdNom, models.DialectSQL, "SELECT m.Name FROM Macros m JOIN highdensity_max.Pins p ON p.MacroName = m.Name", apperrors.KindUnknownSchemaElement},
		{"database-qualified table", hdNom, models.DialectSQL, "SELECT m.Width FROM eda_lowpower.dbo.Macros m", apperrors.KindUnknownSchemaElement},
		{"dynamic SQL function", hdNom, models.DialectSQL, "SELECT query_to_xml('SELECT Width FROM highdensity_max.Macros', true, false, '')", apperrors.KindUnknownSchemaElement},
		{"dialect mismatch", hdNom, models.DialectCypher, "MATCH (c:Cell) RETURN c.name", apperrors.KindExecutionError},
		{"cypher write", place, models.DialectCypher, "MATCH (c:Cell) SET c.x = 0", apperrors.KindExecutionError},
		{"unknown label", place, models.DialectCypher, "MATCH (m:Macro) RETURN m.name", apperrors.KindUnknownSchemaElement},
		{"unknown relationship", place, models.DialectCypher, "MATCH (c:Cell)-[:FEEDS]->(n:Net) RETURN n.name", apperrors.KindUnknownSchemaElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Execute(ctx, tt.key, tt.dialect, tt.query, ExecuteOptions{})
			require.NoError(t, err)
			assert.False(t, res.Succeeded)
			assert.Equal(t, tt.want, res.ErrorClass, res.ErrorDetail)
			assert.NotEmpty(t, res.ErrorDetail)
		})
	}

	assert.Zero(t, cells.calls.Load(), "refused queries must not reach the store")
	assert.Zero(t, graph.calls.Load(), "refused queries must not reach the store")
}

func TestStore_Execute_UnknownReferenceDetail(t *testing.T) {
	s, _, _ := newFakeStore(t)

	res, err := s.Execute(context.Background(), hdNom, models.DialectSQL,
		"SELECT m.Name, m.Slew FROM Macros m", ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindUnknownSchemaElement, res.ErrorClass)
	assert.Equal(t, "not in partition schema: column Macros.Slew", res.ErrorDetail)
}

func TestStore_Execute_OwnSchemaPrefix(t *testing.T) {
	s, cells, _ := newFakeStore(t)

	res, err := s.Execute(context.Background(), hdNom, models.DialectSQL,
		"SELECT Width FROM HighDensity_Nom.Macros", ExecuteOptions{})
	require.NoError(t, err)
	assert.True(t, res.Succeeded, res.ErrorDetail)
	assert.Equal(t, int32(1), cells.calls.Load())

	res, err = s.Execute(context.Background(), hdNom, models.DialectSQL,
		"SELECT Width FROM highdensity_max.Macros", ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "not in partition schema: table highdensity_max.Macros", res.ErrorDetail)
	assert.Equal(t, int32(1), cells.calls.Load())
}

func TestStore_Execute_AdaptorOutcomes(t *testing.T) {
	s, cells, _ := newFakeStore(t)
	ctx := context.Background()
	query := "SELECT Name FROM Macros"

	t.Run("success passes rows through", func(t *testing.T) {
		cells.queryFunc = func(ctx context.Context, q string, maxRows int) (*datasource.QueryResult, error) {
			assert.Equal(t, 2, maxRows)
			return &datasource.QueryResult{
				Columns:   []string{"Name"},
				Rows:      []map[string]any{{"Name": "INV_X1"}, {"Name": "NAND2_X1"}},
				RowCount:  2,
				Truncated: true,
			}, nil
		}
		res, err := s.Execute(ctx, hdNom, models.DialectSQL, query, ExecuteOptions{MaxRows: 2})
		require.NoError(t, err)
		assert.True(t, res.Succeeded)
		assert.Equal(t, 2, res.RowCount)
		assert.True(t, res.Truncated)
		assert.Equal(t, []string{"Name"}, res.Columns)
	})

	t.Run("classified store error keeps its kind", func(t *testing.T) {
		cells.queryFunc = func(ctx context.Context, q string, maxRows int) (*datasource.QueryResult, error) {
			return nil, apperrors.New(apperrors.KindQuerySyntaxError, `near "FORM": syntax error`)
		}
		res, err := s.Execute(ctx, hdNom, models.DialectSQL, query, ExecuteOptions{})
		require.NoError(t, err)
		assert.Equal(t, apperrors.KindQuerySyntaxError, res.ErrorClass)
		assert.Contains(t, res.ErrorDetail, "syntax error")
	})

	t.Run("unclassified store error is an execution error", func(t *testing.T) {
		cells.queryFunc = func(ctx context.Context, q string, maxRows int) (*datasource.QueryResult, error) {
			return nil, errors.New("disk I/O error")
		}
		res, err := s.Execute(ctx, hdNom, models.DialectSQL, query, ExecuteOptions{})
		require.NoError(t, err)
		assert.Equal(t, apperrors.KindExecutionError, res.ErrorClass)
	})

	t.Run("deadline is a timeout", func(t *testing.T) {
		cells.queryFunc = func(ctx context.Context, q string, maxRows int) (*datasource.QueryResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		res, err := s.Execute(ctx, hdNom, models.DialectSQL, query, ExecuteOptions{Timeout: 20 * time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, apperrors.KindTimeout, res.ErrorClass)
	})

	t.Run("parent cancellation is returned as an error", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cells.queryFunc = func(ctx context.Context, q string, maxRows int) (*datasource.QueryResult, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		_, err := s.Execute(cctx, hdNom, models.DialectSQL, query, ExecuteOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown partition is an error", func(t *testing.T) {
		_, err := s.Execute(ctx, models.NetlistPartition("route"), models.DialectCypher, "MATCH (c:Cell) RETURN c", ExecuteOptions{})
		assert.ErrorIs(t, err, apperrors.ErrUnknownPartition)
	})
}

func TestStore_PingAndClose(t *testing.T) {
	s := NewStore(zap.NewNop())
	healthy := &fakeAdaptor{dialect: models.DialectSQL}
	down := &fakeAdaptor{dialect: models.DialectCypher, pingErr: errors.New("connection refused")}
	require.NoError(t, s.Add(hdNom, testhelpers.CellsDescriptor(), healthy))
	require.NoError(t, s.Add(place, testhelpers.NetlistDescriptor(), down))

	failures := s.Ping(context.Background())
	require.Len(t, failures, 1)
	assert.EqualError(t, failures["netlist:place"], "connection refused")

	require.NoError(t, s.Close())
	assert.True(t, healthy.closed.Load())
	assert.True(t, down.closed.Load())
	assert.Empty(t, s.ListPartitions(models.ViewCells))
}

func sqliteCatalog(t *testing.T, corners ...string) *catalog.Catalog {
	t.Helper()
	spec := &catalog.ViewSpec{Dialect: models.DialectSQL, Descriptor: testhelpers.CellsDescriptor()}
	for _, corner := range corners {
		spec.Partitions = append(spec.Partitions, catalog.PartitionSpec{
			LibraryVariant:  "HighDensity",
			OperatingCorner: corner,
			Adaptor:         "sqlite",
			Options:         map[string]any{"path": testhelpers.NewCellLibraryFixture(t, "HighDensity", corner)},
		})
	}
	return &catalog.Catalog{Views: map[models.View]*catalog.ViewSpec{models.ViewCells: spec}}
}

// The same query text runs in every corner of a view and returns that
// corner's values.
func TestOpen_SQLitePartitionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, sqliteCatalog(t, "min", "max"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	query := "SELECT Delay FROM TimingArcs WHERE MacroName = 'DFF_X1'"
	minKey := models.CellPartition("HighDensity", "min")
	maxKey := models.CellPartition("HighDensity", "max")

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, tc := range []struct {
			key  models.PartitionKey
			want float64
		}{{minKey, 0.085 * 0.8}, {maxKey, 0.085 * 1.3}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := s.Execute(ctx, tc.key, models.DialectSQL, query, ExecuteOptions{Timeout: 5 * time.Second})
				if err != nil {
					errs <- err
					return
				}
				if !res.Succeeded || res.RowCount != 1 {
					errs <- fmt.Errorf("%s: unexpected result %+v", tc.key, res)
					return
				}
				got, _ := res.Rows[0]["Delay"].(float64)
				if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
					errs <- fmt.Errorf("%s: delay %v, want %v", tc.key, got, tc.want)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestOpen_SQLiteSchemaPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, sqliteCatalog(t, "nom"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	key := models.CellPartition("HighDensity", "nom")

	res, err := s.Execute(ctx, key, models.DialectSQL,
		"SELECT Delay FROM main.TimingArcs WHERE MacroName = 'DFF_X1'", ExecuteOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.True(t, res.Succeeded, res.ErrorDetail)
	assert.Equal(t, 1, res.RowCount)

	res, err = s.Execute(ctx, key, models.DialectSQL,
		"SELECT Delay FROM temp.TimingArcs", ExecuteOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindUnknownSchemaElement, res.ErrorClass)
}

func TestOpen_FailsOnMissingBacking(t *testing.T) {
	cat := sqliteCatalog(t, "nom")
	cat.Views[models.ViewCells].Partitions = append(cat.Views[models.ViewCells].Partitions, catalog.PartitionSpec{
		LibraryVariant:  "HighDensity",
		OperatingCorner: "typ",
		Adaptor:         "sqlite",
		Options:         map[string]any{"path": "/nonexistent/typ.db"},
	})

	_, err := Open(context.Background(), cat, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cells:HighDensity/typ")
}
