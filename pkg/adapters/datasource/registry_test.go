package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

type stubAdaptor struct {
	config map[string]any
}

func (s *stubAdaptor) Dialect() models.Dialect { return models.DialectSQL }
func (s *stubAdaptor) Query(context.Context, string, int) (*QueryResult, error) {
	return &QueryResult{}, nil
}
func (s *stubAdaptor) Ping(context.Context) error { return nil }
func (s *stubAdaptor) Close() error               { return nil }

func TestRegistry(t *testing.T) {
	Register(AdaptorRegistration{
		Info: AdaptorInfo{Type: "stub-registry", DisplayName: "Stub"},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (Adaptor, error) {
			return &stubAdaptor{config: config}, nil
		},
	})

	assert.True(t, IsRegistered("stub-registry"))
	assert.False(t, IsRegistered("oracle"))
	assert.Nil(t, GetFactory("oracle"))

	var types []string
	for _, info := range RegisteredAdaptors() {
		types = append(types, info.Type)
	}
	assert.Contains(t, types, "stub-registry")
	assert.IsIncreasing(t, types)

	a, err := Open(context.Background(), "stub-registry", map[string]any{"path": "x"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "x", a.(*stubAdaptor).config["path"])

	_, err = Open(context.Background(), "oracle", nil, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported adaptor type: oracle")
}

func TestContextError(t *testing.T) {
	live := context.Background()
	assert.NoError(t, ContextError(live, errors.New("boom")))

	err := ContextError(live, context.DeadlineExceeded)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ContextError(cancelled, errors.New("interrupted")), context.Canceled)

	expired, cancel2 := context.WithTimeout(context.Background(), 0)
	defer cancel2()
	<-expired.Done()
	err = ContextError(expired, errors.New("interrupted"))
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

func TestOptions(t *testing.T) {
	config := map[string]any{
		"host":  "db.internal",
		"port":  5433,
		"conns": float64(7),
		"big":   int64(9),
		"bad":   "12",
	}

	assert.Equal(t, "db.internal", StringOption(config, "host"))
	assert.Equal(t, "", StringOption(config, "port"))
	assert.Equal(t, 5433, IntOption(config, "port", 1))
	assert.Equal(t, 7, IntOption(config, "conns", 1))
	assert.Equal(t, 9, IntOption(config, "big", 1))
	assert.Equal(t, 1, IntOption(config, "bad", 1))
	assert.Equal(t, 1, IntOption(config, "missing", 1))
	assert.Equal(t, DefaultMaxRows, EffectiveMaxRows(0))
	assert.Equal(t, 5, EffectiveMaxRows(5))
}
