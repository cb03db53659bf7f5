package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
	"github.com/ekaya-inc/ekaya-eda/pkg/testhelpers"
)

type stubAdaptor struct {
	dialect models.Dialect
	pingErr error
}

func (a *stubAdaptor) Dialect() models.Dialect { return a.dialect }

func (a *stubAdaptor) Query(ctx context.Context, query string, maxRows int) (*datasource.QueryResult, error) {
	return &datasource.QueryResult{}, nil
}

func (a *stubAdaptor) Ping(context.Context) error { return a.pingErr }
func (a *stubAdaptor) Close() error               { return nil }

// newTestStore registers two cell corners and one netlist stage. Pinging
// the netlist partition fails when netlistDown is set.
func newTestStore(t *testing.T, netlistDown bool) *partition.AdaptorStore {
	t.Helper()
	store := partition.NewStore(zap.NewNop())
	cells := testhelpers.CellsDescriptor()
	require.NoError(t, store.Add(models.CellPartition("HighDensity", "nom"), cells, &stubAdaptor{dialect: models.DialectSQL}))
	require.NoError(t, store.Add(models.CellPartition("HighDensity", "max"), cells, &stubAdaptor{dialect: models.DialectSQL}))

	var pingErr error
	if netlistDown {
		pingErr = errors.New("connection refused")
	}
	require.NoError(t, store.Add(models.NetlistPartition("place"), testhelpers.NetlistDescriptor(), &stubAdaptor{dialect: models.DialectCypher, pingErr: pingErr}))
	return store
}

// fakeResolver records its inputs and returns a canned outcome.
type fakeResolver struct {
	mu         sync.Mutex
	resolution *models.Resolution
	err        error
	question   models.Question
	key        models.PartitionKey
	cfg        models.ResolverConfig
}

func (f *fakeResolver) Resolve(ctx context.Context, q models.Question, key models.PartitionKey, cfg models.ResolverConfig) (*models.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.question, f.key, f.cfg = q, key, cfg
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resolution
	r.SessionID = uuid.New()
	r.Question = q
	r.Partition = key
	return &r, nil
}

// callTool invokes a tool through the server's JSON-RPC handler and
// returns the text content and the isError flag.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	msg := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":` + string(params) + `}`

	raw, err := json.Marshal(s.HandleMessage(context.Background(), []byte(msg)))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Nil(t, resp.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, resp.Result.Content)
	return resp.Result.Content[0].Text, resp.Result.IsError
}

func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(false))
}
