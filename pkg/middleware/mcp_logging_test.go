package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		wrapped := MCPRequestLogger(zap.New(core))(jsonHandler(
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`))

		reqBody := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"resolve_question","arguments":{"question":"List the cells","partition":"cells:HighDensity/nom"}}}`
		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
		wrapped.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 2, logs.Len())
		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "resolve_question", requestLog.ContextMap()["tool"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs JSON-RPC error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		wrapped := MCPRequestLogger(zap.New(core))(jsonHandler(
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"unknown tool"}}`))

		req := httptest.NewRequest(http.MethodPost, "/mcp",
			bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`))
		wrapped.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 2, logs.Len())
		errLog := logs.All()[1]
		assert.Equal(t, "MCP response error", errLog.Message)
		assert.Equal(t, int64(-32602), errLog.ContextMap()["error_code"])
	})

	t.Run("logs tool-reported error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		wrapped := MCPRequestLogger(zap.New(core))(jsonHandler(
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[]}}`))

		req := httptest.NewRequest(http.MethodPost, "/mcp",
			bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"resolve_question"}}`))
		wrapped.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("body is still readable downstream", func(t *testing.T) {
		reqBody := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		var seen string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
		})

		MCPRequestLogger(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody)))
		assert.Equal(t, reqBody, seen)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		MCPRequestLogger(nil)(handler).ServeHTTP(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodPost, "/mcp", nil))
		assert.True(t, called)
	})
}

func TestSanitizeArguments(t *testing.T) {
	long := strings.Repeat("q", 500)
	got := sanitizeArguments(map[string]any{
		"question":              long,
		"partition":             "netlist:place",
		"api_key":               "sk-secret",
		"max_refine_iterations": float64(3),
	})

	assert.Equal(t, long[:200]+"...", got["question"])
	assert.Equal(t, "netlist:place", got["partition"])
	assert.Equal(t, "[REDACTED]", got["api_key"])
	assert.Equal(t, float64(3), got["max_refine_iterations"])
	assert.Nil(t, sanitizeArguments(nil))
}
