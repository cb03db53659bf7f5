package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/mcp"
	"github.com/ekaya-inc/ekaya-eda/pkg/middleware"
)

// maxMCPRequestBytes bounds one JSON-RPC request body.
const maxMCPRequestBytes = 1 << 20

// MCPHandler serves the MCP streamable HTTP transport at /mcp.
type MCPHandler struct {
	transport *server.StreamableHTTPServer
	logger    *zap.Logger
}

func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		transport: mcpServer.NewStreamableHTTPServer(),
		logger:    logger,
	}
}

// RegisterRoutes mounts /mcp. Only POST is accepted; the stateless
// transport has no GET stream or DELETE session.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux) {
	logged := middleware.MCPRequestLogger(h.logger)(h.transport)
	mux.Handle("/mcp", h.limit(logged))
}

func (h *MCPHandler) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxMCPRequestBytes)
		next.ServeHTTP(w, r)
	})
}
