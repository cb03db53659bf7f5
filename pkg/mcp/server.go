package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
)

// Server exposes the resolver to MCP clients.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with tool capabilities. Handler panics
// are recovered and tool-level failures are logged through hooks.
func NewServer(name, version string, logger *zap.Logger) *Server {
	s := &Server{logger: logger.Named("mcp")}
	s.mcp = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(s.hooks()),
	)
	return s
}

func (s *Server) hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
		if result != nil && result.IsError {
			s.logger.Info("Tool returned an error result", zap.String("tool", req.Params.Name))
		}
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
		s.logger.Warn("MCP request failed", zap.String("method", string(method)), zap.Error(err))
	})
	return hooks
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterResolverTools adds health, list_partitions and resolve_question.
func (s *Server) RegisterResolverTools(store partition.Store, deps *tools.ResolveToolDeps, version string) {
	tools.RegisterHealthTool(s.mcp, store, version)
	tools.RegisterListPartitionsTool(s.mcp, store)
	tools.RegisterResolveTool(s.mcp, deps)
}

// RegisterTool adds a single tool.
func (s *Server) RegisterTool(tool mcplib.Tool, handler server.ToolHandlerFunc) {
	s.logger.Debug("Registering MCP tool", zap.String("tool", tool.Name))
	s.mcp.AddTool(tool, handler)
}

// NewStreamableHTTPServer returns a stateless HTTP transport. Routing to
// /mcp is done by the caller's mux.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}
