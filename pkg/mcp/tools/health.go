package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
)

type healthResult struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Partitions map[string]string `json:"partitions,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool pings every partition backing and reports failures by key.
func RegisterHealthTool(s *server.MCPServer, store partition.Store, version string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and unreachable partitions"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if failures := store.Ping(ctx); len(failures) > 0 {
			result.Status = "degraded"
			result.Partitions = make(map[string]string, len(failures))
			for key, err := range failures {
				result.Partitions[key] = err.Error()
			}
		}
		return jsonResult(result)
	})
}
