package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
)

type partitionInfo struct {
	Key         string         `json:"key"`
	View        models.View    `json:"view"`
	Dialect     models.Dialect `json:"dialect"`
	Description string         `json:"description,omitempty"`
}

type listPartitionsResult struct {
	Partitions []partitionInfo `json:"partitions"`
}

var knownViews = []models.View{models.ViewCells, models.ViewNetlist}

// RegisterListPartitionsTool adds list_partitions, which enumerates the
// partition keys that resolve_question accepts.
func RegisterListPartitionsTool(s *server.MCPServer, store partition.Store) {
	tool := mcp.NewTool(
		"list_partitions",
		mcp.WithDescription("Lists the queryable partitions. Cell-library partitions are keyed by library variant and operating corner "+
			"(e.g. cells:HighDensity/nom), netlist partitions by design stage (e.g. netlist:place)."),
		mcp.WithString(
			"view",
			mcp.Description("Optional: restrict to one view"),
			mcp.Enum(string(models.ViewCells), string(models.ViewNetlist)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		views := knownViews
		if v := trimString(req.GetString("view", "")); v != "" {
			view := models.View(v)
			if view != models.ViewCells && view != models.ViewNetlist {
				return NewErrorResult("invalid_parameters", fmt.Sprintf("unknown view %q", v)), nil
			}
			views = []models.View{view}
		}

		result := listPartitionsResult{Partitions: []partitionInfo{}}
		for _, view := range views {
			for _, key := range store.ListPartitions(view) {
				info := partitionInfo{Key: key.String(), View: key.View}
				if d, err := store.GetDescriptor(key); err == nil {
					info.Dialect = d.Dialect
					info.Description = d.Description
				}
				result.Partitions = append(result.Partitions, info)
			}
		}
		return jsonResult(result)
	})
}
