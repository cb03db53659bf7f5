package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/services"
)

// ResolveToolDeps contains dependencies for the resolve_question tool.
type ResolveToolDeps struct {
	Resolver services.Resolver
	Config   models.ResolverConfig
	Logger   *zap.Logger
}

// resolveQuestionResult is the caller-facing subset of a Resolution.
// Provider exchanges stay in the server log.
type resolveQuestionResult struct {
	SessionID      string                 `json:"session_id"`
	Status         models.SessionState    `json:"status"`
	Partition      string                 `json:"partition"`
	Query          *models.CandidateQuery `json:"query,omitempty"`
	Columns        []string               `json:"columns,omitempty"`
	Rows           []map[string]any       `json:"rows,omitempty"`
	Tier           models.ComplexityTier  `json:"tier"`
	IterationCount int                    `json:"iteration_count"`
	Executions     int                    `json:"executions"`
	LastError      any                    `json:"last_error,omitempty"`
	Transitions    []models.SessionState  `json:"transitions"`
}

// RegisterResolveTool adds resolve_question, which runs one resolution
// session against one partition.
func RegisterResolveTool(s *server.MCPServer, deps *ResolveToolDeps) {
	tool := mcp.NewTool(
		"resolve_question",
		mcp.WithDescription("Answers a natural-language question about a cell library or netlist by generating, executing "+
			"and repairing a read-only query against exactly one partition. Use list_partitions to find partition keys."),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, e.g. \"List all cells with width greater than 2.0\""),
		),
		mcp.WithString(
			"partition",
			mcp.Required(),
			mcp.Description("Partition key from list_partitions, e.g. cells:HighDensity/nom or netlist:place"),
		),
		mcp.WithNumber(
			"max_refine_iterations",
			mcp.Description(fmt.Sprintf("Optional: maximum repair attempts (default %d, max %d)",
				deps.Config.MaxRefineIterations, models.MaxRefineIterationsLimit)),
			mcp.Min(0),
			mcp.Max(models.MaxRefineIterationsLimit),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || trimString(question) == "" {
			return NewErrorResult("invalid_parameters", "question is required"), nil
		}
		rawKey, err := req.RequireString("partition")
		if err != nil {
			return NewErrorResult("invalid_parameters", "partition is required"), nil
		}
		key, err := models.ParsePartitionKey(trimString(rawKey))
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		cfg := deps.Config
		if n := req.GetInt("max_refine_iterations", -1); n >= 0 {
			cfg = cfg.WithMaxRefineIterations(n)
		}
		if err := cfg.Validate(); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		resolution, err := deps.Resolver.Resolve(ctx, models.Question(trimString(question)), key, cfg)
		if err != nil {
			deps.Logger.Info("resolve_question failed",
				zap.String("partition", key.String()),
				zap.Error(err))
			return NewAppErrorResult(err), nil
		}

		return jsonResult(toResolveResult(resolution))
	})
}

func toResolveResult(r *models.Resolution) resolveQuestionResult {
	out := resolveQuestionResult{
		SessionID:      r.SessionID.String(),
		Status:         r.Status,
		Partition:      r.Partition.String(),
		Query:          r.FinalQuery,
		Columns:        r.Columns,
		Rows:           r.Rows,
		Tier:           r.Tier,
		IterationCount: r.IterationCount,
		Executions:     r.Executions(),
		Transitions:    r.Transitions,
	}
	if r.LastError != nil {
		out.LastError = r.LastError
	}
	return out
}
