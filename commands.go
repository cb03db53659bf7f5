package main

import (
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-eda/pkg/config"
)

var (
	configPath          string
	partitionFlag       string
	maxRefineIterations int
	jsonOutput          bool
	batchOutput         string
	batchConcurrency    int
	viewFilter          string

	rootCmd = &cobra.Command{
		Use:   "ekaya-eda",
		Short: "Answer natural-language questions about cell libraries and netlists",
		Long: `ekaya-eda turns a question into a read-only SQL or Cypher query against one
partition of the EDA data (a library variant at an operating corner, or a
design stage), executes it, and repairs it from the error until it runs or
the repair budget is spent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve [question]",
		Short: "Resolve one question against one partition",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve, // Defined in cmd_resolve.go
	}

	batchCmd = &cobra.Command{
		Use:   "batch [questions.jsonl]",
		Short: "Resolve a JSONL file of {id, question, partition} items concurrently",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch, // Defined in cmd_batch.go
	}

	partitionsCmd = &cobra.Command{
		Use:   "partitions",
		Short: "List the partition keys in the catalog",
		Args:  cobra.NoArgs,
		RunE:  runPartitions, // Defined in cmd_resolve.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve /health, /metrics and the MCP endpoint at /mcp",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.yaml (empty reads the environment only)")

	resolveCmd.Flags().StringVarP(&partitionFlag, "partition", "p", "", "partition key, e.g. cells:HighDensity/nom or netlist:place")
	resolveCmd.Flags().IntVar(&maxRefineIterations, "max-refine-iterations", -1, "override resolver.max_refine_iterations")
	resolveCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full resolution as JSON")
	_ = resolveCmd.MarkFlagRequired("partition")

	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write JSONL results here instead of stdout")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "override resolver.concurrency")
	batchCmd.Flags().IntVar(&maxRefineIterations, "max-refine-iterations", -1, "override resolver.max_refine_iterations")

	partitionsCmd.Flags().StringVar(&viewFilter, "view", "", "restrict to one view (cells or netlist)")

	rootCmd.AddCommand(resolveCmd, batchCmd, partitionsCmd, serveCmd)
}
