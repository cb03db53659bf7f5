package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/services"
)

// maxBatchLine bounds one JSONL line of the input file.
const maxBatchLine = 1 << 20

// readBatchItems parses one BatchItem per non-empty line. Items without
// an id are numbered by line.
func readBatchItems(r io.Reader) ([]services.BatchItem, error) {
	var items []services.BatchItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxBatchLine)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var item services.BatchItem
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("line-%d", line)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch input: %w", err)
	}
	return items, nil
}

func writeBatchResults(w io.Writer, results []services.BatchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write result %s: %w", r.ID, err)
		}
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	items, err := readBatchItems(f)
	f.Close()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	concurrency := a.cfg.Resolver.Concurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}
	runner := services.NewBatchRunner(a.resolver, concurrency, a.logger)

	progress := func(current, total int, id string) {
		a.logger.Info("Batch progress",
			zap.Int("current", current),
			zap.Int("total", total),
			zap.String("id", id))
	}
	results := runner.Run(cmd.Context(), items, resolverConfig(a), progress)

	out := cmd.OutOrStdout()
	if batchOutput != "" {
		file, err := os.Create(batchOutput)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	if err := writeBatchResults(out, results); err != nil {
		return err
	}

	summary := services.Summarize(results)
	fmt.Fprintf(cmd.ErrOrStderr(), "total=%d resolved=%d exhausted=%d cancelled=%d failed=%d\n",
		summary.Total, summary.Resolved, summary.Exhausted, summary.Cancelled, summary.Failed)
	return cmd.Context().Err()
}
