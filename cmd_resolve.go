package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// resolverConfig applies the --max-refine-iterations override.
func resolverConfig(a *app) models.ResolverConfig {
	cfg := a.cfg.ResolverConfig()
	if maxRefineIterations >= 0 {
		cfg = cfg.WithMaxRefineIterations(maxRefineIterations)
	}
	return cfg
}

func runResolve(cmd *cobra.Command, args []string) error {
	key, err := models.ParsePartitionKey(partitionFlag)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resolution, err := a.resolver.Resolve(cmd.Context(), models.Question(args[0]), key, resolverConfig(a))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resolution); err != nil {
			return fmt.Errorf("failed to encode resolution: %w", err)
		}
	} else {
		printResolution(out, resolution)
	}

	switch resolution.Status {
	case models.StateExhausted:
		var cause error
		if resolution.LastError != nil {
			cause = resolution.LastError
		}
		return apperrors.Wrap(apperrors.KindBudgetExhausted,
			fmt.Sprintf("no executable query after %d repairs", resolution.IterationCount), cause)
	case models.StateCancelled:
		return fmt.Errorf("session cancelled: %w", cmd.Context().Err())
	}
	return nil
}

// printResolution writes a human-readable summary followed by the rows.
func printResolution(w io.Writer, r *models.Resolution) {
	fmt.Fprintf(w, "session:    %s\n", r.SessionID)
	fmt.Fprintf(w, "partition:  %s\n", r.Partition)
	fmt.Fprintf(w, "status:     %s\n", r.Status)
	tier := string(r.Tier)
	if r.TierDefaulted {
		tier += " (defaulted)"
	}
	fmt.Fprintf(w, "tier:       %s\n", tier)
	fmt.Fprintf(w, "executions: %d (repairs: %d)\n", r.Executions(), r.IterationCount)

	if r.LastError != nil {
		fmt.Fprintf(w, "last error: %s\n", r.LastError)
	}
	if r.FinalQuery == nil {
		return
	}

	fmt.Fprintf(w, "\n%s\n\n", r.FinalQuery.Text)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			cells[i] = fmt.Sprint(row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func runPartitions(cmd *cobra.Command, args []string) error {
	cfg, logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	views := []models.View{models.ViewCells, models.ViewNetlist}
	if viewFilter != "" {
		v := models.View(viewFilter)
		if v != models.ViewCells && v != models.ViewNetlist {
			return fmt.Errorf("unknown view %q", viewFilter)
		}
		views = []models.View{v}
	}

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tDIALECT\tSTATUS")
	failures := store.Ping(cmd.Context())
	for _, view := range views {
		for _, key := range store.ListPartitions(view) {
			d, err := store.GetDescriptor(key)
			if err != nil {
				return err
			}
			status := "ok"
			if perr, ok := failures[key.String()]; ok {
				status = perr.Error()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, d.Dialect, status)
		}
	}
	return tw.Flush()
}
