package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"homeplan/cmd/homeplan/ui"
	"homeplan/internal/planner"
	"homeplan/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var filter store.Filter

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			if filter.Method != "" {
				method, err := planner.MethodName(filter.Method)
				if err != nil {
					return err
				}
				filter.Method = method
			}

			j, err := a.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(ctx, filter)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRuns(a.styles, runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.BatchID, "batch", "", "Only runs from this batch")
	cmd.Flags().StringVar(&filter.Method, "strategy", "", "Only runs of this strategy")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "Maximum runs to list")

	show := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one recorded run with its trace and repairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			j, err := a.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no run %s in %s", args[0], j.Path())
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRun(a.styles, run))
			return nil
		},
	}

	var batchID string
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Per-strategy totals over recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			j, err := a.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			all, err := j.Stats(ctx, batchID)
			if err != nil {
				return err
			}
			table := ui.NewTable("Recorded runs", "strategy", "runs", "success", "calls", "repairs")
			for _, m := range all {
				table.AddRow(m.Method, fmt.Sprint(m.Runs),
					fmt.Sprintf("%.0f%%", 100*m.SuccessRate()),
					fmt.Sprintf("%.2f", m.MeanCalls),
					fmt.Sprintf("%.2f", m.MeanRepairs))
			}
			out := table.View(a.styles)
			if out == "" {
				out = a.styles.Muted.Render("no runs recorded") + "\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	stats.Flags().StringVar(&batchID, "batch", "", "Only runs from this batch")

	cmd.AddCommand(show, stats)
	return cmd
}

// openJournal opens the journal for reading even when recording is disabled.
func (a *app) openJournal() (*store.Journal, error) {
	if a.cfg.Store.DatabasePath == "" {
		return nil, fmt.Errorf("store.database_path is not set")
	}
	return store.Open(a.cfg.Store.DatabasePath)
}
