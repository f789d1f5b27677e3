package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"phylo/internal/config"
	"phylo/internal/models"
	"phylo/internal/store"
)

func newHistoryCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newHistoryListCmd(cfg, out), newHistoryShowCmd(cfg, out))
	return cmd
}

func newHistoryListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  requireExactlyArgs(0, "list takes no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cfg, true, func(hist *store.Store) error {
				runs, err := hist.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if f, ok := out.formatter(); ok {
					return writeStructured(f, runs)
				}
				return writeRunTable(runs, time.Now())
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	return cmd
}

func newHistoryShowCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run (a unique id prefix is enough)",
		Args:  requireExactlyArgs(1, "run id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cfg, true, func(hist *store.Store) error {
				run, err := lookupRun(cmd.Context(), hist, args[0])
				if err != nil {
					return err
				}
				if f, ok := out.formatter(); ok {
					return writeStructured(f, run)
				}
				return writeRunDetail(*run)
			})
		},
	}
}

// lookupRun loads the run named by ref, a full id or a unique prefix.
func lookupRun(ctx context.Context, hist *store.Store, ref string) (*models.Run, error) {
	id, err := hist.ResolveRunID(ctx, ref)
	if err != nil {
		return nil, err
	}
	run, err := hist.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrRunNotFound, id)
	}
	return run, nil
}
