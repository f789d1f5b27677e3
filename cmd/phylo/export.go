package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"phylo/internal/config"
	"phylo/internal/models"
	"phylo/internal/store"
)

func newExportCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var opts sessionOptions

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Save a rendered run's tree on the service and download the SVG",
		Long:  "Re-renders the tree of a recorded run (the latest rendered run by default), saves it on the service and downloads the published SVG.",
		Args:  requireAtMostArgs(1, "at most one run id is accepted"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.stderr = cmd.ErrOrStderr()
			opts.quiet = true
			return withHistory(cfg, true, func(hist *store.Store) error {
				run, err := findRenderedRun(cmd.Context(), hist, args)
				if err != nil {
					return err
				}
				return exportRun(cmd.Context(), cfg, hist, run, opts, out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "directory for the downloaded SVG (default: download_dir)")
	return cmd
}

func findRenderedRun(ctx context.Context, hist *store.Store, args []string) (*models.Run, error) {
	if len(args) == 0 {
		run, err := hist.LatestRendered(ctx)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, errors.New("no rendered run in history; run: phylo run <file.fasta>")
		}
		return run, nil
	}

	run, err := lookupRun(ctx, hist, args[0])
	if err != nil {
		return nil, err
	}
	if run.State != models.StateRendered || run.TreePath == "" {
		return nil, fmt.Errorf("run %s has no rendered tree (state: %s)", run.ID, run.State)
	}
	return run, nil
}

func exportRun(ctx context.Context, cfg *config.Config, hist *store.Store, run *models.Run, opts sessionOptions, out *outputOptions) error {
	sess := newSession(cfg, nil, opts)
	defer sess.close()

	root, err := sess.client.FetchTreeData(ctx, run.TreePath)
	if err != nil {
		return err
	}
	sess.container.SetTreePath(run.TreePath)
	if _, err := sess.renderer.Render(root, sess.container); err != nil {
		return err
	}

	res, err := exportContainer(ctx, sess)
	if err != nil {
		return err
	}
	if err := hist.RecordExport(ctx, run.ID, res.SavedPath, res.LocalPath); err != nil {
		slog.Warn("record export", "run_id", run.ID, "error", err)
	}

	if f, ok := out.formatter(); ok {
		return writeStructured(f, res)
	}
	return writePlain("saved: %s\nlocal: %s\n", res.SavedPath, res.LocalPath)
}
