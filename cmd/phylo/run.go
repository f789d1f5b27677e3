package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"phylo/internal/api"
	"phylo/internal/config"
	"phylo/internal/export"
	"phylo/internal/models"
	"phylo/internal/store"
)

type runSummary struct {
	Run      models.Run     `json:"run" yaml:"run"`
	Records  int            `json:"records" yaml:"records"`
	Residues int64          `json:"residues" yaml:"residues"`
	Leaves   []string       `json:"leaves,omitempty" yaml:"leaves,omitempty"`
	Export   *export.Result `json:"export,omitempty" yaml:"export,omitempty"`
}

func newRunCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var opts sessionOptions
	var exportAfter, noHistory bool

	cmd := &cobra.Command{
		Use:   "run <file.fasta>",
		Short: "Upload a FASTA file, build its tree and render it",
		Args:  requireExactlyArgs(1, "a FASTA file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.stderr = cmd.ErrOrStderr()
			return withHistory(cfg, false, func(hist *store.Store) error {
				if noHistory {
					hist = nil
				}
				return runPipeline(cmd.Context(), cfg, hist, opts, args[0], exportAfter, out)
			})
		},
	}

	cmd.Flags().BoolVar(&exportAfter, "export", false, "save the rendered tree on the service and download the SVG")
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "directory for the downloaded SVG (default: download_dir)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config, hist *store.Store, opts sessionOptions, path string, exportAfter bool, out *outputOptions) error {
	sess := newSession(cfg, hist, opts)
	outcome, err := sess.orch.Run(ctx, path)
	sess.close()
	if err != nil {
		if sess.notified() {
			return reportedError{err: err}
		}
		return err
	}

	summary := runSummary{
		Run:      outcome.Run,
		Records:  outcome.Input.Records,
		Residues: outcome.Input.Residues,
		Leaves:   outcome.Tree.Leaves(),
	}

	if exportAfter {
		res, err := exportContainer(ctx, sess)
		if err != nil {
			return err
		}
		summary.Export = &res
		summary.Run.ExportedSVGPath = res.SavedPath
		summary.Run.ExportedSVGLocal = res.LocalPath
		if hist != nil {
			if err := hist.RecordExport(ctx, outcome.Run.ID, res.SavedPath, res.LocalPath); err != nil {
				slog.Warn("record export", "run_id", outcome.Run.ID, "error", err)
			}
		}
	}

	if f, ok := out.formatter(); ok {
		return writeStructured(f, summary)
	}
	if err := writeRunDetail(summary.Run); err != nil {
		return err
	}
	if summary.Export != nil {
		return writePlain("saved: %s\n", summary.Export.LocalPath)
	}
	return nil
}

// exportContainer fires the export control attached to the current diagram.
func exportContainer(ctx context.Context, sess *session) (export.Result, error) {
	control := sess.container.Control()
	if control == nil {
		return export.Result{}, api.ErrNoRenderedTree
	}
	if err := control.Trigger(ctx); err != nil {
		return export.Result{}, err
	}
	res, _ := sess.exporter.Last()
	return res, nil
}
