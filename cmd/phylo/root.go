package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phylo/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var out outputOptions
	var logLevel string

	cmd := &cobra.Command{
		Use:           "phylo",
		Short:         "Phylo builds phylogenetic trees on a remote service and renders them as SVG",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&out.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&out.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")

	cmd.AddCommand(
		newRunCmd(cfg, &out),
		newRenderCmd(cfg, &out),
		newExportCmd(cfg, &out),
		newHistoryCmd(cfg, &out),
		newConfigCmd(cfg, &out),
	)

	return cmd
}
