package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"phylo/internal/config"
)

// configEntry is one row of `phylo config list`.
type configEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func newConfigCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change service, history and render settings",
	}
	cmd.AddCommand(newConfigGetCmd(cfg), newConfigListCmd(cfg, out), newConfigSetCmd())
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of one setting",
		Args:  requireExactlyArgs(1, "key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := effectiveValue(cfg, args[0])
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every setting after files and PHYLO_* overrides are applied",
		Args:  requireExactlyArgs(0, "list takes no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := make([]configEntry, 0, len(config.AllowedKeys()))
			width := 0
			for _, key := range config.AllowedKeys() {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				entries = append(entries, configEntry{Key: key, Value: value})
				width = max(width, len(key))
			}
			if f, ok := out.formatter(); ok {
				return writeStructured(f, entries)
			}
			for _, e := range entries {
				if err := writePlain("%-*s  %s\n", width, e.Key, e.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting to .phylo.toml",
		Args:  requireExactlyArgs(2, "key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkConfigKey(key); err != nil {
				return err
			}

			path, err := config.ProjectPath()
			if global {
				path, err = config.GlobalPath()
			}
			if err != nil {
				return err
			}
			if err := config.SetKey(path, key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s = %s (%s)\n", key, value, path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to ~/.phylo.toml instead of ./.phylo.toml")
	return cmd
}

func effectiveValue(cfg *config.Config, key string) (string, error) {
	if err := checkConfigKey(key); err != nil {
		return "", err
	}
	return cfg.Get(key)
}

func checkConfigKey(key string) error {
	if config.IsAllowedKey(key) {
		return nil
	}
	return fmt.Errorf("unknown key: %s (allowed: %s)", key, strings.Join(config.AllowedKeys(), ", "))
}
