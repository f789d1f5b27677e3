package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"phylo/internal/config"
	"phylo/internal/render"
	"phylo/internal/tree"
)

type renderSummary struct {
	Source string   `json:"source" yaml:"source"`
	Output string   `json:"output" yaml:"output"`
	Nodes  int      `json:"nodes" yaml:"nodes"`
	Links  int      `json:"links" yaml:"links"`
	Depth  int      `json:"depth" yaml:"depth"`
	Leaves []string `json:"leaves" yaml:"leaves"`
}

func newRenderCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <tree.json|tree.yaml>",
		Short: "Render a local tree file to SVG",
		Args:  requireExactlyArgs(1, "a tree file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, structured := out.formatter()
			if structured && (output == "" || output == "-") {
				return errors.New("--output is required with --json or --yaml")
			}

			root, err := tree.LoadFile(args[0])
			if err != nil {
				return err
			}
			diagram, err := render.Layout(root, renderOptions(cfg))
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				diagram.WriteSVG(stdout)
				return nil
			}
			if err := writeFileAtomic(output, []byte(diagram.Serialize())); err != nil {
				return err
			}

			summary := renderSummary{
				Source: args[0],
				Output: output,
				Nodes:  len(diagram.Nodes),
				Links:  len(diagram.Links),
				Depth:  root.Depth(),
				Leaves: root.Leaves(),
			}
			if structured {
				return writeStructured(f, summary)
			}
			return writePlain("wrote %s (%d nodes)\n", output, summary.Nodes)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the SVG to a file instead of stdout")
	return cmd
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".render-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
