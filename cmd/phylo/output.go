package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"phylo/internal/format"
	"phylo/internal/models"
)

type outputOptions struct {
	json bool
	yaml bool
}

func (o *outputOptions) formatter() (format.Formatter, bool) {
	switch {
	case o == nil:
		return nil, false
	case o.json:
		return format.JSONFormatter{}, true
	case o.yaml:
		return format.YAMLFormatter{}, true
	default:
		return nil, false
	}
}

var stdout io.Writer = os.Stdout

func writeStructured(f format.Formatter, payload any) error {
	return f.Write(stdout, payload)
}

func writePlain(layout string, args ...any) error {
	_, err := fmt.Fprintf(stdout, layout, args...)
	return err
}

func writeRunTable(runs []models.Run, now time.Time) error {
	if len(runs) == 0 {
		return writePlain("no runs recorded\n")
	}
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "State", "Input", "Nodes", "Request", "Started"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			formatState(run),
			run.InputPath,
			run.NodeCount,
			run.RequestID,
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
		})
	}
	t.Render()
	return nil
}

func writeRunDetail(run models.Run) error {
	lines := []string{
		fmt.Sprintf("id: %s", run.ID),
		fmt.Sprintf("state: %s", formatState(run)),
		fmt.Sprintf("input: %s", run.InputPath),
	}
	if run.InputBytes > 0 {
		lines = append(lines, fmt.Sprintf("input_size: %s", humanize.Bytes(uint64(run.InputBytes))))
	}
	if run.InputDigest != "" {
		lines = append(lines, fmt.Sprintf("input_digest: %s", run.InputDigest))
	}
	if run.UploadedPath != "" {
		lines = append(lines, fmt.Sprintf("uploaded: %s", run.UploadedPath))
	}
	if run.AlignedPath != "" {
		lines = append(lines, fmt.Sprintf("aligned: %s", run.AlignedPath))
	}
	if run.TreePath != "" {
		lines = append(lines, fmt.Sprintf("tree: %s", run.TreePath))
	}
	if run.RequestID != "" {
		lines = append(lines, fmt.Sprintf("request_id: %s", run.RequestID))
	}
	if run.NodeCount > 0 {
		lines = append(lines, fmt.Sprintf("nodes: %d", run.NodeCount))
	}
	if run.Reason != "" {
		lines = append(lines, fmt.Sprintf("reason: %s", run.Reason))
	}
	if run.ExportedSVGPath != "" {
		lines = append(lines, fmt.Sprintf("exported_svg: %s", run.ExportedSVGPath))
	}
	if run.ExportedSVGLocal != "" {
		lines = append(lines, fmt.Sprintf("downloaded_svg: %s", run.ExportedSVGLocal))
	}
	lines = append(lines, fmt.Sprintf("started_at: %s", formatTime(run.StartedAt)))
	if run.FinishedAt != nil {
		lines = append(lines, fmt.Sprintf("finished_at: %s (%s)", formatTime(*run.FinishedAt), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatState(run models.Run) string {
	if run.State == models.StateFailed && run.FailedStep != "" {
		return fmt.Sprintf("%s (%s)", run.State, run.FailedStep)
	}
	return string(run.State)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
