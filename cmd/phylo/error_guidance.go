package main

import (
	"context"
	"errors"

	"phylo/internal/api"
	"phylo/internal/render"
	"phylo/internal/store"
)

var errHistoryDisabled = errors.New("run history is disabled (history_path is empty)")

// reportedError marks a failure the user has already been shown.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}
	var reported reportedError
	if errors.As(err, &reported) {
		lines = nil
	}

	switch {
	case errors.Is(err, api.ErrNoRenderedTree):
		lines = append(lines, "hint: render a tree first with: phylo run <file.fasta>")
		return uniqueLines(lines)
	case errors.Is(err, api.ErrMissingIdentifier):
		lines = append(lines, "hint: the service did not publish the tree under results/<id>/tree.json; it cannot be exported.")
		return uniqueLines(lines)
	case errors.Is(err, render.ErrStaleControl):
		lines = append(lines, "hint: a newer tree replaced this one; export the current tree instead.")
		return uniqueLines(lines)
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, store.ErrAmbiguousRunRef):
		lines = append(lines, "hint: list recorded runs with: phylo history list")
		return uniqueLines(lines)
	case errors.Is(err, store.ErrHistoryPathRequired), errors.Is(err, errHistoryDisabled):
		lines = append(lines, "hint: set a path with: phylo config set history_path <file> --global")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check service health or increase PHYLO_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}
	if errors.Is(err, context.Canceled) {
		lines = append(lines, "hint: interrupted; the service may still be processing the run.")
		return uniqueLines(lines)
	}

	var stepErr *api.StepError
	if errors.As(err, &stepErr) {
		switch {
		case stepErr.InProgress():
			lines = append(lines, "hint: another run holds the service; wait for it to finish and retry.")
		case stepErr.Network:
			lines = append(lines,
				"hint: ensure the phylogenetics service is reachable at PHYLO_API_URL.",
				"hint: you can increase PHYLO_HTTP_TIMEOUT for slow alignments.",
			)
		case stepErr.Status >= 500:
			lines = append(lines, "hint: service returned an internal error; check service logs for details.")
		}
		if stepErr.Details != "" {
			lines = append(lines, "details: "+stepErr.Details)
		}
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
