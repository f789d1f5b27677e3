package render

import (
	"context"
	"log/slog"

	"phylo/internal/tree"
)

// ExportFunc exports the diagram currently held by a container.
type ExportFunc func(ctx context.Context, c *Container) error

// Renderer draws trees into a Container.
type Renderer struct {
	opts     Options
	onExport ExportFunc
	logger   *slog.Logger
}

// NewRenderer creates a renderer. onExport backs the control spawned with
// each diagram and may be nil.
func NewRenderer(opts Options, onExport ExportFunc, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts.normalized(), onExport: onExport, logger: logger}
}

// Render replaces whatever c holds with a diagram of root.
func (r *Renderer) Render(root *tree.Node, c *Container) (*Diagram, error) {
	c.Clear()
	d, err := Layout(root, r.opts)
	if err != nil {
		return nil, err
	}
	var trigger func(context.Context) error
	if r.onExport != nil {
		trigger = func(ctx context.Context) error { return r.onExport(ctx, c) }
	}
	c.replace(d, trigger)
	r.logger.Debug("tree rendered", "nodes", len(d.Nodes), "links", len(d.Links), "width", d.Width, "height", d.Height)
	return d, nil
}
