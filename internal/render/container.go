package render

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleControl is returned when an export control outlived its diagram.
var ErrStaleControl = errors.New("export control belongs to a replaced diagram")

// Container owns the single diagram slot shared by the renderer and the
// exporter. It also remembers the tree path the diagram was fetched from.
type Container struct {
	mu         sync.Mutex
	diagram    *Diagram
	treePath   string
	control    *ExportControl
	generation uint64
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{}
}

// Diagram returns the current diagram, or nil.
func (c *Container) Diagram() *Diagram {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diagram
}

// Control returns the export control of the current diagram, or nil.
func (c *Container) Control() *ExportControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control
}

// TreePath returns the stored results path.
func (c *Container) TreePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.treePath
}

// SetTreePath stores the results path the next diagram belongs to.
func (c *Container) SetTreePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.treePath = path
}

// Clear removes the diagram and its control. The stored tree path is kept.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagram = nil
	c.control = nil
	c.generation++
}

// replace installs d and a fresh control, retiring the previous ones.
func (c *Container) replace(d *Diagram, trigger func(context.Context) error) *ExportControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.diagram = d
	c.control = &ExportControl{container: c, generation: c.generation, trigger: trigger}
	return c.control
}

func (c *Container) current(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == generation
}

// ExportControl is the save action attached to one rendered diagram.
type ExportControl struct {
	container  *Container
	generation uint64
	trigger    func(context.Context) error
}

// Label is the caption of the control.
func (e *ExportControl) Label() string {
	return "Save Tree as SVG"
}

// Trigger runs the export bound to this control's diagram.
func (e *ExportControl) Trigger(ctx context.Context) error {
	if e == nil || !e.container.current(e.generation) {
		return ErrStaleControl
	}
	if e.trigger == nil {
		return errors.New("export is not configured")
	}
	return e.trigger(ctx)
}
