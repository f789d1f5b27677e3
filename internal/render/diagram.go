// Package render lays out a tree as a left-to-right node-link diagram and
// serializes it as a standalone SVG document.
package render

import (
	"fmt"
	"strconv"

	"phylo/internal/tree"
)

const (
	DefaultWidth  = 1200
	DefaultHeight = 500

	// Margin is the offset of the drawing group inside the canvas.
	Margin = 40
	// breadthInset and depthInset are subtracted from the canvas to leave
	// room for labels.
	breadthInset = 100
	depthInset   = 200

	NodeRadius  = 6
	LabelOffset = 12
	NodeFill    = "rgb(0, 208, 79)"
)

// Options sizes the canvas. Zero or too-small values fall back to defaults.
type Options struct {
	Width  int
	Height int
}

func (o Options) normalized() Options {
	if o.Width <= depthInset {
		o.Width = DefaultWidth
	}
	if o.Height <= breadthInset {
		o.Height = DefaultHeight
	}
	return o
}

// PlacedNode is a node with screen coordinates relative to the drawing group.
// X grows with depth, Y follows sibling order.
type PlacedNode struct {
	Name   string
	X      float64
	Y      float64
	Depth  int
	Leaf   bool
	Parent int
}

// Link joins Nodes[Source] to Nodes[Target].
type Link struct {
	Source int
	Target int
}

// Diagram is one rendered tree. Nodes are in breadth-first order with the
// root first; Parent is -1 for the root.
type Diagram struct {
	Width  int
	Height int
	Nodes  []PlacedNode
	Links  []Link
}

// Layout computes the diagram for root. It is deterministic for a given
// tree and canvas size.
func Layout(root *tree.Node, opts Options) (*Diagram, error) {
	if err := tree.Validate(root); err != nil {
		return nil, err
	}
	opts = opts.normalized()
	top := tidyLayout(root, float64(opts.Height-breadthInset), float64(opts.Width-depthInset))

	ordered := breadthFirst(top)
	index := make(map[*layoutNode]int, len(ordered))
	d := &Diagram{
		Width:  opts.Width,
		Height: opts.Height,
		Nodes:  make([]PlacedNode, 0, len(ordered)),
		Links:  make([]Link, 0, len(ordered)-1),
	}
	for i, n := range ordered {
		index[n] = i
		parent := -1
		if n != top {
			parent = index[n.parent]
			d.Links = append(d.Links, Link{Source: parent, Target: i})
		}
		d.Nodes = append(d.Nodes, PlacedNode{
			Name:   n.src.Name,
			X:      n.y,
			Y:      n.x,
			Depth:  n.depth,
			Leaf:   len(n.children) == 0,
			Parent: parent,
		})
	}
	return d, nil
}

// LinkPath returns the horizontal cubic bezier joining the ends of l.
func (d *Diagram) LinkPath(l Link) string {
	s, t := d.Nodes[l.Source], d.Nodes[l.Target]
	mid := (s.X + t.X) / 2
	return fmt.Sprintf("M%s,%sC%s,%s,%s,%s,%s,%s",
		num(s.X), num(s.Y), num(mid), num(s.Y), num(mid), num(t.Y), num(t.X), num(t.Y))
}

// LabelPlacement returns the text anchor and horizontal offset of a label.
// Internal labels sit on the root side so they do not cross outgoing links.
func LabelPlacement(n PlacedNode) (anchor string, dx int) {
	if n.Leaf {
		return "start", LabelOffset
	}
	return "end", -LabelOffset
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
