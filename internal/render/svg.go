package render

import (
	"bytes"
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
)

// WriteSVG writes d as a standalone SVG 1.1 document.
func (d *Diagram) WriteSVG(w io.Writer) {
	canvas := svg.New(w)
	canvas.Start(d.Width, d.Height, `version="1.1"`)
	canvas.Gtransform(fmt.Sprintf("translate(%d,%d)", Margin, Margin))

	for _, l := range d.Links {
		canvas.Path(d.LinkPath(l),
			`class="link"`, `fill="none"`, `stroke="black"`, `stroke-width="2"`)
	}
	for _, n := range d.Nodes {
		anchor, dx := LabelPlacement(n)
		canvas.Gtransform(fmt.Sprintf("translate(%s,%s)", num(n.X), num(n.Y)))
		canvas.Circle(0, 0, NodeRadius, fmt.Sprintf(`fill="%s"`, NodeFill))
		canvas.Text(0, 0, n.Name,
			`dy="0.35em"`,
			fmt.Sprintf(`dx="%d"`, dx),
			fmt.Sprintf(`text-anchor="%s"`, anchor),
			"font-size:12px")
		canvas.Gend()
	}

	canvas.Gend()
	canvas.End()
}

// Serialize returns the SVG document as text.
func (d *Diagram) Serialize() string {
	var buf bytes.Buffer
	d.WriteSVG(&buf)
	return buf.String()
}
