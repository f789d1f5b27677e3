package render

import "phylo/internal/tree"

// layoutNode carries the bookkeeping of the Buchheim/Walker tidy-tree pass.
// Field names follow the paper: prelim, mod, change, shift, thread, ancestor.
type layoutNode struct {
	src      *tree.Node
	parent   *layoutNode
	children []*layoutNode
	index    int
	depth    int

	prelim      float64
	mod         float64
	change      float64
	shift       float64
	thread      *layoutNode
	ancestor    *layoutNode
	defAncestor *layoutNode

	x float64
	y float64
}

// tidyLayout positions every node of root inside a breadth x depth box.
// Siblings are one unit apart, cousins two, before scaling.
func tidyLayout(root *tree.Node, breadth, depth float64) *layoutNode {
	virtual := &layoutNode{}
	top := buildLayoutTree(root, virtual, 0, 0)
	virtual.children = []*layoutNode{top}

	eachAfter(top, firstWalk)
	virtual.mod = -top.prelim
	eachBefore(top, secondWalk)

	left, right, bottom := top, top, top
	eachBefore(top, func(n *layoutNode) {
		if n.x < left.x {
			left = n
		}
		if n.x > right.x {
			right = n
		}
		if n.depth > bottom.depth {
			bottom = n
		}
	})

	s := 1.0
	if left != right {
		s = separation(left, right) / 2
	}
	tx := s - left.x
	kx := breadth / (right.x + s + tx)
	ky := depth
	if bottom.depth > 0 {
		ky = depth / float64(bottom.depth)
	}
	eachBefore(top, func(n *layoutNode) {
		n.x = (n.x + tx) * kx
		n.y = float64(n.depth) * ky
	})
	return top
}

func buildLayoutTree(src *tree.Node, parent *layoutNode, index, depth int) *layoutNode {
	n := &layoutNode{src: src, parent: parent, index: index, depth: depth}
	n.ancestor = n
	if len(src.Children) > 0 {
		n.children = make([]*layoutNode, len(src.Children))
		for i, child := range src.Children {
			n.children[i] = buildLayoutTree(child, n, i, depth+1)
		}
	}
	return n
}

func separation(a, b *layoutNode) float64 {
	if a.parent == b.parent {
		return 1
	}
	return 2
}

func firstWalk(v *layoutNode) {
	siblings := v.parent.children
	var w *layoutNode
	if v.index > 0 {
		w = siblings[v.index-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if w != nil {
			v.prelim = w.prelim + separation(v, w)
			v.mod = v.prelim - midpoint
		} else {
			v.prelim = midpoint
		}
	} else if w != nil {
		v.prelim = w.prelim + separation(v, w)
	}
	ancestor := v.parent.defAncestor
	if ancestor == nil {
		ancestor = siblings[0]
	}
	v.parent.defAncestor = apportion(v, w, ancestor)
}

func secondWalk(v *layoutNode) {
	v.x = v.prelim + v.parent.mod
	v.mod += v.parent.mod
}

// apportion pushes the subtree of v right until its left contour clears the
// right contour of the subtrees to its left, spreading the shift across the
// siblings in between.
func apportion(v, w, ancestor *layoutNode) *layoutNode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim, vom := w, v.parent.children[0]
	sip, sop := vip.mod, vop.mod
	sim, som := vim.mod, vom.mod

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.ancestor = v
		shift := vim.prelim + sim - vip.prelim - sip + separation(vim, vip)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.mod
		sip += vip.mod
		som += vom.mod
		sop += vop.mod
	}
	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.mod += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.mod += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *layoutNode) *layoutNode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *layoutNode) *layoutNode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func moveSubtree(wm, wp *layoutNode, shift float64) {
	change := shift / float64(wp.index-wm.index)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.mod += shift
}

func executeShifts(v *layoutNode) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.prelim += shift
		w.mod += shift
		change += w.change
		shift += w.shift + change
	}
}

func nextAncestor(vim, v, ancestor *layoutNode) *layoutNode {
	if vim.ancestor.parent == v.parent {
		return vim.ancestor
	}
	return ancestor
}

func eachAfter(n *layoutNode, fn func(*layoutNode)) {
	for _, child := range n.children {
		eachAfter(child, fn)
	}
	fn(n)
}

func eachBefore(n *layoutNode, fn func(*layoutNode)) {
	fn(n)
	for _, child := range n.children {
		eachBefore(child, fn)
	}
}

// breadthFirst returns the nodes level by level, siblings in input order.
func breadthFirst(root *layoutNode) []*layoutNode {
	out := []*layoutNode{root}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].children...)
	}
	return out
}
