// Package tree holds the hierarchical tree data produced by the
// tree-building step and the helpers used to decode and walk it.
package tree

// Node is one clade of a tree. Leaves have no children.
type Node struct {
	Name         string   `json:"name" yaml:"name"`
	BranchLength *float64 `json:"branch_length,omitempty" yaml:"branch_length,omitempty"`
	Children     []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.Children) == 0
}

// Walk visits n and its descendants in pre-order, children in input order.
// Returning false from fn stops the walk below that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	if n == nil {
		return
	}
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		if child != nil {
			child.walk(fn, depth+1)
		}
	}
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Edges returns the number of parent-child links, Count()-1 for a non-empty tree.
func (n *Node) Edges() int {
	if n == nil {
		return 0
	}
	return n.Count() - 1
}

// Leaves returns leaf names in left-to-right order.
func (n *Node) Leaves() []string {
	var out []string
	n.Walk(func(node *Node, _ int) bool {
		if node.IsLeaf() {
			out = append(out, node.Name)
		}
		return true
	})
	return out
}

// Depth returns the maximum depth below n; a lone root has depth 0.
func (n *Node) Depth() int {
	deepest := 0
	n.Walk(func(_ *Node, depth int) bool {
		if depth > deepest {
			deepest = depth
		}
		return true
	})
	return deepest
}
