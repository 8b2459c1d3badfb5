package models

// ComparisonNode is one node of a classified comparison tree.
// Nodes are built top-down during a single comparison run and are
// immutable snapshots afterwards: a new run builds a new tree instead of
// patching the old one, so concurrent readers never observe partial state.
type ComparisonNode struct {
	// Name is the entry name shared by all sides
	Name string

	// RelativePath is the path relative to the comparison roots
	RelativePath string

	// Entries holds one Entry per compared side, in root order
	Entries []Entry

	// Status is the derived classification for this node
	Status Status

	// Reason explains the classification in human terms
	Reason string

	// Children are the child nodes of a directory, sorted by name.
	// Nil for files and for filtered or unexplored directories.
	Children []*ComparisonNode
}

// IsDir reports whether any side of this node is a directory
func (n *ComparisonNode) IsDir() bool {
	for i := range n.Entries {
		if n.Entries[i].IsDir() {
			return true
		}
	}
	return false
}

// Walk visits the node and all descendants depth-first in child order.
// Returning false from fn stops the descent below that node.
func (n *ComparisonNode) Walk(fn func(*ComparisonNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// CountByStatus tallies every node in the subtree by status
func (n *ComparisonNode) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	n.Walk(func(node *ComparisonNode) bool {
		counts[node.Status]++
		return true
	})
	return counts
}

// HasDifferences reports whether any node in the subtree is not clean
func (n *ComparisonNode) HasDifferences() bool {
	found := false
	n.Walk(func(node *ComparisonNode) bool {
		switch node.Status {
		case StatusSame, StatusEmpty, StatusFiltered:
			return !found
		default:
			found = true
			return false
		}
	})
	return found
}
