package tree

import (
	"github.com/sdejongh/diffnorris/pkg/models"
)

// View is a pruned, read-only projection of a comparison tree. It holds
// pointers into the underlying immutable nodes rather than copies, so
// re-filtering the same comparison with different status sets is cheap
// and never disturbs the tree itself.
type View struct {
	Node     *models.ComparisonNode
	Children []*View
}

// FilterView projects the tree onto the allowed statuses. A directory is
// retained when its own status is allowed or any descendant survives the
// filter; everything else is hidden. The root is always retained so a
// caller has something to render even when nothing matches.
func FilterView(root *models.ComparisonNode, allowed models.StatusSet) *View {
	if root == nil {
		return nil
	}
	view := filterNode(root, allowed)
	if view == nil {
		view = &View{Node: root}
	}
	return view
}

func filterNode(node *models.ComparisonNode, allowed models.StatusSet) *View {
	var kept []*View
	for _, child := range node.Children {
		if v := filterNode(child, allowed); v != nil {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 && !allowed.Contains(node.Status) {
		return nil
	}
	return &View{Node: node, Children: kept}
}

// Walk visits every node in the view depth-first in child order
func (v *View) Walk(fn func(*View) bool) {
	if v == nil || !fn(v) {
		return
	}
	for _, child := range v.Children {
		child.Walk(fn)
	}
}

// Len counts the nodes in the view
func (v *View) Len() int {
	count := 0
	v.Walk(func(*View) bool {
		count++
		return true
	})
	return count
}
