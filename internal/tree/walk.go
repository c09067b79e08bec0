package tree

import "errors"

// SkipChildren is returned by a WalkFunc to skip the descendants of the current node.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every visited node with its depth, roots being at depth zero.
type WalkFunc func(node *Node, depth int) error

// Walk visits the forest depth-first in pre-order. It stops at the first error returned
// by walkFunction other than SkipChildren and returns it.
func Walk(forest []*Node, walkFunction WalkFunc) error {
	for _, root := range forest {
		if walkError := walkNode(root, 0, walkFunction); walkError != nil {
			return walkError
		}
	}
	return nil
}

func walkNode(node *Node, depth int, walkFunction WalkFunc) error {
	if node == nil {
		return nil
	}
	if visitError := walkFunction(node, depth); visitError != nil {
		if errors.Is(visitError, SkipChildren) {
			return nil
		}
		return visitError
	}
	for _, child := range node.Children {
		if walkError := walkNode(child, depth+1, walkFunction); walkError != nil {
			return walkError
		}
	}
	return nil
}

// Summary aggregates counts over a forest.
type Summary struct {
	Roots    int `json:"roots" xml:"roots"`
	Nodes    int `json:"nodes" xml:"nodes"`
	Leaves   int `json:"leaves" xml:"leaves"`
	MaxDepth int `json:"maxDepth" xml:"maxDepth"`
}

// Summarize counts roots, nodes and leaves. MaxDepth is the number of levels, so a
// forest made of single-segment paths has depth one and an empty forest depth zero.
func Summarize(forest []*Node) Summary {
	summary := Summary{Roots: len(forest)}
	_ = Walk(forest, func(node *Node, depth int) error {
		summary.Nodes++
		if node.IsLeaf() {
			summary.Leaves++
		}
		if depth+1 > summary.MaxDepth {
			summary.MaxDepth = depth + 1
		}
		return nil
	})
	return summary
}

// Find returns the node whose Path equals path, or nil.
func Find(forest []*Node, path string) *Node {
	var found *Node
	_ = Walk(forest, func(node *Node, depth int) error {
		if found != nil {
			return SkipChildren
		}
		if node.Path == path {
			found = node
			return SkipChildren
		}
		return nil
	})
	return found
}
