// Package tree builds merged navigation forests out of slash-delimited ruleset paths.
//
// Every input path is first turned into a single chain of nodes, one per segment,
// and the chains are then folded together so that nodes sharing a name at the same
// depth become one node whose children are merged recursively. Sibling order is
// deterministic: by default names are compared by Unicode code point, and an optional
// locale collation can be requested through Options.
package tree

import (
	"strings"
)

// DefaultSeparator delimits the segments of a ruleset path.
const DefaultSeparator = "/"

// Node is one segment of the merged ruleset hierarchy.
// Children is nil for leaves so that encoders omit the field entirely.
type Node struct {
	Name     string  `json:"name" xml:"name" yaml:"name"`
	Path     string  `json:"path" xml:"path" yaml:"path"`
	Children []*Node `json:"children,omitempty" xml:"children>node,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node has no descendants.
func (node *Node) IsLeaf() bool {
	return node == nil || len(node.Children) == 0
}

// BuildTree returns the chain of nodes described by name followed by rest.
// The path of every node is the separator-join of parents, name and the segments
// consumed so far. The last node of the chain has no Children.
func BuildTree(name string, parents []string, rest []string) *Node {
	return buildTree(name, parents, rest, DefaultSeparator)
}

// MergeTrees folds trees that share names at the same level into a single ordered
// forest using code point ordering. The result is never nil, so an empty forest
// encodes as [].
func MergeTrees(trees []*Node) []*Node {
	return nonNilForest(mergeTrees(trees, compareCodePoints))
}

// RulesetsToTree splits every path on DefaultSeparator, builds one chain per path and
// merges the chains into a forest. Empty segments are kept as nodes with an empty name.
// An empty input yields an empty, non-nil forest.
func RulesetsToTree(paths []string) []*Node {
	forest, _ := defaultBuilder.Build(paths)
	return forest
}

func buildTree(name string, parents []string, rest []string, separator string) *Node {
	lineage := make([]string, len(parents)+1)
	copy(lineage, parents)
	lineage[len(parents)] = name

	node := &Node{
		Name: name,
		Path: strings.Join(lineage, separator),
	}
	if len(rest) > 0 {
		node.Children = []*Node{buildTree(rest[0], lineage, rest[1:], separator)}
	}
	return node
}

func nonNilForest(forest []*Node) []*Node {
	if forest == nil {
		return []*Node{}
	}
	return forest
}

// splitPath breaks a path into the name of its root segment and the remaining segments.
func splitPath(path string, separator string) (string, []string) {
	segments := strings.Split(path, separator)
	return segments[0], segments[1:]
}
