package tree

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// compareFunc orders two segment names, returning a negative number, zero or a positive number.
type compareFunc func(left string, right string) int

func compareCodePoints(left string, right string) int {
	return strings.Compare(left, right)
}

// newCollatedComparison orders names with the collation of the given language and breaks
// collation ties between distinct names by code point, so equal names always end up adjacent.
// A collator is not safe for concurrent use; callers create one per build.
func newCollatedComparison(tag language.Tag) compareFunc {
	collator := collate.New(tag)
	return func(left string, right string) int {
		if collated := collator.CompareString(left, right); collated != 0 {
			return collated
		}
		return strings.Compare(left, right)
	}
}

// mergeTrees sorts trees by name and unifies runs of equal names into one node.
// Input nodes are never modified; unified nodes are fresh copies.
func mergeTrees(trees []*Node, compare compareFunc) []*Node {
	if len(trees) == 0 {
		return nil
	}

	sorted := make([]*Node, 0, len(trees))
	for _, candidate := range trees {
		if candidate != nil {
			sorted = append(sorted, candidate)
		}
	}
	sort.SliceStable(sorted, func(leftIndex, rightIndex int) bool {
		return compare(sorted[leftIndex].Name, sorted[rightIndex].Name) < 0
	})

	var merged []*Node
	var accumulator *Node
	for _, current := range sorted {
		if accumulator != nil && current.Name == accumulator.Name {
			foldInto(accumulator, current, compare)
			continue
		}
		if accumulator != nil {
			merged = append(merged, accumulator)
		}
		accumulator = &Node{
			Name:     current.Name,
			Path:     current.Path,
			Children: current.Children,
		}
	}
	if accumulator != nil {
		merged = append(merged, accumulator)
	}
	return merged
}

// foldInto merges incoming into accumulator. The accumulator keeps its own path unless it has none.
func foldInto(accumulator *Node, incoming *Node, compare compareFunc) {
	if accumulator.Path == "" {
		accumulator.Path = incoming.Path
	}
	if len(accumulator.Children) == 0 && len(incoming.Children) == 0 {
		return
	}
	combined := make([]*Node, 0, len(accumulator.Children)+len(incoming.Children))
	combined = append(combined, accumulator.Children...)
	combined = append(combined, incoming.Children...)
	accumulator.Children = mergeTrees(combined, compare)
}
