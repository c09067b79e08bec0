package tree_test

import (
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/temirov/rstree/internal/tree"
)

func leaf(name string, path string) *tree.Node {
	return &tree.Node{Name: name, Path: path}
}

func branch(name string, path string, children ...*tree.Node) *tree.Node {
	return &tree.Node{Name: name, Path: path, Children: children}
}

func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name     string
		segment  string
		parents  []string
		rest     []string
		expected *tree.Node
	}{
		{
			name:     "single segment",
			segment:  "a",
			expected: leaf("a", "a"),
		},
		{
			name:     "with parents",
			segment:  "b",
			parents:  []string{"a"},
			expected: leaf("b", "a/b"),
		},
		{
			name:     "with rest",
			segment:  "b",
			parents:  []string{"a"},
			rest:     []string{"c", "d"},
			expected: branch("b", "a/b", branch("c", "a/b/c", leaf("d", "a/b/c/d"))),
		},
		{
			name:     "empty segment",
			segment:  "a",
			rest:     []string{"", "b"},
			expected: branch("a", "a", branch("", "a/", leaf("b", "a//b"))),
		},
		{
			name:     "degenerate root",
			expected: leaf("", ""),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			built := tree.BuildTree(testCase.segment, testCase.parents, testCase.rest)
			if !reflect.DeepEqual(built, testCase.expected) {
				t.Fatalf("unexpected tree\nexpected: %s\nactual:   %s", describe(testCase.expected), describe(built))
			}
		})
	}
}

func TestBuildTreeDoesNotRetainParents(t *testing.T) {
	parents := make([]string, 1, 8)
	parents[0] = "a"
	first := tree.BuildTree("b", parents, []string{"c"})
	second := tree.BuildTree("x", parents, []string{"y"})
	if first.Children[0].Path != "a/b/c" {
		t.Fatalf("first chain corrupted: %s", describe(first))
	}
	if second.Children[0].Path != "a/x/y" {
		t.Fatalf("second chain corrupted: %s", describe(second))
	}
}

func TestRulesetsToTree(t *testing.T) {
	testCases := []struct {
		name     string
		paths    []string
		expected []*tree.Node
	}{
		{
			name:     "empty input",
			paths:    []string{},
			expected: []*tree.Node{},
		},
		{
			name:     "single segment",
			paths:    []string{"a"},
			expected: []*tree.Node{leaf("a", "a")},
		},
		{
			name:  "shared prefix",
			paths: []string{"a/b", "a/c", "a/d/e"},
			expected: []*tree.Node{
				branch("a", "a",
					leaf("b", "a/b"),
					leaf("c", "a/c"),
					branch("d", "a/d", leaf("e", "a/d/e")),
				),
			},
		},
		{
			name:  "endpoint with children",
			paths: []string{"a/c", "a/c/z"},
			expected: []*tree.Node{
				branch("a", "a", branch("c", "a/c", leaf("z", "a/c/z"))),
			},
		},
		{
			name:  "sidebar listing",
			paths: []string{"a/b", "a/c", "a/c/z", "a/d/e", "a/d/f"},
			expected: []*tree.Node{
				branch("a", "a",
					leaf("b", "a/b"),
					branch("c", "a/c", leaf("z", "a/c/z")),
					branch("d", "a/d", leaf("e", "a/d/e"), leaf("f", "a/d/f")),
				),
			},
		},
		{
			name:  "several roots sorted",
			paths: []string{"zeta/one", "alpha", "Beta/two"},
			expected: []*tree.Node{
				branch("Beta", "Beta", leaf("two", "Beta/two")),
				leaf("alpha", "alpha"),
				branch("zeta", "zeta", leaf("one", "zeta/one")),
			},
		},
		{
			name:     "duplicate paths",
			paths:    []string{"a/b", "a/b"},
			expected: []*tree.Node{branch("a", "a", leaf("b", "a/b"))},
		},
		{
			name:  "leading separator",
			paths: []string{"/a"},
			expected: []*tree.Node{
				branch("", "", leaf("a", "/a")),
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			forest := tree.RulesetsToTree(testCase.paths)
			if !reflect.DeepEqual(forest, testCase.expected) {
				t.Fatalf("unexpected forest\nexpected: %s\nactual:   %s", describeForest(testCase.expected), describeForest(forest))
			}
		})
	}
}

func TestEmptyForestEncodesAsEmptyArray(t *testing.T) {
	builder, builderError := tree.NewBuilder(tree.Options{Strict: true})
	if builderError != nil {
		t.Fatalf("NewBuilder: %v", builderError)
	}
	built, buildError := builder.Build(nil)
	if buildError != nil {
		t.Fatalf("Build: %v", buildError)
	}
	forests := map[string][]*tree.Node{
		"RulesetsToTree": tree.RulesetsToTree([]string{}),
		"MergeTrees":     tree.MergeTrees([]*tree.Node{nil}),
		"Builder.Build":  built,
	}
	for name, forest := range forests {
		encoded, encodeError := json.Marshal(forest)
		if encodeError != nil {
			t.Fatalf("%s: marshal: %v", name, encodeError)
		}
		if string(encoded) != "[]" {
			t.Errorf("%s: expected [], got %s", name, encoded)
		}
	}
}

func TestRulesetsToTreeIgnoresInputOrder(t *testing.T) {
	paths := []string{"a/b", "a/c/z", "b", "a/c", "a/d/e", "c/a/b", "a/d/f", "b/x", "c/a"}
	reference := tree.RulesetsToTree(paths)
	random := rand.New(rand.NewSource(7))
	for iteration := 0; iteration < 25; iteration++ {
		permutation := random.Perm(len(paths))
		shuffled := make([]string, len(paths))
		for index, source := range permutation {
			shuffled[index] = paths[source]
		}
		forest := tree.RulesetsToTree(shuffled)
		if !reflect.DeepEqual(forest, reference) {
			t.Fatalf("permutation %v changed the forest\nexpected: %s\nactual:   %s", shuffled, describeForest(reference), describeForest(forest))
		}
	}
}

func TestRulesetsToTreeInvariants(t *testing.T) {
	paths := []string{
		"payments/fees/domestic",
		"payments/fees",
		"payments/limits/daily",
		"drivers/eligibility",
		"drivers/eligibility/region/eu",
		"drivers/bonus",
		"riders/promo/summer",
		"payments/fees/international",
	}
	forest := tree.RulesetsToTree(paths)

	var ancestors []string
	walkError := tree.Walk(forest, func(node *tree.Node, depth int) error {
		ancestors = append(ancestors[:depth], node.Name)
		expectedPath := strings.Join(ancestors, "/")
		if node.Path != expectedPath {
			t.Errorf("node %q has path %q, expected %q", node.Name, node.Path, expectedPath)
		}
		for index := 1; index < len(node.Children); index++ {
			previous := node.Children[index-1].Name
			current := node.Children[index].Name
			if previous >= current {
				t.Errorf("children of %q are not strictly ordered: %q then %q", node.Path, previous, current)
			}
		}
		if node.Children != nil && len(node.Children) == 0 {
			t.Errorf("node %q carries an empty children slice", node.Path)
		}
		return nil
	})
	if walkError != nil {
		t.Fatalf("walk: %v", walkError)
	}

	for _, path := range paths {
		if tree.Find(forest, path) == nil {
			t.Errorf("path %q missing from forest", path)
		}
	}
	if summary := tree.Summarize(forest); summary.Nodes != 14 {
		t.Errorf("expected 14 nodes, got %+v", summary)
	}
}

func TestMergeTrees(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		merged := tree.MergeTrees(nil)
		if merged == nil || len(merged) != 0 {
			t.Fatalf("expected empty non-nil forest, got %#v", merged)
		}
	})

	t.Run("single node is returned as is", func(t *testing.T) {
		input := branch("a", "a", leaf("b", "a/b"))
		merged := tree.MergeTrees([]*tree.Node{input})
		if len(merged) != 1 || !reflect.DeepEqual(merged[0], input) {
			t.Fatalf("unexpected merge result: %s", describeForest(merged))
		}
	})

	t.Run("leaf gains children from counterpart", func(t *testing.T) {
		merged := tree.MergeTrees([]*tree.Node{
			leaf("a", "a"),
			branch("a", "a", leaf("b", "a/b")),
		})
		expected := []*tree.Node{branch("a", "a", leaf("b", "a/b"))}
		if !reflect.DeepEqual(merged, expected) {
			t.Fatalf("unexpected merge result: %s", describeForest(merged))
		}
	})

	t.Run("leaves stay leaves", func(t *testing.T) {
		merged := tree.MergeTrees([]*tree.Node{leaf("a", "a"), leaf("a", "a")})
		if len(merged) != 1 || merged[0].Children != nil {
			t.Fatalf("unexpected merge result: %s", describeForest(merged))
		}
	})

	t.Run("missing path is filled from counterpart", func(t *testing.T) {
		merged := tree.MergeTrees([]*tree.Node{
			{Name: "a"},
			{Name: "a", Path: "a"},
		})
		if len(merged) != 1 || merged[0].Path != "a" {
			t.Fatalf("unexpected merge result: %s", describeForest(merged))
		}
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		first := branch("a", "a", leaf("c", "a/c"))
		second := branch("a", "a", leaf("b", "a/b"))
		input := []*tree.Node{first, second}
		_ = tree.MergeTrees(input)
		if input[0] != first || input[1] != second {
			t.Fatalf("input slice reordered")
		}
		if len(first.Children) != 1 || first.Children[0].Name != "c" {
			t.Fatalf("first input modified: %s", describe(first))
		}
		if len(second.Children) != 1 || second.Children[0].Name != "b" {
			t.Fatalf("second input modified: %s", describe(second))
		}
	})
}

func TestBuilderStrict(t *testing.T) {
	builder, builderError := tree.NewBuilder(tree.Options{Strict: true})
	if builderError != nil {
		t.Fatalf("NewBuilder: %v", builderError)
	}

	testCases := []struct {
		name          string
		paths         []string
		expectedIndex int
		expectedText  string
	}{
		{name: "empty path", paths: []string{"a", ""}, expectedIndex: 1, expectedText: "path is empty"},
		{name: "doubled separator", paths: []string{"a//b"}, expectedIndex: 0, expectedText: "empty segment"},
		{name: "trailing separator", paths: []string{"a/b", "c/"}, expectedIndex: 1, expectedText: "empty segment"},
		{name: "leading separator", paths: []string{"/c"}, expectedIndex: 0, expectedText: "empty segment"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			forest, buildError := builder.Build(testCase.paths)
			if forest != nil {
				t.Fatalf("expected no forest, got %s", describeForest(forest))
			}
			var invalidPathError *tree.InvalidPathError
			if !errors.As(buildError, &invalidPathError) {
				t.Fatalf("expected InvalidPathError, got %v", buildError)
			}
			if invalidPathError.Index != testCase.expectedIndex {
				t.Fatalf("expected index %d, got %d", testCase.expectedIndex, invalidPathError.Index)
			}
			if !strings.Contains(buildError.Error(), testCase.expectedText) {
				t.Fatalf("unexpected error text %q", buildError.Error())
			}
		})
	}

	forest, buildError := builder.Build([]string{"a/b"})
	if buildError != nil || len(forest) != 1 {
		t.Fatalf("valid paths rejected: %v", buildError)
	}
}

func TestBuilderSeparator(t *testing.T) {
	builder, builderError := tree.NewBuilder(tree.Options{Separator: "."})
	if builderError != nil {
		t.Fatalf("NewBuilder: %v", builderError)
	}
	forest, buildError := builder.Build([]string{"a.b", "a.c/d"})
	if buildError != nil {
		t.Fatalf("Build: %v", buildError)
	}
	expected := []*tree.Node{
		branch("a", "a", leaf("b", "a.b"), leaf("c/d", "a.c/d")),
	}
	if !reflect.DeepEqual(forest, expected) {
		t.Fatalf("unexpected forest: %s", describeForest(forest))
	}
}

func TestBuilderCollation(t *testing.T) {
	paths := []string{"b", "C", "a"}

	codePointForest := tree.RulesetsToTree(paths)
	if names := rootNames(codePointForest); !reflect.DeepEqual(names, []string{"C", "a", "b"}) {
		t.Fatalf("unexpected code point order: %v", names)
	}

	builder, builderError := tree.NewBuilder(tree.Options{Collation: "en"})
	if builderError != nil {
		t.Fatalf("NewBuilder: %v", builderError)
	}
	collatedForest, buildError := builder.Build(paths)
	if buildError != nil {
		t.Fatalf("Build: %v", buildError)
	}
	if names := rootNames(collatedForest); !reflect.DeepEqual(names, []string{"a", "b", "C"}) {
		t.Fatalf("unexpected collated order: %v", names)
	}
}

func TestBuilderCollationKeepsDistinctNamesApart(t *testing.T) {
	composed := "\u00e9"
	decomposed := "e\u0301"
	builder, builderError := tree.NewBuilder(tree.Options{Collation: "fr"})
	if builderError != nil {
		t.Fatalf("NewBuilder: %v", builderError)
	}
	forest, buildError := builder.Build([]string{composed + "/x", decomposed + "/y", composed + "/z"})
	if buildError != nil {
		t.Fatalf("Build: %v", buildError)
	}
	if len(forest) != 2 {
		t.Fatalf("expected two roots, got %s", describeForest(forest))
	}
	composedRoot := tree.Find(forest, composed)
	if composedRoot == nil || len(composedRoot.Children) != 2 {
		t.Fatalf("composed root not merged: %s", describeForest(forest))
	}
}

func TestNewBuilderRejectsUnknownCollation(t *testing.T) {
	if _, builderError := tree.NewBuilder(tree.Options{Collation: "not a tag!"}); builderError == nil {
		t.Fatalf("expected collation error")
	}
}

func rootNames(forest []*tree.Node) []string {
	names := make([]string, 0, len(forest))
	for _, root := range forest {
		names = append(names, root.Name)
	}
	return names
}

func describeForest(forest []*tree.Node) string {
	parts := make([]string, 0, len(forest))
	for _, root := range forest {
		parts = append(parts, describe(root))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func describe(node *tree.Node) string {
	if node == nil {
		return "<nil>"
	}
	if node.Children == nil {
		return node.Name + "(" + node.Path + ")"
	}
	return node.Name + "(" + node.Path + ")" + describeForest(node.Children)
}
