package output_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/temirov/rstree/internal/output"
	"github.com/temirov/rstree/internal/tree"
	"github.com/temirov/rstree/internal/types"
)

const rawForestExpected = "Summary: 2 roots, 7 nodes, 4 leaves, depth 3\n" +
	"a\n" +
	"├── b\n" +
	"├── c\n" +
	"│   └── z\n" +
	"└── d\n" +
	"    └── e\n" +
	"x\n"

const xmlForestExpected = `<?xml version="1.0" encoding="UTF-8"?>
<forest>
  <node>
    <name>a</name>
    <path>a</path>
    <children>
      <node>
        <name>b</name>
        <path>a/b</path>
      </node>
    </children>
  </node>
</forest>`

func sampleForest() []*tree.Node {
	return tree.RulesetsToTree([]string{"a/b", "a/c/z", "a/d/e", "x"})
}

func decodeJSON(t *testing.T, encoded string) any {
	t.Helper()
	var decoded any
	if decodeError := json.Unmarshal([]byte(encoded), &decoded); decodeError != nil {
		t.Fatalf("decode %s: %v", encoded, decodeError)
	}
	return decoded
}

func TestRenderJSON(t *testing.T) {
	rendered, renderError := output.RenderJSON(tree.RulesetsToTree([]string{"a/b", "a/c", "a/d/e"}))
	if renderError != nil {
		t.Fatalf("RenderJSON: %v", renderError)
	}
	expected := `[{"name":"a","path":"a","children":[
		{"name":"b","path":"a/b"},
		{"name":"c","path":"a/c"},
		{"name":"d","path":"a/d","children":[{"name":"e","path":"a/d/e"}]}
	]}]`
	if !reflect.DeepEqual(decodeJSON(t, rendered), decodeJSON(t, expected)) {
		t.Fatalf("unexpected JSON:\n%s", rendered)
	}
	if strings.Count(rendered, `"children"`) != 2 {
		t.Fatalf("leaves must not carry a children field:\n%s", rendered)
	}
}

func TestRenderJSONEmptyForest(t *testing.T) {
	rendered, renderError := output.RenderJSON(nil)
	if renderError != nil {
		t.Fatalf("RenderJSON: %v", renderError)
	}
	if rendered != "[]" {
		t.Fatalf("expected [], got %q", rendered)
	}
}

func TestRenderXML(t *testing.T) {
	rendered, renderError := output.RenderXML(tree.RulesetsToTree([]string{"a/b"}))
	if renderError != nil {
		t.Fatalf("RenderXML: %v", renderError)
	}
	if rendered != xmlForestExpected {
		t.Fatalf("unexpected XML:\n%s", rendered)
	}
}

func TestRenderRaw(t *testing.T) {
	testCases := []struct {
		name           string
		forest         []*tree.Node
		includeSummary bool
		expected       string
	}{
		{name: "with summary", forest: sampleForest(), includeSummary: true, expected: rawForestExpected},
		{name: "without summary", forest: sampleForest(), expected: strings.SplitN(rawForestExpected, "\n", 2)[1]},
		{name: "empty forest", forest: nil, includeSummary: true, expected: "Summary: 0 roots, 0 nodes, 0 leaves, depth 0\n(no rulesets)\n"},
		{name: "single leaf", forest: tree.RulesetsToTree([]string{"a"}), includeSummary: true, expected: "Summary: 1 root, 1 node, 1 leaf, depth 1\na\n"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if rendered := output.RenderRaw(testCase.forest, testCase.includeSummary); rendered != testCase.expected {
				t.Fatalf("unexpected raw output:\n%s\nexpected:\n%s", rendered, testCase.expected)
			}
		})
	}
}

func TestRender(t *testing.T) {
	forest := sampleForest()
	for _, format := range []string{types.FormatRaw, types.FormatJSON, types.FormatXML} {
		rendered, renderError := output.Render(format, forest, false)
		if renderError != nil {
			t.Fatalf("Render(%s): %v", format, renderError)
		}
		if !strings.Contains(rendered, "z") {
			t.Fatalf("Render(%s) lost nodes:\n%s", format, rendered)
		}
	}
	if _, renderError := output.Render("yaml", forest, false); renderError == nil {
		t.Fatalf("expected unsupported format error")
	}
}
