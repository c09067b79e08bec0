// Package output renders ruleset forests as raw text, JSON or XML.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/temirov/rstree/internal/tree"
	"github.com/temirov/rstree/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader      = xml.Header
	emptyJSONArray = "[]"
	emptyRawForest = "(no rulesets)"

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	errorUnsupportedFormat = "unsupported output format %q"
)

// xmlForest wraps root nodes into a single <forest> document element.
type xmlForest struct {
	XMLName xml.Name     `xml:"forest"`
	Nodes   []*tree.Node `xml:"node"`
}

// Render formats the forest. The summary line is only part of raw output.
func Render(format string, forest []*tree.Node, includeSummary bool) (string, error) {
	switch format {
	case types.FormatJSON:
		return RenderJSON(forest)
	case types.FormatXML:
		return RenderXML(forest)
	case types.FormatRaw:
		return RenderRaw(forest, includeSummary), nil
	default:
		return "", fmt.Errorf(errorUnsupportedFormat, format)
	}
}

// RenderJSON marshals the forest as an indented JSON array; an empty forest yields [].
func RenderJSON(forest []*tree.Node) (string, error) {
	if len(forest) == 0 {
		return emptyJSONArray, nil
	}
	encoded, jsonEncodeError := json.MarshalIndent(forest, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderXML marshals the forest as an XML document rooted at <forest>.
func RenderXML(forest []*tree.Node) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(xmlForest{Nodes: forest}, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderRaw returns the box-drawing rendering of the forest.
func RenderRaw(forest []*tree.Node, includeSummary bool) string {
	var buffer bytes.Buffer
	WriteRaw(&buffer, forest, includeSummary)
	return buffer.String()
}

// WriteRaw prints every root followed by its descendants, one name per line.
func WriteRaw(writer io.Writer, forest []*tree.Node, includeSummary bool) {
	if includeSummary {
		fmt.Fprintln(writer, FormatSummaryLine(tree.Summarize(forest)))
	}
	if len(forest) == 0 {
		fmt.Fprintln(writer, emptyRawForest)
		return
	}
	for _, root := range forest {
		renderTreeNode(writer, root, "", true, true)
	}
}

func treeNodeLinePrefix(prefix string, isRoot bool, isLast bool) (string, string) {
	if isRoot {
		return "", ""
	}
	connector := treeBranchConnector
	childPrefix := prefix + treeBranchPadding
	if isLast {
		connector = treeLastConnector
		childPrefix = prefix + treeLastPadding
	}
	return prefix + connector, childPrefix
}

func renderTreeNode(writer io.Writer, node *tree.Node, prefix string, isRoot bool, isLast bool) {
	if node == nil {
		return
	}
	linePrefix, childPrefix := treeNodeLinePrefix(prefix, isRoot, isLast)
	fmt.Fprintf(writer, "%s%s\n", linePrefix, node.Name)
	for index, child := range node.Children {
		renderTreeNode(writer, child, childPrefix, false, index == len(node.Children)-1)
	}
}

// FormatSummaryLine formats forest counts into the raw summary line.
func FormatSummaryLine(summary tree.Summary) string {
	return fmt.Sprintf("Summary: %s, %s, %s, depth %d",
		pluralize(summary.Roots, "root", "roots"),
		pluralize(summary.Nodes, "node", "nodes"),
		pluralize(summary.Leaves, "leaf", "leaves"),
		summary.MaxDepth,
	)
}

func pluralize(count int, singular string, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
