// Package types defines constants shared by the rstree packages.
package types

import "strings"

const (
	CommandTree  = "tree"
	CommandServe = "serve"
	CommandInit  = "init"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	// StandardInputName selects standard input wherever a source file is expected.
	StandardInputName = "-"
)

// NormalizeFormat lower-cases a format name and reports whether it is supported.
func NormalizeFormat(format string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case FormatRaw, FormatJSON, FormatXML:
		return normalized, true
	default:
		return normalized, false
	}
}
