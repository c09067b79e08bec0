package tree

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// errorCollationFormat reports a collation tag that cannot be parsed.
	errorCollationFormat = "parsing collation %q: %w"

	reasonEmptyPath    = "path is empty"
	reasonEmptySegment = "path contains an empty segment"
)

var defaultBuilder = &Builder{separator: DefaultSeparator}

// Options configures a Builder. The zero value splits on DefaultSeparator,
// orders siblings by code point and accepts every path.
type Options struct {
	// Separator delimits path segments. Empty means DefaultSeparator.
	Separator string
	// Collation is a BCP 47 language tag such as "en" or "fr". Empty means code point order.
	Collation string
	// Strict rejects empty paths and paths with empty segments before anything is built.
	Strict bool
}

// Builder turns ruleset path lists into merged forests.
// A Builder holds no mutable state and may be shared between goroutines.
type Builder struct {
	separator    string
	collation    language.Tag
	hasCollation bool
	strict       bool
}

// NewBuilder validates options and returns a Builder.
func NewBuilder(options Options) (*Builder, error) {
	builder := &Builder{
		separator: options.Separator,
		strict:    options.Strict,
	}
	if builder.separator == "" {
		builder.separator = DefaultSeparator
	}
	collationName := strings.TrimSpace(options.Collation)
	if collationName != "" {
		tag, parseError := language.Parse(collationName)
		if parseError != nil {
			return nil, fmt.Errorf(errorCollationFormat, collationName, parseError)
		}
		builder.collation = tag
		builder.hasCollation = true
	}
	return builder, nil
}

// Separator returns the segment separator used by the builder.
func (builder *Builder) Separator() string {
	return builder.separator
}

// Build converts paths into a non-nil forest. It only fails in strict mode, with an *InvalidPathError
// describing the first offending path.
func (builder *Builder) Build(paths []string) ([]*Node, error) {
	if builder.strict {
		if validationError := builder.Validate(paths); validationError != nil {
			return nil, validationError
		}
	}

	chains := make([]*Node, 0, len(paths))
	for _, path := range paths {
		rootName, rest := splitPath(path, builder.separator)
		chains = append(chains, buildTree(rootName, nil, rest, builder.separator))
	}
	return builder.Merge(chains), nil
}

// Merge folds trees into an ordered forest using the builder's ordering.
// The result is never nil.
func (builder *Builder) Merge(trees []*Node) []*Node {
	return nonNilForest(mergeTrees(trees, builder.comparison()))
}

// Validate reports the first path that is empty or contains an empty segment.
func (builder *Builder) Validate(paths []string) error {
	for index, path := range paths {
		if path == "" {
			return &InvalidPathError{Index: index, Path: path, Reason: reasonEmptyPath}
		}
		for _, segment := range strings.Split(path, builder.separator) {
			if segment == "" {
				return &InvalidPathError{Index: index, Path: path, Reason: reasonEmptySegment}
			}
		}
	}
	return nil
}

func (builder *Builder) comparison() compareFunc {
	if !builder.hasCollation {
		return compareCodePoints
	}
	return newCollatedComparison(builder.collation)
}

// InvalidPathError describes a path rejected by strict validation.
type InvalidPathError struct {
	Index  int
	Path   string
	Reason string
}

// Error implements the error interface.
func (invalidPathError *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid ruleset path %q at index %d: %s", invalidPathError.Path, invalidPathError.Index, invalidPathError.Reason)
}
