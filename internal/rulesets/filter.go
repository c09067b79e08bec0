package rulesets

import (
	"path"
	"strings"

	"github.com/temirov/rstree/internal/utils"
)

const defaultPatternSeparator = "/"

// Clean trims every path, drops blank ones and removes duplicates keeping the first occurrence.
// Sources are expected to go through Clean before the paths reach the tree builder.
func Clean(paths []string) []string {
	return utils.DeduplicateStrings(utils.TrimmedNonEmpty(paths))
}

// Exclude drops every path matched by one of patterns. Paths and patterns are split on
// separator; an empty separator means "/".
//
// A pattern ending with the separator matches the named subtree and everything below it,
// so "legacy/" removes "legacy" and "legacy/pricing". A single-segment pattern is
// matched against the last segment of the path. Other patterns must match the whole
// path segment by segment. Segments use path.Match semantics.
func Exclude(paths []string, patterns []string, separator string) []string {
	normalizedPatterns := utils.TrimmedNonEmpty(patterns)
	if len(normalizedPatterns) == 0 {
		return paths
	}
	if separator == "" {
		separator = defaultPatternSeparator
	}
	kept := make([]string, 0, len(paths))
	for _, candidate := range paths {
		if !isExcluded(candidate, normalizedPatterns, separator) {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func isExcluded(candidate string, patterns []string, separator string) bool {
	pathSegments := strings.Split(candidate, separator)
	lastSegment := pathSegments[len(pathSegments)-1]

	for _, pattern := range patterns {
		isSubtreePattern := strings.HasSuffix(pattern, separator)
		patternSegments := strings.Split(strings.TrimSuffix(pattern, separator), separator)

		if isSubtreePattern {
			if len(pathSegments) >= len(patternSegments) && segmentsMatch(pathSegments[:len(patternSegments)], patternSegments) {
				return true
			}
			continue
		}

		if len(patternSegments) == 1 {
			isMatched, matchError := path.Match(patternSegments[0], lastSegment)
			if matchError == nil && isMatched {
				return true
			}
			continue
		}

		if len(pathSegments) == len(patternSegments) && segmentsMatch(pathSegments, patternSegments) {
			return true
		}
	}
	return false
}

// segmentsMatch reports whether each pattern segment matches the corresponding path segment.
func segmentsMatch(pathSegments []string, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		isMatched, matchError := path.Match(patternSegment, pathSegments[segmentIndex])
		if matchError != nil || !isMatched {
			return false
		}
	}
	return true
}
