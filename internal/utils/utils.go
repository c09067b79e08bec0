// Package utils contains general helpers shared by the rstree commands.
package utils

import "strings"

// DeduplicateStrings removes duplicate values from a slice while preserving order.
// The first occurrence of each value is kept.
func DeduplicateStrings(values []string) []string {
	encounteredValues := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := encounteredValues[value]; !exists {
			encounteredValues[value] = struct{}{}
			result = append(result, value)
		}
	}
	return result
}

// TrimmedNonEmpty trims surrounding whitespace from every value and drops the empty ones.
func TrimmedNonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmedValue := strings.TrimSpace(value)
		if trimmedValue == "" {
			continue
		}
		result = append(result, trimmedValue)
	}
	return result
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmedValue := strings.TrimSpace(value); trimmedValue != "" {
			return trimmedValue
		}
	}
	return ""
}
