package rulesets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const hiddenEntryPrefix = "."

// LoadDirectory treats every regular file below root as one ruleset. The ruleset path is the
// slash-separated path relative to root without the file extension, so
// "rules/payments/fees.yaml" under "rules" becomes "payments/fees".
// Hidden files and directories are skipped; unreadable entries produce a warning on stderr.
func LoadDirectory(root string) ([]string, error) {
	cleanedRoot := filepath.Clean(root)
	var paths []string

	walkError := filepath.WalkDir(cleanedRoot, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if accessError != nil {
			if walkedPath == cleanedRoot {
				return accessError
			}
			fmt.Fprintf(os.Stderr, "Warning: error accessing path %s: %v\n", walkedPath, accessError)
			if directoryEntry != nil && directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if walkedPath == cleanedRoot {
			return nil
		}
		if strings.HasPrefix(directoryEntry.Name(), hiddenEntryPrefix) {
			if directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !directoryEntry.Type().IsRegular() {
			return nil
		}

		relativePath, relativeError := filepath.Rel(cleanedRoot, walkedPath)
		if relativeError != nil {
			return relativeError
		}
		rulesetPath := filepath.ToSlash(strings.TrimSuffix(relativePath, filepath.Ext(relativePath)))
		paths = append(paths, rulesetPath)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(errorReadSourceFormat, root, walkError)
	}
	sort.Strings(paths)
	return paths, nil
}
