// Package rulesets reads ruleset paths from text, JSON and YAML sources and pages through them.
package rulesets

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/temirov/rstree/internal/types"
)

// SourceFormat identifies the encoding of a ruleset source.
type SourceFormat string

const (
	// SourceFormatText lists one path per line; blank lines and lines starting with # are skipped.
	SourceFormatText SourceFormat = "text"
	// SourceFormatJSON holds a List, an array of Record or an array of strings.
	SourceFormatJSON SourceFormat = "json"
	// SourceFormatYAML holds the same shapes as SourceFormatJSON.
	SourceFormatYAML SourceFormat = "yaml"

	commentPrefix        = "#"
	maximumParallelReads = 4

	errorReadSourceFormat   = "reading ruleset source %s: %w"
	errorDecodeSourceFormat = "decoding %s ruleset source: %w"
	errorEntryFormat        = "ruleset entry %d has no path"
	errorDocumentFormat     = "unsupported ruleset document of type %T"
)

// Record is a single ruleset as returned by the listing endpoint.
type Record struct {
	Path string `json:"path" yaml:"path"`
}

// List is the listing payload: {"rulesets": [{"path": "a/b"}]}.
type List struct {
	Rulesets []Record `json:"rulesets" yaml:"rulesets"`
}

// Paths returns the path of every record in order.
func (list List) Paths() []string {
	paths := make([]string, 0, len(list.Rulesets))
	for _, record := range list.Rulesets {
		paths = append(paths, record.Path)
	}
	return paths
}

// NewList wraps paths into a List. The result never holds a nil slice so it encodes as [].
func NewList(paths []string) List {
	list := List{Rulesets: make([]Record, 0, len(paths))}
	for _, path := range paths {
		list.Rulesets = append(list.Rulesets, Record{Path: path})
	}
	return list
}

// DetectFormat picks the source format from a file extension.
func DetectFormat(fileName string) SourceFormat {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return SourceFormatJSON
	case ".yaml", ".yml":
		return SourceFormatYAML
	default:
		return SourceFormatText
	}
}

// Load reads every ruleset path from reader. Text sources are trimmed line by line;
// structured sources keep their paths verbatim.
func Load(reader io.Reader, format SourceFormat) ([]string, error) {
	switch format {
	case SourceFormatJSON, SourceFormatYAML:
		content, readError := io.ReadAll(reader)
		if readError != nil {
			return nil, readError
		}
		return decodeDocument(content, format)
	default:
		return scanLines(reader)
	}
}

// LoadFile reads one source file, a directory of ruleset files, or standard input when
// fileName is "-".
func LoadFile(fileName string, standardInput io.Reader) ([]string, error) {
	if fileName == types.StandardInputName {
		paths, loadError := Load(standardInput, SourceFormatText)
		if loadError != nil {
			return nil, fmt.Errorf(errorReadSourceFormat, "stdin", loadError)
		}
		return paths, nil
	}
	if fileInformation, statError := os.Stat(fileName); statError == nil && fileInformation.IsDir() {
		return LoadDirectory(fileName)
	}
	// #nosec G304
	fileHandle, openError := os.Open(fileName)
	if openError != nil {
		return nil, fmt.Errorf(errorReadSourceFormat, fileName, openError)
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", fileName, closeError)
		}
	}()
	paths, loadError := Load(fileHandle, DetectFormat(fileName))
	if loadError != nil {
		return nil, fmt.Errorf(errorReadSourceFormat, fileName, loadError)
	}
	return paths, nil
}

// LoadFiles reads several sources concurrently. The returned paths follow the order of
// fileNames; standard input is read at most once.
func LoadFiles(ctx context.Context, fileNames []string, standardInput io.Reader) ([]string, error) {
	results := make([][]string, len(fileNames))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(maximumParallelReads)

	standardInputSeen := false
	for index, fileName := range fileNames {
		if fileName == types.StandardInputName {
			if standardInputSeen {
				continue
			}
			standardInputSeen = true
		}
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			paths, loadError := LoadFile(fileName, standardInput)
			if loadError != nil {
				return loadError
			}
			results[index] = paths
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	var combined []string
	for _, paths := range results {
		combined = append(combined, paths...)
	}
	return combined, nil
}

func scanLines(reader io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) {
			continue
		}
		paths = append(paths, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return paths, nil
}

func decodeDocument(content []byte, format SourceFormat) ([]string, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	var document any
	var decodeError error
	if format == SourceFormatJSON {
		decodeError = json.Unmarshal(content, &document)
	} else {
		decodeError = yaml.Unmarshal(content, &document)
	}
	if decodeError != nil {
		return nil, fmt.Errorf(errorDecodeSourceFormat, format, decodeError)
	}
	return pathsFromDocument(document)
}

// pathsFromDocument accepts {"rulesets": [...]}, [{"path": ...}] and ["a/b", ...].
func pathsFromDocument(document any) ([]string, error) {
	switch typedDocument := document.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return pathsFromDocument(typedDocument["rulesets"])
	case []any:
		paths := make([]string, 0, len(typedDocument))
		for index, entry := range typedDocument {
			switch typedEntry := entry.(type) {
			case string:
				paths = append(paths, typedEntry)
			case map[string]any:
				path, isString := typedEntry["path"].(string)
				if !isString {
					return nil, fmt.Errorf(errorEntryFormat, index)
				}
				paths = append(paths, path)
			default:
				return nil, fmt.Errorf(errorEntryFormat, index)
			}
		}
		return paths, nil
	default:
		return nil, fmt.Errorf(errorDocumentFormat, document)
	}
}
