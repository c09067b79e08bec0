package rulesets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPageLimit is the page size used when ListOptions.Limit is not positive.
const DefaultPageLimit = 100

const (
	maximumOpenSnapshots   = 64
	snapshotTokenSeparator = ":"
)

// ErrInvalidContinueToken is returned for a continue token the lister did not issue.
var ErrInvalidContinueToken = errors.New("invalid continue token")

// ListOptions selects one page of ruleset paths.
type ListOptions struct {
	Limit         int
	ContinueToken string
}

// Page holds one page of ruleset paths. Continue is empty on the last page.
type Page struct {
	Paths    []string
	Continue string
}

// Lister pages through ruleset paths.
type Lister interface {
	List(ctx context.Context, options ListOptions) (*Page, error)
}

// CollectPaths drains lister page by page. The first page is always requested,
// even when the lister holds nothing.
func CollectPaths(ctx context.Context, lister Lister, limit int) ([]string, error) {
	options := ListOptions{Limit: limit}
	var collected []string
	for pageIndex := 0; pageIndex == 0 || options.ContinueToken != ""; pageIndex++ {
		page, listError := lister.List(ctx, options)
		if listError != nil {
			return nil, fmt.Errorf("listing rulesets page %d: %w", pageIndex, listError)
		}
		collected = append(collected, page.Paths...)
		options.ContinueToken = page.Continue
	}
	return collected, nil
}

// StaticLister pages through a fixed slice of paths. Continue tokens are offsets.
type StaticLister struct {
	paths []string
}

// NewStaticLister returns a lister over a copy of paths.
func NewStaticLister(paths []string) *StaticLister {
	return &StaticLister{paths: append([]string(nil), paths...)}
}

// List returns the page starting at the offset encoded in the continue token.
func (lister *StaticLister) List(ctx context.Context, options ListOptions) (*Page, error) {
	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}
	return paginate(lister.paths, options)
}

// FileLister reads its sources once per listing so edits show up without a restart.
// The first page loads a snapshot of the sources; continue tokens name that snapshot,
// so every later page of the same listing comes from the same content.
type FileLister struct {
	sources       []string
	exclusions    []string
	separator     string
	standardInput io.Reader
	snapshots     *lru.Cache[string, []string]
	snapshotCount atomic.Uint64
}

// NewFileLister returns a lister over the cleaned paths of sources minus the paths excluded
// by exclusions, which are split on separator.
func NewFileLister(sources []string, exclusions []string, separator string, standardInput io.Reader) (*FileLister, error) {
	snapshots, cacheError := lru.New[string, []string](maximumOpenSnapshots)
	if cacheError != nil {
		return nil, fmt.Errorf("allocate listing snapshots: %w", cacheError)
	}
	return &FileLister{
		sources:       append([]string(nil), sources...),
		exclusions:    append([]string(nil), exclusions...),
		separator:     separator,
		standardInput: standardInput,
		snapshots:     snapshots,
	}, nil
}

// List loads a fresh snapshot for a request without continue token and pages through
// the snapshot named by the token otherwise. A finished listing releases its snapshot.
func (lister *FileLister) List(ctx context.Context, options ListOptions) (*Page, error) {
	snapshotID, offsetToken, paths, resolveError := lister.resolveSnapshot(ctx, options.ContinueToken)
	if resolveError != nil {
		return nil, resolveError
	}
	page, pageError := paginate(paths, ListOptions{Limit: options.Limit, ContinueToken: offsetToken})
	if pageError != nil {
		return nil, pageError
	}
	if page.Continue == "" {
		lister.snapshots.Remove(snapshotID)
		return page, nil
	}
	lister.snapshots.Add(snapshotID, paths)
	page.Continue = snapshotID + snapshotTokenSeparator + page.Continue
	return page, nil
}

func (lister *FileLister) resolveSnapshot(ctx context.Context, continueToken string) (string, string, []string, error) {
	if continueToken == "" {
		loadedPaths, loadError := LoadFiles(ctx, lister.sources, lister.standardInput)
		if loadError != nil {
			return "", "", nil, loadError
		}
		snapshotID := strconv.FormatUint(lister.snapshotCount.Add(1), 36)
		return snapshotID, "", Exclude(Clean(loadedPaths), lister.exclusions, lister.separator), nil
	}
	snapshotID, offsetToken, found := strings.Cut(continueToken, snapshotTokenSeparator)
	if !found {
		return "", "", nil, fmt.Errorf("%w: %q", ErrInvalidContinueToken, continueToken)
	}
	paths, cached := lister.snapshots.Get(snapshotID)
	if !cached {
		return "", "", nil, fmt.Errorf("%w: listing %q expired", ErrInvalidContinueToken, snapshotID)
	}
	return snapshotID, offsetToken, paths, nil
}

func paginate(paths []string, options ListOptions) (*Page, error) {
	limit := options.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	offset := 0
	if options.ContinueToken != "" {
		parsedOffset, parseError := strconv.Atoi(options.ContinueToken)
		if parseError != nil || parsedOffset < 0 || parsedOffset > len(paths) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidContinueToken, options.ContinueToken)
		}
		offset = parsedOffset
	}
	end := offset + limit
	if end > len(paths) {
		end = len(paths)
	}
	page := &Page{Paths: append([]string(nil), paths[offset:end]...)}
	if end < len(paths) {
		page.Continue = strconv.Itoa(end)
	}
	return page, nil
}
