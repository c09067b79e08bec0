// Package navserver serves ruleset listings and merged navigation trees over HTTP.
package navserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/rstree/internal/rulesets"
	"github.com/temirov/rstree/internal/tree"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	defaultCacheSize        = 128
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"
	rulesetsPath            = "/rulesets/"
	rulesetsTreePath        = "/rulesets/tree"
	treePath                = "/tree"
	errorFieldName          = "error"
	internalErrorMessage    = "internal_error"
	cacheKeySeparator       = "\x00"
	maximumRequestBodyBytes = 8 << 20

	errorListRulesetsFormat = "list rulesets: %w"
	errorDecodeBodyFormat   = "decode request body: %w"
)

// RequestError carries the HTTP status code a failure should be reported with.
type RequestError struct {
	statusCode int
	err        error
}

// Error returns the error string.
func (requestError RequestError) Error() string {
	return requestError.err.Error()
}

// Unwrap exposes the wrapped error.
func (requestError RequestError) Unwrap() error {
	return requestError.err
}

// StatusCode reports the associated HTTP status code.
func (requestError RequestError) StatusCode() int {
	return requestError.statusCode
}

// NewRequestError wraps err with statusCode. A nil err yields nil.
func NewRequestError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return RequestError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address string
	// Lister backs the listing routes. Nil serves an empty listing.
	Lister rulesets.Lister
	// Builder merges paths into forests. Nil uses code point order and the default separator.
	Builder *tree.Builder
	// PageSize is the page limit used while draining Lister.
	PageSize int
	// CacheSize bounds the number of POST /tree results kept in memory.
	CacheSize       int
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server exposes the ruleset listing and the merged tree.
type Server struct {
	config Config
	cache  *lru.Cache[string, []*tree.Node]
}

// NewServer applies defaults to config and allocates the tree cache.
func NewServer(config Config) (*Server, error) {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.PageSize <= 0 {
		normalized.PageSize = rulesets.DefaultPageLimit
	}
	if normalized.CacheSize <= 0 {
		normalized.CacheSize = defaultCacheSize
	}
	if normalized.Lister == nil {
		normalized.Lister = rulesets.NewStaticLister(nil)
	}
	if normalized.Builder == nil {
		builder, builderErr := tree.NewBuilder(tree.Options{})
		if builderErr != nil {
			return nil, builderErr
		}
		normalized.Builder = builder
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	cache, cacheErr := lru.New[string, []*tree.Node](normalized.CacheSize)
	if cacheErr != nil {
		return nil, fmt.Errorf("allocate tree cache: %w", cacheErr)
	}
	return &Server{config: normalized, cache: cache}, nil
}

// Handler returns the router serving every route of the server.
func (server *Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(rulesetsPath, server.handleRulesets)
	router.HandleFunc(rulesetsTreePath, server.handleRulesetsTree)
	router.HandleFunc(treePath, server.handleTree)
	return router
}

// Run starts the server and blocks until the provided context is canceled.
// The notify callback receives the bound address once the listener is active.
func (server *Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: server.config.ShutdownTimeout}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve rulesets: %w", serveErr)
		}
		return nil
	})

	server.config.Logger.Info("serving rulesets", zap.String("address", actualAddress))
	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf("shutdown rulesets server: %w", shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

func (server *Server) handleRulesets(writer http.ResponseWriter, request *http.Request) {
	if request.URL.Path != rulesetsPath {
		server.writeError(writer, request, NewRequestError(http.StatusNotFound, fmt.Errorf("no route for %s", request.URL.Path)))
		return
	}
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	paths, listErr := server.collect(request.Context())
	if listErr != nil {
		server.writeError(writer, request, listErr)
		return
	}
	server.logRequest(request, len(paths))
	server.writeJSON(writer, http.StatusOK, rulesets.NewList(paths))
}

func (server *Server) handleRulesetsTree(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	paths, listErr := server.collect(request.Context())
	if listErr != nil {
		server.writeError(writer, request, listErr)
		return
	}
	forest, buildErr := server.build(paths)
	if buildErr != nil {
		server.writeError(writer, request, buildErr)
		return
	}
	server.logRequest(request, len(paths))
	server.writeJSON(writer, http.StatusOK, forest)
}

func (server *Server) handleTree(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var list rulesets.List
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maximumRequestBodyBytes))
	if decodeErr := decoder.Decode(&list); decodeErr != nil {
		server.writeError(writer, request, NewRequestError(http.StatusBadRequest, fmt.Errorf(errorDecodeBodyFormat, decodeErr)))
		return
	}
	paths := list.Paths()
	forest, buildErr := server.build(paths)
	if buildErr != nil {
		server.writeError(writer, request, buildErr)
		return
	}
	server.logRequest(request, len(paths))
	server.writeJSON(writer, http.StatusOK, forest)
}

func (server *Server) collect(ctx context.Context) ([]string, error) {
	paths, listErr := rulesets.CollectPaths(ctx, server.config.Lister, server.config.PageSize)
	if listErr != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(listErr, rulesets.ErrInvalidContinueToken) {
			statusCode = http.StatusBadRequest
		}
		return nil, NewRequestError(statusCode, fmt.Errorf(errorListRulesetsFormat, listErr))
	}
	return paths, nil
}

// build merges paths through the cache. The forest does not depend on input order,
// so the key is the sorted path list.
func (server *Server) build(paths []string) ([]*tree.Node, error) {
	cacheKey := forestCacheKey(paths)
	if cached, found := server.cache.Get(cacheKey); found {
		return cached, nil
	}
	forest, buildErr := server.config.Builder.Build(paths)
	if buildErr != nil {
		var invalidPath *tree.InvalidPathError
		if errors.As(buildErr, &invalidPath) {
			return nil, NewRequestError(http.StatusBadRequest, buildErr)
		}
		return nil, buildErr
	}
	server.cache.Add(cacheKey, forest)
	return forest, nil
}

func forestCacheKey(paths []string) string {
	sortedPaths := append([]string(nil), paths...)
	sort.Strings(sortedPaths)
	return strings.Join(sortedPaths, cacheKeySeparator)
}

func (server *Server) logRequest(request *http.Request, pathCount int) {
	server.config.Logger.Debug("request served",
		zap.String("method", request.Method),
		zap.String("path", request.URL.Path),
		zap.Int("rulesets", pathCount),
	)
}

// writeError reports client errors verbatim. Server errors are logged and answered
// with internalErrorMessage only.
func (server *Server) writeError(writer http.ResponseWriter, request *http.Request, err error) {
	statusCode := statusCodeFromError(err)
	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		server.config.Logger.Error("request failed",
			zap.String("method", request.Method),
			zap.String("path", request.URL.Path),
			zap.Int("status", statusCode),
			zap.Error(err),
		)
		message = internalErrorMessage
	}
	server.writeJSON(writer, statusCode, map[string]string{errorFieldName: message})
}

func (server *Server) writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := map[string]string{errorFieldName: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func statusCodeFromError(err error) int {
	var requestError RequestError
	if errors.As(err, &requestError) {
		return requestError.StatusCode()
	}
	return http.StatusInternalServerError
}
