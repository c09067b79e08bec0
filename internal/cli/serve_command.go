package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/temirov/rstree/internal/config"
	"github.com/temirov/rstree/internal/rulesets"
	"github.com/temirov/rstree/internal/services/navserver"
	"github.com/temirov/rstree/internal/tree"
	"github.com/temirov/rstree/internal/types"
)

const (
	addressFlagName       = "address"
	pageSizeFlagName      = "page-size"
	cacheSizeFlagName     = "cache-size"
	defaultServeAddress   = "127.0.0.1:8080"
	defaultCacheSize      = 128
	serveUse              = types.CommandServe
	serveAlias            = "s"
	serveShortDescription = "serve the ruleset listing and tree over HTTP (" + serveAlias + ")"
	serveLongDescription  = `Serve GET /rulesets/ with the ruleset listing, GET /rulesets/tree with the merged tree
of the listing and POST /tree, which merges the paths of a {"rulesets":[{"path":...}]} body.
File sources are re-read on every request; stdin is read once at startup.`
	serveUsageExample = `  # Serve a listing file on the default address
  rstree serve --from rulesets.yaml

  # Serve on every interface with small pages
  rstree serve --from rulesets.txt --address 0.0.0.0:9000 --page-size 25`

	addressFlagDescription   = "listen address"
	pageSizeFlagDescription  = "page size used while reading the listing"
	cacheSizeFlagDescription = "number of merged trees kept in memory"
	servingMessageFormat     = "Serving rulesets at http://%s\n"
)

// serveOptions stores the flags of the serve command.
type serveOptions struct {
	address   string
	sources   []string
	exclude   []string
	separator string
	collation string
	strict    bool
	pageSize  int
	cacheSize int
}

// applyDefaults fills every flag the user did not set from the configuration.
func (options *serveOptions) applyDefaults(command *cobra.Command, defaults config.ServeConfiguration) {
	flags := command.Flags()
	if !flags.Changed(addressFlagName) && defaults.Address != "" {
		options.address = defaults.Address
	}
	if !flags.Changed(separatorFlagName) && defaults.Separator != "" {
		options.separator = defaults.Separator
	}
	if !flags.Changed(collationFlagName) && defaults.Collation != "" {
		options.collation = defaults.Collation
	}
	if !flags.Changed(pageSizeFlagName) && defaults.PageSize != nil {
		options.pageSize = *defaults.PageSize
	}
	if !flags.Changed(cacheSizeFlagName) && defaults.CacheSize != nil {
		options.cacheSize = *defaults.CacheSize
	}
	if !flags.Changed(fromFlagName) {
		options.sources = append(options.sources, defaults.Sources...)
	}
	options.exclude = append(options.exclude, defaults.Exclude...)
}

// createServeCommand returns the serve subcommand.
func createServeCommand(deps dependencies, loadConfiguration configurationLoader) *cobra.Command {
	var options serveOptions

	serveCommand := &cobra.Command{
		Use:     serveUse,
		Aliases: []string{serveAlias},
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfiguration, loadError := loadConfiguration()
			if loadError != nil {
				return loadError
			}
			options.applyDefaults(command, applicationConfiguration.Serve)
			return runServe(command, deps, options)
		},
	}

	flags := serveCommand.Flags()
	flags.StringVar(&options.address, addressFlagName, defaultServeAddress, addressFlagDescription)
	flags.StringArrayVar(&options.sources, fromFlagName, nil, fromFlagDescription)
	flags.StringArrayVarP(&options.exclude, excludeFlagName, "e", nil, excludeFlagDescription)
	flags.StringVar(&options.separator, separatorFlagName, tree.DefaultSeparator, separatorFlagDescription)
	flags.StringVar(&options.collation, collationFlagName, "", collationFlagDescription)
	registerBooleanFlag(flags, &options.strict, strictFlagName, false, strictFlagDescription)
	flags.IntVar(&options.pageSize, pageSizeFlagName, rulesets.DefaultPageLimit, pageSizeFlagDescription)
	flags.IntVar(&options.cacheSize, cacheSizeFlagName, defaultCacheSize, cacheSizeFlagDescription)
	return serveCommand
}

// runServe runs the HTTP server until the command context is canceled or the process is interrupted.
func runServe(command *cobra.Command, deps dependencies, options serveOptions) error {
	builder, builderError := tree.NewBuilder(tree.Options{
		Separator: options.separator,
		Collation: options.collation,
		Strict:    options.strict,
	})
	if builderError != nil {
		return builderError
	}

	lister, listerError := newSourceLister(command.Context(), deps, options)
	if listerError != nil {
		return listerError
	}

	server, serverError := navserver.NewServer(navserver.Config{
		Address:   options.address,
		Lister:    lister,
		Builder:   builder,
		PageSize:  options.pageSize,
		CacheSize: options.cacheSize,
		Logger:    deps.logger,
	})
	if serverError != nil {
		return serverError
	}

	ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, func(address string) {
		fmt.Fprintf(command.OutOrStdout(), servingMessageFormat, address)
		if deps.serverReady != nil {
			deps.serverReady(address)
		}
	})
}

// newSourceLister re-reads file sources per request. Standard input cannot be read twice,
// so any "-" source turns the whole listing into a snapshot taken at startup.
func newSourceLister(ctx context.Context, deps dependencies, options serveOptions) (rulesets.Lister, error) {
	if !slices.Contains(options.sources, types.StandardInputName) {
		return rulesets.NewFileLister(options.sources, options.exclude, options.separator, deps.standardInput)
	}
	loadedPaths, loadError := rulesets.LoadFiles(ctx, options.sources, deps.standardInput)
	if loadError != nil {
		return nil, loadError
	}
	return rulesets.NewStaticLister(rulesets.Exclude(rulesets.Clean(loadedPaths), options.exclude, options.separator)), nil
}
