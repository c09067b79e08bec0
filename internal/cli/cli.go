// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rstree/internal/config"
	"github.com/temirov/rstree/internal/output"
	"github.com/temirov/rstree/internal/rulesets"
	"github.com/temirov/rstree/internal/services/clipboard"
	"github.com/temirov/rstree/internal/tree"
	"github.com/temirov/rstree/internal/types"
	"github.com/temirov/rstree/internal/utils"
)

const (
	configFlagName       = "config"
	fromFlagName         = "from"
	excludeFlagName      = "exclude"
	formatFlagName       = "format"
	separatorFlagName    = "separator"
	collationFlagName    = "collation"
	strictFlagName       = "strict"
	summaryFlagName      = "summary"
	clipboardFlagName    = "clipboard"
	rootUse              = "rstree"
	rootShortDescription = "rstree command line interface"
	rootLongDescription  = `rstree turns flat ruleset paths such as "payments/fees/card" into a merged,
sorted navigation tree.
Use tree to render the tree as raw, json, or xml output, serve to expose the listing
and the tree over HTTP, and init to write a configuration file.`
	versionTemplate = "rstree version: {{.Version}}\n"

	treeUse              = types.CommandTree + " [paths...]"
	treeAlias            = "t"
	treeShortDescription = "render the ruleset tree (" + treeAlias + ")"
	treeLongDescription  = `Merge ruleset paths into a navigation tree.
Paths come from the arguments, from --from sources (text, json or yaml; "-" reads stdin),
or from the configured sources. Without any of them the paths are read from stdin.`
	treeUsageExample = `  # Render two rulesets as a raw tree
  rstree tree payments/fees/card payments/fees/cash --format raw

  # Merge a listing exported from the rules server
  rstree tree --from rulesets.json --exclude legacy/`

	configFlagDescription    = "configuration file to load instead of ./config.yaml"
	fromFlagDescription      = "ruleset source file, repeatable; - reads stdin"
	excludeFlagDescription   = "exclude ruleset path pattern split on --separator, repeatable"
	formatFlagDescription    = "output format (raw, json, xml)"
	separatorFlagDescription = "path segment separator"
	collationFlagDescription = "BCP 47 language tag used to order siblings; empty orders by code point"
	strictFlagDescription    = "reject empty paths and empty segments"
	summaryFlagDescription   = "print a summary line in raw output"
	clipboardFlagDescription = "copy the rendered tree to the clipboard"

	invalidFormatMessage         = "invalid format value '%s'"
	workingDirectoryErrorFormat  = "unable to determine working directory: %w"
	errorLoadConfigurationFormat = "load configuration: %w"
	errorClipboardFormat         = "copy output: %w"
)

// dependencies carries the process resources commands read from and write to.
type dependencies struct {
	workingDirectory string
	standardInput    io.Reader
	copier           clipboard.Copier
	logger           *zap.Logger
	serverReady      func(address string)
}

// Execute runs the rstree application.
func Execute(ctx context.Context, logger *zap.Logger) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	rootCommand := createRootCommand(dependencies{
		workingDirectory: workingDirectory,
		standardInput:    os.Stdin,
		copier:           clipboard.NewService(),
		logger:           logger,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(deps dependencies) *cobra.Command {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	var configurationPath string

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Version:      utils.GetApplicationVersion(),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.PersistentFlags().StringVar(&configurationPath, configFlagName, "", configFlagDescription)

	loadConfiguration := func() (config.ApplicationConfiguration, error) {
		loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
			WorkingDirectory: deps.workingDirectory,
			ExplicitFilePath: configurationPath,
		})
		if loadError != nil {
			return config.ApplicationConfiguration{}, fmt.Errorf(errorLoadConfigurationFormat, loadError)
		}
		return loaded, nil
	}

	rootCommand.AddCommand(
		createTreeCommand(deps, loadConfiguration),
		createServeCommand(deps, loadConfiguration),
		createInitCommand(deps),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

type configurationLoader func() (config.ApplicationConfiguration, error)

// treeOptions stores the flags of the tree command.
type treeOptions struct {
	sources   []string
	exclude   []string
	format    string
	separator string
	collation string
	strict    bool
	summary   bool
	clipboard bool
}

// applyDefaults fills every flag the user did not set from the configuration.
func (options *treeOptions) applyDefaults(command *cobra.Command, defaults config.TreeConfiguration) {
	flags := command.Flags()
	if !flags.Changed(formatFlagName) && defaults.Format != "" {
		options.format = defaults.Format
	}
	if !flags.Changed(separatorFlagName) && defaults.Separator != "" {
		options.separator = defaults.Separator
	}
	if !flags.Changed(collationFlagName) && defaults.Collation != "" {
		options.collation = defaults.Collation
	}
	if !flags.Changed(strictFlagName) && defaults.Strict != nil {
		options.strict = *defaults.Strict
	}
	if !flags.Changed(summaryFlagName) && defaults.Summary != nil {
		options.summary = *defaults.Summary
	}
	if !flags.Changed(clipboardFlagName) && defaults.Clipboard != nil {
		options.clipboard = *defaults.Clipboard
	}
	options.exclude = append(options.exclude, defaults.Exclude...)
}

func (options treeOptions) builderOptions() tree.Options {
	return tree.Options{Separator: options.separator, Collation: options.collation, Strict: options.strict}
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand(deps dependencies, loadConfiguration configurationLoader) *cobra.Command {
	var options treeOptions

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.ArbitraryArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			applicationConfiguration, loadError := loadConfiguration()
			if loadError != nil {
				return loadError
			}
			options.applyDefaults(command, applicationConfiguration.Tree)
			normalizedFormat, supported := types.NormalizeFormat(options.format)
			if !supported {
				return fmt.Errorf(invalidFormatMessage, normalizedFormat)
			}
			options.format = normalizedFormat

			sources := options.sources
			if len(arguments) == 0 && len(sources) == 0 {
				sources = applicationConfiguration.Tree.Sources
			}
			if len(arguments) == 0 && len(sources) == 0 {
				sources = []string{types.StandardInputName}
			}
			return runTree(command, deps, options, arguments, sources)
		},
	}

	flags := treeCommand.Flags()
	flags.StringArrayVar(&options.sources, fromFlagName, nil, fromFlagDescription)
	flags.StringArrayVarP(&options.exclude, excludeFlagName, "e", nil, excludeFlagDescription)
	flags.StringVar(&options.format, formatFlagName, types.FormatJSON, formatFlagDescription)
	flags.StringVar(&options.separator, separatorFlagName, tree.DefaultSeparator, separatorFlagDescription)
	flags.StringVar(&options.collation, collationFlagName, "", collationFlagDescription)
	registerBooleanFlag(flags, &options.strict, strictFlagName, false, strictFlagDescription)
	registerBooleanFlag(flags, &options.summary, summaryFlagName, true, summaryFlagDescription)
	registerBooleanFlag(flags, &options.clipboard, clipboardFlagName, false, clipboardFlagDescription)
	return treeCommand
}

// runTree loads, filters, merges and renders the ruleset paths.
func runTree(command *cobra.Command, deps dependencies, options treeOptions, arguments []string, sources []string) error {
	builder, builderError := tree.NewBuilder(options.builderOptions())
	if builderError != nil {
		return builderError
	}

	loadedPaths, loadError := rulesets.LoadFiles(command.Context(), sources, deps.standardInput)
	if loadError != nil {
		return loadError
	}
	paths := rulesets.Exclude(rulesets.Clean(append(append([]string{}, arguments...), loadedPaths...)), options.exclude, builder.Separator())
	deps.logger.Debug("building ruleset tree",
		zap.Int("rulesets", len(paths)),
		zap.Strings("sources", sources),
	)

	forest, buildError := builder.Build(paths)
	if buildError != nil {
		return buildError
	}
	rendered, renderError := output.Render(options.format, forest, options.summary)
	if renderError != nil {
		return renderError
	}
	rendered = strings.TrimSuffix(rendered, "\n")
	fmt.Fprintln(command.OutOrStdout(), rendered)

	if options.clipboard && deps.copier != nil {
		if copyError := deps.copier.Copy(rendered); copyError != nil {
			return fmt.Errorf(errorClipboardFormat, copyError)
		}
	}
	return nil
}
