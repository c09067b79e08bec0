package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/rstree/internal/config"
	"github.com/temirov/rstree/internal/types"
)

const (
	globalFlagName       = "global"
	forceFlagName        = "force"
	initUse              = types.CommandInit
	initShortDescription = "write the default configuration file"
	initLongDescription  = `Write the default configuration to ./config.yaml, or to ~/.rstree/config.yaml with --global.
An existing file is only replaced with --force.`

	globalFlagDescription = "write the global configuration instead of the local one"
	forceFlagDescription  = "overwrite an existing configuration file"
	initCompletedFormat   = "Configuration written to %s\n"
)

// createInitCommand returns the init subcommand.
func createInitCommand(deps dependencies) *cobra.Command {
	var writeGlobal bool
	var overwrite bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            overwrite,
				WorkingDirectory: deps.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), initCompletedFormat, writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &writeGlobal, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &overwrite, forceFlagName, false, forceFlagDescription)
	return initCommand
}
