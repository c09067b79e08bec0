package main

import (
	"context"
	"fmt"
	"os"

	"github.com/temirov/rstree/internal/cli"
	"github.com/temirov/rstree/internal/config"
	"github.com/temirov/rstree/internal/utils"
)

// main is the entry point for the rstree command.
func main() {
	if workingDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
		if environmentError := config.LoadEnvironmentFile(workingDirectory); environmentError != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", environmentError)
		}
	}
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(config.DebugRequested())
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(context.Background(), loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
