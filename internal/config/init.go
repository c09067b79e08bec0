package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/rstree/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultConfigurationTemplate = `tree:
  format: json
  separator: /
  collation: ""
  strict: false
  summary: true
  clipboard: false
  sources: []
  exclude: []
serve:
  address: 127.0.0.1:8080
  page_size: 100
  cache_size: 128
  sources: []
  exclude: []
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration to the requested target and
// returns the written path. An existing file is only replaced when Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, resolveErr := resolveInitDestination(options)
	if resolveErr != nil {
		return "", resolveErr
	}

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !options.Force {
		openFlags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	// #nosec G304
	fileHandle, openErr := os.OpenFile(destinationPath, openFlags, 0o600)
	if openErr != nil {
		if errors.Is(openErr, fs.ErrExist) {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
		return "", fmt.Errorf("open configuration %s: %w", destinationPath, openErr)
	}
	_, writeErr := fileHandle.WriteString(defaultConfigurationTemplate)
	closeErr := fileHandle.Close()
	if writeErr != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, writeErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close configuration %s: %w", destinationPath, closeErr)
	}
	return destinationPath, nil
}

func resolveInitDestination(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, 0o755); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		return filepath.Join(configurationDirectory, utils.ConfigFileName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
