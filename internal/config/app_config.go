// Package config loads rstree defaults from global and local YAML files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/rstree/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds command-specific configuration defaults.
type ApplicationConfiguration struct {
	Tree  TreeConfiguration  `mapstructure:"tree"`
	Serve ServeConfiguration `mapstructure:"serve"`
}

// TreeConfiguration defines defaults for the tree command.
type TreeConfiguration struct {
	Format    string   `mapstructure:"format"`
	Separator string   `mapstructure:"separator"`
	Collation string   `mapstructure:"collation"`
	Strict    *bool    `mapstructure:"strict"`
	Summary   *bool    `mapstructure:"summary"`
	Clipboard *bool    `mapstructure:"clipboard"`
	Sources   []string `mapstructure:"sources"`
	Exclude   []string `mapstructure:"exclude"`
}

// ServeConfiguration defines defaults for the serve command.
type ServeConfiguration struct {
	Address   string   `mapstructure:"address"`
	Separator string   `mapstructure:"separator"`
	Collation string   `mapstructure:"collation"`
	PageSize  *int     `mapstructure:"page_size"`
	CacheSize *int     `mapstructure:"cache_size"`
	Sources   []string `mapstructure:"sources"`
	Exclude   []string `mapstructure:"exclude"`
}

// LoadApplicationConfiguration merges, from lowest to highest precedence, the global file,
// the local or explicit file and RSTREE_* environment variables.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	environment := readEnvironment()

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	explicitPath := utils.FirstNonEmpty(options.ExplicitFilePath, environment.configPath)
	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, explicitPath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if explicitPath != "" {
		if _, statErr := os.Stat(localPath); statErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", localPath, statErr)
		}
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)
	merged = merged.Merge(environment.overrides)

	merged.Tree.Exclude = utils.DeduplicateStrings(merged.Tree.Exclude)
	merged.Serve.Exclude = utils.DeduplicateStrings(merged.Serve.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	result.Serve = result.Serve.merge(override.Serve)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Separator != "" {
		result.Separator = override.Separator
	}
	if override.Collation != "" {
		result.Collation = override.Collation
	}
	if override.Strict != nil {
		result.Strict = cloneBool(override.Strict)
	}
	if override.Summary != nil {
		result.Summary = cloneBool(override.Summary)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if len(override.Sources) > 0 {
		result.Sources = append([]string{}, override.Sources...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicateStrings(override.Exclude)...)
	}
	return result
}

func (config ServeConfiguration) merge(override ServeConfiguration) ServeConfiguration {
	result := config
	if override.Address != "" {
		result.Address = override.Address
	}
	if override.Separator != "" {
		result.Separator = override.Separator
	}
	if override.Collation != "" {
		result.Collation = override.Collation
	}
	if override.PageSize != nil {
		result.PageSize = cloneInt(override.PageSize)
	}
	if override.CacheSize != nil {
		result.CacheSize = cloneInt(override.CacheSize)
	}
	if len(override.Sources) > 0 {
		result.Sources = append([]string{}, override.Sources...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicateStrings(override.Exclude)...)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
