package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/temirov/rstree/internal/utils"
)

const (
	environmentKeyConfig = "config"
	environmentKeyFormat = "format"
	environmentKeyAddr   = "address"
	environmentKeyDebug  = "debug"
)

type environmentSettings struct {
	configPath string
	overrides  ApplicationConfiguration
}

// LoadEnvironmentFile loads the .env file of workingDirectory into the process environment.
// Variables that are already set win over the file, and a missing file is not an error.
func LoadEnvironmentFile(workingDirectory string) error {
	environmentPath := filepath.Join(workingDirectory, utils.EnvironmentFileName)
	if loadErr := godotenv.Load(environmentPath); loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
		return fmt.Errorf("load environment from %s: %w", environmentPath, loadErr)
	}
	return nil
}

// readEnvironment collects RSTREE_CONFIG, RSTREE_FORMAT and RSTREE_ADDRESS.
func readEnvironment() environmentSettings {
	reader := viper.New()
	reader.SetEnvPrefix(utils.ApplicationName)
	for _, key := range []string{environmentKeyConfig, environmentKeyFormat, environmentKeyAddr} {
		_ = reader.BindEnv(key)
	}

	var settings environmentSettings
	settings.configPath = reader.GetString(environmentKeyConfig)
	settings.overrides.Tree.Format = reader.GetString(environmentKeyFormat)
	settings.overrides.Serve.Address = reader.GetString(environmentKeyAddr)
	return settings
}

// DebugRequested reports whether RSTREE_DEBUG asks for debug logging.
func DebugRequested() bool {
	reader := viper.New()
	reader.SetEnvPrefix(utils.ApplicationName)
	_ = reader.BindEnv(environmentKeyDebug)
	return reader.GetBool(environmentKeyDebug)
}
