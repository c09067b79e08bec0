package utils

const (
	// ApplicationName is the command name and the prefix of environment variables.
	ApplicationName = "rstree"
	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".rstree"
	// EnvironmentFileName is the dotenv file loaded from the working directory.
	EnvironmentFileName = ".env"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal log entry of a failed command.
	ApplicationExecutionFailedMessage = "rstree failed"
)
