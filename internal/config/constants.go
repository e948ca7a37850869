package config

import "time"

// Application constants
const (
	AppName    = "Campaign Pulse"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. CAMPAIGN_SERVER_PORT.
	EnvPrefix = "CAMPAIGN"

	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "CAMPAIGN_CONFIG_FILE"

	// Output modes for LoggingConfig.Output
	LogOutputConsole = "console"
	LogOutputFile    = "file"
	LogOutputBoth    = "both"

	// Trace exporters for TelemetryConfig.TraceExporter
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"

	DefaultTopN         = 3
	DefaultLeaderboardN = 5
	DefaultSessionTTL   = 2 * time.Hour
)

// configFileLocations are searched in order when ConfigFileEnv is unset.
var configFileLocations = []string{
	"config.yaml",
	"configs/config.yaml",
	"../configs/config.yaml",
}
