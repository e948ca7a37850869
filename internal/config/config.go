package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/campaignpulse.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// DashboardConfig controls ingestion limits, metrics and session lifetime.
type DashboardConfig struct {
	Schema         string        `yaml:"schema" envconfig:"SCHEMA" default:"basic"`
	TopN           int           `yaml:"top_n" envconfig:"TOP_N" default:"3"`
	LeaderboardN   int           `yaml:"leaderboard_n" envconfig:"LEADERBOARD_N" default:"5"`
	MaxFiles       int           `yaml:"max_files" envconfig:"MAX_FILES" default:"20"`
	MaxFileBytes   int64         `yaml:"max_file_bytes" envconfig:"MAX_FILE_BYTES" default:"20971520"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`
	ParseWorkers   int           `yaml:"parse_workers" envconfig:"PARSE_WORKERS" default:"4"`
	SessionTTL     time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" default:"2h"`
	SweepInterval  time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"5m"`
	CSVBOM         bool          `yaml:"csv_bom" envconfig:"CSV_BOM" default:"true"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"campaignpulse"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFile(configFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	// Defaults and environment
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		mergeConfigs(*fileConfig, &cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs copies non-zero file values into cfg unless the matching
// environment variable is set.
func mergeConfigs(file Config, cfg *Config) {
	overlay("SERVER_HOST", &cfg.Server.Host, file.Server.Host)
	overlay("SERVER_PORT", &cfg.Server.Port, file.Server.Port)
	overlay("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout, file.Server.ReadTimeout)
	overlay("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout, file.Server.WriteTimeout)
	overlay("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout, file.Server.IdleTimeout)
	overlay("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes, file.Server.MaxHeaderBytes)
	overlay("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout, file.Server.ShutdownTimeout)
	overlay("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout, file.Server.RequestTimeout)

	if len(file.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		cfg.Security.AllowedOrigins = file.Security.AllowedOrigins
	}
	overlay("SECURITY_RATE_LIMIT_RPS", &cfg.Security.RateLimit.RPS, file.Security.RateLimit.RPS)
	overlay("SECURITY_RATE_LIMIT_BURST", &cfg.Security.RateLimit.Burst, file.Security.RateLimit.Burst)

	overlay("LOGGING_LEVEL", &cfg.Logging.Level, file.Logging.Level)
	overlay("LOGGING_OUTPUT", &cfg.Logging.Output, file.Logging.Output)
	overlay("LOGGING_FILE_PATH", &cfg.Logging.FilePath, file.Logging.FilePath)

	overlay("DASHBOARD_SCHEMA", &cfg.Dashboard.Schema, file.Dashboard.Schema)
	overlay("DASHBOARD_TOP_N", &cfg.Dashboard.TopN, file.Dashboard.TopN)
	overlay("DASHBOARD_LEADERBOARD_N", &cfg.Dashboard.LeaderboardN, file.Dashboard.LeaderboardN)
	overlay("DASHBOARD_MAX_FILES", &cfg.Dashboard.MaxFiles, file.Dashboard.MaxFiles)
	overlay("DASHBOARD_MAX_FILE_BYTES", &cfg.Dashboard.MaxFileBytes, file.Dashboard.MaxFileBytes)
	overlay("DASHBOARD_MAX_UPLOAD_BYTES", &cfg.Dashboard.MaxUploadBytes, file.Dashboard.MaxUploadBytes)
	overlay("DASHBOARD_PARSE_WORKERS", &cfg.Dashboard.ParseWorkers, file.Dashboard.ParseWorkers)
	overlay("DASHBOARD_SESSION_TTL", &cfg.Dashboard.SessionTTL, file.Dashboard.SessionTTL)
	overlay("DASHBOARD_SWEEP_INTERVAL", &cfg.Dashboard.SweepInterval, file.Dashboard.SweepInterval)

	overlay("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName, file.Telemetry.ServiceName)
	overlay("TELEMETRY_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter, file.Telemetry.TraceExporter)
	overlay("TELEMETRY_SAMPLE_RATIO", &cfg.Telemetry.SampleRatio, file.Telemetry.SampleRatio)

	// Booleans have no usable zero value, so a file can only switch them
	// away from their defaults.
	overlayBool("SECURITY_ENABLE_CORS", &cfg.Security.EnableCORS, file.Security.EnableCORS, true)
	overlayBool("SECURITY_RATE_LIMIT_ENABLED", &cfg.Security.RateLimit.Enabled, file.Security.RateLimit.Enabled, true)
	overlayBool("LOGGING_DEVELOPMENT", &cfg.Logging.Development, file.Logging.Development, false)
	overlayBool("DASHBOARD_CSV_BOM", &cfg.Dashboard.CSVBOM, file.Dashboard.CSVBOM, true)
	overlayBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.MetricsEnabled, file.Telemetry.MetricsEnabled, true)
}

func overlay[T comparable](key string, dst *T, fileValue T) {
	var zero T
	if fileValue == zero || envSet(key) {
		return
	}
	*dst = fileValue
}

func overlayBool(key string, dst *bool, fileValue, def bool) {
	if fileValue == def || envSet(key) {
		return
	}
	*dst = fileValue
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Output {
	case LogOutputConsole, LogOutputFile, LogOutputBoth:
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	switch strings.ToLower(c.Dashboard.Schema) {
	case "basic", "extended":
	default:
		return fmt.Errorf("invalid dashboard schema %q", c.Dashboard.Schema)
	}

	if c.Dashboard.TopN <= 0 || c.Dashboard.LeaderboardN <= 0 {
		return fmt.Errorf("dashboard ranking sizes must be positive")
	}

	if c.Dashboard.MaxFiles <= 0 {
		return fmt.Errorf("dashboard max files must be positive")
	}

	if c.Dashboard.ParseWorkers <= 0 {
		return fmt.Errorf("dashboard parse workers must be positive")
	}

	if c.Dashboard.MaxFileBytes <= 0 || c.Dashboard.MaxUploadBytes < c.Dashboard.MaxFileBytes {
		return fmt.Errorf("dashboard upload limits must be positive and max_upload_bytes >= max_file_bytes")
	}

	switch c.Telemetry.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("invalid trace exporter %q", c.Telemetry.TraceExporter)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	return nil
}

// configFilePath returns the path to the config file, or "" when none exists.
func configFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	for _, location := range configFileLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   LogOutputConsole,
			FilePath: "logs/campaignpulse.log",
		},
		Dashboard: DashboardConfig{
			Schema:         "basic",
			TopN:           DefaultTopN,
			LeaderboardN:   DefaultLeaderboardN,
			MaxFiles:       20,
			MaxFileBytes:   20 << 20,
			MaxUploadBytes: 100 << 20,
			ParseWorkers:   4,
			SessionTTL:     DefaultSessionTTL,
			SweepInterval:  5 * time.Minute,
			CSVBOM:         true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "campaignpulse",
			TraceExporter:  TraceExporterNone,
			MetricsEnabled: true,
			SampleRatio:    1.0,
		},
	}
}
