package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "gradebook/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. GRADEBOOK_SERVER_PORT.
const EnvPrefix = "GRADEBOOK"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" split_words:"true"`
	Security  SecurityConfig  `yaml:"security" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	Database  DatabaseConfig  `yaml:"database" split_words:"true"`
	Backup    BackupConfig    `yaml:"backup" split_words:"true"`
	Telemetry TelemetryConfig `yaml:"telemetry" split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" split_words:"true"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// LoggingConfig contains logging configuration.
// Output is one of "console", "file" or "both".
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true"`
	Output   string `yaml:"output" split_words:"true"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// DatabaseConfig selects the record store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" split_words:"true"`
	DSN    string `yaml:"dsn" split_words:"true"`
}

// BackupConfig controls the debounced JSON snapshot. An empty Path disables it.
type BackupConfig struct {
	Path     string        `yaml:"path" split_words:"true"`
	Debounce time.Duration `yaml:"debounce" split_words:"true"`
}

// TelemetryConfig toggles OpenTelemetry tracing and Prometheus metrics.
type TelemetryConfig struct {
	Tracing       bool   `yaml:"tracing" split_words:"true"`
	TraceExporter string `yaml:"trace_exporter" split_words:"true"`
	Metrics       bool   `yaml:"metrics" split_words:"true"`
}

// Database drivers accepted by DatabaseConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Load reads the configuration: defaults, then the YAML file (if one is
// found), then GRADEBOOK_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		if err := loadFromFile(filePath, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err)
		}
	}

	// Fields without a matching variable are left alone, so env only
	// overrides what it names. split_words keeps envconfig from falling
	// back to bare names like PATH or PORT.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}
	return cfg, nil
}

// loadFromFile overlays YAML onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks ranges and enumerations and normalizes case.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload bytes must be positive")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	switch c.Logging.Output {
	case "console":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging output %q needs a file path", c.Logging.Output)
		}
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid database driver: %q", c.Database.Driver)
	}

	if c.Backup.Path != "" && c.Backup.Debounce < 0 {
		return fmt.Errorf("backup debounce must not be negative")
	}

	c.Telemetry.TraceExporter = strings.ToLower(c.Telemetry.TraceExporter)
	switch c.Telemetry.TraceExporter {
	case "", "stdout", "none":
	default:
		return fmt.Errorf("invalid trace exporter: %q", c.Telemetry.TraceExporter)
	}
	return nil
}

// Address is the listen address for the HTTP server.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	locations := []string{
		"gradebook.yaml",
		"configs/gradebook.yaml",
		"../configs/gradebook.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  10 << 20, // 10MB
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/gradebook.log",
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Backup: BackupConfig{
			Debounce: 2 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Tracing:       false,
			TraceExporter: "stdout",
			Metrics:       true,
		},
	}
}
