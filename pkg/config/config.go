// Package config provides the file-backed loaders for the settings tree and
// the bootstrap configuration of a bot process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/transcribersofreddit/torcore/pkg/domain"
)

// Environment variables consumed by the bootstrap defaults.
const (
	EnvSettingsPath     = "TOR_CONFIG_PATH"
	EnvHandlerNamespace = "TOR_ADMIN_COMMAND_PKG"
	EnvLogLevel         = "TOR_LOG_LEVEL"
	EnvStoreURL         = "TOR_STORE_URL"
	EnvOTLPEndpoint     = "TOR_OTLP_ENDPOINT"
	EnvHeartbeatEnabled = "TOR_HEARTBEAT_ENABLED"
)

const (
	// DefaultHandlerNamespace is the registry namespace admin command
	// handlers are looked up in when none is configured.
	DefaultHandlerNamespace = "admin_commands"

	defaultHeartbeatPortStart = 8000
	defaultHeartbeatPortEnd   = 8100
)

// Config holds the bootstrap configuration for a bot process.
type Config struct {
	Settings  SettingsConfig  `yaml:"settings"`
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SettingsConfig locates the settings tree and controls how it is cascaded.
type SettingsConfig struct {
	Path                string   `yaml:"path"`
	HandlerNamespace    string   `yaml:"handler_namespace"`
	ProtectedAttributes []string `yaml:"protected_attributes"`
	Watch               bool     `yaml:"watch"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// StoreConfig holds the cache store connection URL. An empty URL disables
// the store.
type StoreConfig struct {
	URL string `yaml:"url"`
}

// HeartbeatConfig holds configuration for the status sub-server.
type HeartbeatConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	PortStart int    `yaml:"port_start"`
	PortEnd   int    `yaml:"port_end"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Default returns the bootstrap configuration used when no file is given.
func Default() *Config {
	return &Config{
		Settings: SettingsConfig{
			Path:             DefaultSettingsPath(),
			HandlerNamespace: DefaultHandlerNamespace,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Heartbeat: HeartbeatConfig{
			Host:      "127.0.0.1",
			PortStart: defaultHeartbeatPortStart,
			PortEnd:   defaultHeartbeatPortEnd,
		},
	}
}

// DefaultSettingsPath returns the settings root from TOR_CONFIG_PATH,
// falling back to the working directory.
func DefaultSettingsPath() string {
	if val := strings.TrimSpace(os.Getenv(EnvSettingsPath)); val != "" {
		return val
	}
	return "."
}

// DefaultHandlerNamespaceFromEnv returns the handler namespace from
// TOR_ADMIN_COMMAND_PKG, falling back to DefaultHandlerNamespace.
func DefaultHandlerNamespaceFromEnv() string {
	if val := strings.TrimSpace(os.Getenv(EnvHandlerNamespace)); val != "" {
		return val
	}
	return DefaultHandlerNamespace
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by admin/operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvSettingsPath); val != "" {
		cfg.Settings.Path = val
	}
	if val := os.Getenv(EnvHandlerNamespace); val != "" {
		cfg.Settings.HandlerNamespace = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(EnvStoreURL); val != "" {
		cfg.Store.URL = val
	}
	if val := os.Getenv(EnvOTLPEndpoint); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv(EnvHeartbeatEnabled); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.Heartbeat.Enabled = enabled
		}
	}
}

// Validate performs validation of the entire configuration
func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings configuration: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}

	if err := c.Heartbeat.Validate(c.Store); err != nil {
		return fmt.Errorf("heartbeat configuration: %w", err)
	}

	return nil
}

// Validate performs validation of settings configuration
func (c *SettingsConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = DefaultSettingsPath()
	}
	if strings.TrimSpace(c.HandlerNamespace) == "" {
		c.HandlerNamespace = DefaultHandlerNamespaceFromEnv()
	}
	for i, attr := range c.ProtectedAttributes {
		if strings.TrimSpace(attr) == "" {
			return fmt.Errorf("%w: protected attribute %d is empty", domain.ErrConfigInvalid, i)
		}
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("%w: invalid log level %q, supported levels: debug, info, warn, error", domain.ErrConfigInvalid, c.Level)
	}
}

// Validate performs validation of heartbeat configuration. Port bookkeeping
// lives in the store, so an enabled heartbeat requires one.
func (c *HeartbeatConfig) Validate(store StoreConfig) error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(store.URL) == "" {
		return fmt.Errorf("%w: heartbeat requires a store url", domain.ErrConfigInvalid)
	}
	if c.PortStart <= 0 || c.PortEnd > 65535 || c.PortStart > c.PortEnd {
		return fmt.Errorf("%w: invalid heartbeat port range %d-%d", domain.ErrConfigInvalid, c.PortStart, c.PortEnd)
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = "127.0.0.1"
	}
	return nil
}
