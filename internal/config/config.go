// Package config handles loading, parsing, and validating application configuration.
// It defines the structure for configuration settings, provides default values,
// loads settings from YAML files, applies overrides from environment variables
// and, as a last resort, fills the weather API key from the OS keyring.
// file: internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"gopkg.in/yaml.v3"
)

// ServerConfig contains settings specific to the MCP HTTP listener.
type ServerConfig struct {
	// Name and Version identify the server to MCP clients.
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Port is the TCP port the listener binds.
	Port int `yaml:"port" env:"PORT"`
	// Path is the single route the MCP endpoint is mounted on.
	Path string `yaml:"path" env:"MCP_PATH"`
	// ShutdownTimeout bounds graceful shutdown after a termination signal.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// WeatherConfig contains settings for the OpenWeatherMap client.
type WeatherConfig struct {
	// APIKey is required by the getWeather tool; its absence fails the tool
	// call, not startup.
	APIKey  string `yaml:"api_key" env:"WEATHER_API_KEY"`
	BaseURL string `yaml:"base_url" env:"WEATHER_API_URL"`
	// Timeout for the outbound call. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" env:"WEATHER_API_TIMEOUT"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Address of the metrics listener, e.g. ":9090". Empty disables it.
	Address string `yaml:"address" env:"METRICS_ADDRESS"`
}

// LoggingConfig controls the log level.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Weather WeatherConfig `yaml:"weather"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`

	// APIKeySource records where Weather.APIKey came from, for diagnostics.
	APIKeySource string `yaml:"-"`
}

// KeySource supplies the weather API key when neither file nor environment does.
type KeySource interface {
	LoadAPIKey() (string, error)
}

// Default values.
const (
	DefaultServerName      = "weather-mcp-server"
	DefaultServerVersion   = "0.0.1"
	DefaultPort            = 3000
	DefaultPath            = "/mcp"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultWeatherBaseURL  = "https://api.openweathermap.org"
)

// DefaultConfig returns a configuration populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            DefaultServerName,
			Version:         DefaultServerVersion,
			Port:            DefaultPort,
			Path:            DefaultPath,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Weather: WeatherConfig{
			BaseURL: DefaultWeatherBaseURL,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Options controls Load.
type Options struct {
	// Path of a YAML file; empty means defaults only. Supports '~' expansion.
	Path string
	// Environment overrides the process environment (tests). Nil uses os.Environ.
	Environment map[string]string
	// Keys is consulted only when no API key was configured elsewhere.
	Keys KeySource
}

// Load builds the configuration: defaults, then the YAML file, then
// environment variables, then the key source for a still-missing API key.
func Load(opts Options) (*Config, error) {
	logger := logging.GetLogger("config")
	cfg := DefaultConfig()
	cfg.APIKeySource = "unset"

	if opts.Path != "" {
		path, err := ExpandPath(opts.Path)
		if err != nil {
			return nil, err
		}
		// #nosec G304 -- Path comes from a command-line flag.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file: %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
		}
		if cfg.Weather.APIKey != "" {
			cfg.APIKeySource = "config file"
		}
		logger.Debug("Configuration file loaded.", "path", path)
	}

	before := cfg.Weather.APIKey
	envOpts := env.Options{}
	if opts.Environment != nil {
		envOpts.Environment = opts.Environment
	}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment overrides")
	}
	if cfg.Weather.APIKey != before {
		cfg.APIKeySource = "environment variable"
	}

	if cfg.Weather.APIKey == "" && opts.Keys != nil {
		key, err := opts.Keys.LoadAPIKey()
		switch {
		case err != nil:
			logger.Warn("Could not read weather API key from keyring.", "error", err)
		case key != "":
			cfg.Weather.APIKey = key
			cfg.APIKeySource = "keyring"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Weather API key source determined.", "source", cfg.APIKeySource)
	if cfg.Weather.APIKey == "" {
		logger.Warn("WEATHER_API_KEY is not configured; the getWeather tool will fail until it is set.")
	}
	return cfg, nil
}

// Validate checks settings that would make the listener unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("invalid server port %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return errors.Newf("server path %q must start with '/'", c.Server.Path)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.Newf("shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Weather.Timeout < 0 {
		return errors.Newf("weather timeout must not be negative, got %s", c.Weather.Timeout)
	}
	return nil
}

// Address returns the listen address as ":port".
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// ExpandPath expands ~ in paths to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(home, path[1:]), nil
}
