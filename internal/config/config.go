// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Favicon    FaviconConfig    `yaml:"favicon"`
	Export     ExportConfig     `yaml:"export"`
	Database   DatabaseConfig   `yaml:"database"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type FaviconConfig struct {
	// Endpoint is the favicon-rendering service, without query.
	Endpoint string `yaml:"endpoint"`
}

type ExportConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
	OutputDir string        `yaml:"output_dir"` // used by favgrab-fetch
	TTL       time.Duration `yaml:"ttl"`        // how long a pending export waits for its download
}

type DatabaseConfig struct {
	Path            string        `yaml:"path"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads filename, fills in defaults and validates the result. A missing
// file is not an error: the defaults are used as-is.
func Load(filename string) (*Config, error) {
	config, err := loadConfigFile(filename)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = &Config{}
	}

	setDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Default returns a validated configuration built only from defaults.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Favicon.Endpoint == "" {
		cfg.Favicon.Endpoint = "https://www.google.com/s2/favicons"
	}

	// Export defaults
	if cfg.Export.Timeout == 0 {
		cfg.Export.Timeout = 30 * time.Second
	}
	if cfg.Export.MaxBytes == 0 {
		cfg.Export.MaxBytes = 4 << 20
	}
	if cfg.Export.UserAgent == "" {
		cfg.Export.UserAgent = "favgrab/1.0"
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "."
	}
	if cfg.Export.TTL == 0 {
		cfg.Export.TTL = 10 * time.Minute
	}

	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/favgrab.db"
	}
	if cfg.Database.CleanupInterval == 0 {
		cfg.Database.CleanupInterval = 5 * time.Minute
	}

	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if !strings.Contains(cfg.Server.Port, ":") {
		return fmt.Errorf("server.port must be a listen address such as :8000")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}
	// The write timeout bounds the direct download handler, which waits on
	// a whole export.
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Export.Timeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed export.timeout (%s)", cfg.Server.WriteTimeout, cfg.Export.Timeout)
	}

	if !isValidURL(cfg.Favicon.Endpoint) {
		return fmt.Errorf("favicon.endpoint must be an absolute http(s) URL without query")
	}

	if cfg.Export.Timeout < 0 {
		return fmt.Errorf("export.timeout must be positive")
	}
	if cfg.Export.MaxBytes < 0 {
		return fmt.Errorf("export.max_bytes must be positive")
	}
	if cfg.Export.TTL < time.Second {
		return fmt.Errorf("export.ttl must be at least 1s")
	}

	if cfg.Database.CleanupInterval < time.Second {
		return fmt.Errorf("database.cleanup_interval must be at least 1s")
	}

	if !strings.HasPrefix(cfg.Prometheus.MetricsPath, "/") {
		return fmt.Errorf("prometheus.metrics_path must start with /")
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	return nil
}

// isValidURL checks if a string is an absolute http(s) URL with no query
func isValidURL(str string) bool {
	u, err := url.Parse(str)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" && u.RawQuery == "" && u.Fragment == ""
}
