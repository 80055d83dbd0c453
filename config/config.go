// Package config provides configuration loading and validation for the
// validation service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aurabx/harmony-dsl/core/linker"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "harmony-dsl.yaml"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Schemas  SchemasConfig  `yaml:"schemas"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Audit    AuditConfig    `yaml:"audit"`
	Watch    WatchConfig    `yaml:"watch"`
	Registry RegistryConfig `yaml:"registry"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SchemasConfig selects where domain schemas come from.
type SchemasConfig struct {
	// Dir holds <domain>.toml files that replace the bundled schemas.
	// Empty means bundled only.
	Dir string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MemoryDSN keeps audited reports in process memory instead of SQLite.
const MemoryDSN = "memory"

// AuditConfig configures the report log.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// DSN is a SQLite database path, or MemoryDSN.
	DSN string `yaml:"dsn"`
}

// WatchConfig configures file re-validation.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// RegistryConfig lists reference names that are always known, by target.
// It covers names that live outside any validated document, e.g. service
// types provided by a module.
type RegistryConfig map[string][]string

// Resolver returns the static names as a linker registry.
func (r RegistryConfig) Resolver() *linker.Registry {
	return linker.FromMap(r)
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML text. ${VAR} references are
// expanded and HARMONY_* variables override file values.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	// Fields the file omits keep their defaults.
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv creates configuration from defaults and environment
// variables only.
//
// Environment variables:
//
//	HARMONY_SERVER_HOST           - Server host (default: 0.0.0.0)
//	HARMONY_SERVER_PORT           - Server port (default: 8686)
//	HARMONY_SERVER_READ_TIMEOUT   - Read timeout (default: 15s)
//	HARMONY_SERVER_WRITE_TIMEOUT  - Write timeout (default: 15s)
//	HARMONY_SERVER_MAX_BODY_BYTES - Largest accepted document (default: 1 MiB)
//	HARMONY_SCHEMAS_DIR           - Schema override directory
//	HARMONY_LOG_LEVEL             - Log level (default: info)
//	HARMONY_LOG_FORMAT            - json or console (default: json)
//	HARMONY_METRICS_ENABLED       - Serve metrics (default: true)
//	HARMONY_METRICS_PATH          - Metrics path (default: /metrics)
//	HARMONY_AUDIT_ENABLED         - Persist reports (default: false)
//	HARMONY_AUDIT_DSN             - SQLite path (default: harmony-dsl.db)
//	HARMONY_WATCH_DEBOUNCE        - Watch debounce (default: 200ms)
func LoadFromEnv() (*Config, error) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadWithFallback loads path when the file exists and otherwise builds the
// configuration from the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies HARMONY_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HARMONY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HARMONY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HARMONY_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("HARMONY_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if v := os.Getenv("HARMONY_SERVER_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}

	if v := os.Getenv("HARMONY_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}

	if v := os.Getenv("HARMONY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HARMONY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("HARMONY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("HARMONY_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("HARMONY_AUDIT_ENABLED"); v != "" {
		cfg.Audit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HARMONY_AUDIT_DSN"); v != "" {
		cfg.Audit.DSN = v
	}

	if v := os.Getenv("HARMONY_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Debounce = d
		}
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8686
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Audit.DSN == "" {
		cfg.Audit.DSN = "harmony-dsl.db"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", cfg.Server.MaxBodyBytes)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error; got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if cfg.Schemas.Dir != "" {
		info, err := os.Stat(cfg.Schemas.Dir)
		if err != nil {
			return fmt.Errorf("schemas.dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("schemas.dir %q is not a directory", cfg.Schemas.Dir)
		}
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	for target, names := range cfg.Registry {
		if target == "" {
			return fmt.Errorf("registry: empty target name")
		}
		for i, name := range names {
			if name == "" {
				return fmt.Errorf("registry.%s[%d] is empty", target, i)
			}
		}
	}

	return nil
}
