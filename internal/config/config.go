// ABOUTME: Configuration loading and parsing for agentboard
// ABOUTME: Supports YAML files with environment variable expansion and built-in defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables honored by the loader.
const (
	// EnvConfig overrides the config file location.
	EnvConfig = "AGENTBOARD_CONFIG"

	// EnvDBPath overrides database.path, beating the config file.
	EnvDBPath = "AGENTBOARD_DB_PATH"
)

// Config represents the complete agentboard configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EventsConfig holds activity log configuration
type EventsConfig struct {
	// Capacity is the number of events kept in memory; older events are
	// evicted as new ones arrive.
	Capacity int `yaml:"capacity"`
}

// DashboardConfig holds web dashboard configuration
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration. Load unmarshals on top of it,
// so absent keys keep these values.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{HTTPAddr: "127.0.0.1:8845"},
		Database:  DatabaseConfig{Path: defaultDBPath()},
		Events:    EventsConfig{Capacity: 1000},
		Dashboard: DashboardConfig{Enabled: true},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns the config file location: $AGENTBOARD_CONFIG when set,
// otherwise <user config dir>/agentboard/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "agentboard", "config.yaml"), nil
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded, and
// keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Database.Path = expandHome(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Resolve returns the effective configuration: the file at the default path
// when it exists, the built-in defaults otherwise. Environment overrides
// apply either way.
func Resolve() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		applyEnvOverrides(cfg)
		cfg.Database.Path = expandHome(cfg.Database.Path)
		return cfg, nil
	}

	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides applies environment variables that beat file values.
func applyEnvOverrides(cfg *Config) {
	if p := os.Getenv(EnvDBPath); p != "" {
		cfg.Database.Path = p
	}
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// defaultDBPath places the database in the XDG data directory,
// falling back to ~/.local/share when XDG_DATA_HOME is unset.
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "agentboard.db"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "agentboard", "agentboard.db")
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var logFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Events.Capacity <= 0 {
		return fmt.Errorf("events.capacity must be positive, got %d", c.Events.Capacity)
	}

	if !logLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if !logFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// starterConfig is written by `agentboard init` as a documented starting point.
const starterConfig = `# agentboard configuration
# Values shown are the defaults; uncomment to change them.
# ${VAR} references are expanded from the environment at load time.

server:
  http_addr: "127.0.0.1:8845"

database:
  path: "~/.local/share/agentboard/agentboard.db"

events:
  # Number of activity events kept in memory for the feed.
  capacity: 1000

dashboard:
  enabled: true

logging:
  level: "info"    # debug, info, warn, error
  format: "text"   # text, json
`

// WriteStarter writes a commented starter config to path, creating parent
// directories as needed. Refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
