// ABOUTME: Configuration loading for the dust command line tools
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/dust-go"
)

// Config represents the complete CLI configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Chat    ChatConfig    `yaml:"chat"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds Dust API connection settings
type APIConfig struct {
	BaseURL     string `yaml:"base_url"`
	WorkspaceID string `yaml:"workspace_id"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// ChatConfig holds defaults for interactive chats
type ChatConfig struct {
	Username string `yaml:"username"`
	Agent    string `yaml:"agent"`
	Timezone string `yaml:"timezone"`
}

// HistoryConfig holds local chat history settings
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultPath returns the default config file location under the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(dir, "dust", "config.yaml"), nil
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
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

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.WorkspaceID == "" {
		return fmt.Errorf("api.workspace_id is required")
	}

	if c.API.APIKey == "" && c.API.AccessToken == "" {
		return fmt.Errorf("api.api_key or api.access_token is required")
	}

	return nil
}

// ClientConfig converts the file settings into a dust.Config.
func (c *Config) ClientConfig() dust.Config {
	return dust.Config{
		BaseURL:     c.API.BaseURL,
		WorkspaceID: c.API.WorkspaceID,
		APIKey:      c.API.APIKey,
		AccessToken: c.API.AccessToken,
		Timeout:     c.API.Timeout,
	}
}

// HistoryPath returns the configured history database path, falling back
// to the user data directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "dust", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "dust", "history.db"), nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	return nil
}
