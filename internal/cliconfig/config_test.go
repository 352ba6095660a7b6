// ABOUTME: Tests for CLI configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, durations, and validation

package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  base_url: "https://eu.dust.tt"
  workspace_id: "wksp_abc123"
  api_key: "sk-test-key"
  timeout: "45s"

chat:
  username: "ada"
  agent: "helper"
  timezone: "Europe/Paris"

history:
  disabled: false
  path: "./chat-history.db"

logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify API config with duration parsing
	if cfg.API.BaseURL != "https://eu.dust.tt" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://eu.dust.tt")
	}
	if cfg.API.WorkspaceID != "wksp_abc123" {
		t.Errorf("API.WorkspaceID = %q, want %q", cfg.API.WorkspaceID, "wksp_abc123")
	}
	if cfg.API.APIKey != "sk-test-key" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "sk-test-key")
	}
	if cfg.API.Timeout != 45*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 45*time.Second)
	}

	// Verify chat defaults
	if cfg.Chat.Username != "ada" {
		t.Errorf("Chat.Username = %q, want %q", cfg.Chat.Username, "ada")
	}
	if cfg.Chat.Agent != "helper" {
		t.Errorf("Chat.Agent = %q, want %q", cfg.Chat.Agent, "helper")
	}
	if cfg.Chat.Timezone != "Europe/Paris" {
		t.Errorf("Chat.Timezone = %q, want %q", cfg.Chat.Timezone, "Europe/Paris")
	}

	// Verify history config
	if cfg.History.Disabled {
		t.Error("History.Disabled = true, want false")
	}
	if cfg.History.Path != "./chat-history.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "./chat-history.db")
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	// Set environment variables for testing
	t.Setenv("TEST_DUST_WORKSPACE", "wksp_from_env")
	t.Setenv("TEST_DUST_API_KEY", "sk-from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  workspace_id: "${TEST_DUST_WORKSPACE}"
  api_key: "${TEST_DUST_API_KEY}"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify env var expansion
	if cfg.API.WorkspaceID != "wksp_from_env" {
		t.Errorf("API.WorkspaceID = %q, want %q", cfg.API.WorkspaceID, "wksp_from_env")
	}
	if cfg.API.APIKey != "sk-from-env" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "sk-from-env")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	// Ensure the env var is NOT set; the credential expands to empty and
	// validation rejects the config.
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  workspace_id: "wksp_abc123"
  api_key: "${UNSET_VAR_FOR_TEST}"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Fatal("Load() succeeded with an empty credential, want error")
	}
	if !strings.Contains(err.Error(), "api.api_key or api.access_token") {
		t.Errorf("Load() error = %v, want credential validation message", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() succeeded on a missing file, want error")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api:
  workspace_id: "wksp_abc123"
  api_key: "sk-test"
  timeout: "whenever"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Fatal("Load() succeeded with a bad duration, want error")
	}
	if !strings.Contains(err.Error(), "parsing durations") {
		t.Errorf("Load() error = %v, want duration parsing message", err)
	}
}

func TestValidate_MissingWorkspace(t *testing.T) {
	cfg := &Config{}
	cfg.API.APIKey = "sk-test"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded without a workspace, want error")
	}
	if !strings.Contains(err.Error(), "api.workspace_id") {
		t.Errorf("Validate() error = %v, want workspace message", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{}
	cfg.API.WorkspaceID = "wksp_abc123"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded without credentials, want error")
	}
}

func TestValidate_AccessTokenOnly(t *testing.T) {
	cfg := &Config{}
	cfg.API.WorkspaceID = "wksp_abc123"
	cfg.API.AccessToken = "oauth-token"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestClientConfig(t *testing.T) {
	cfg := &Config{}
	cfg.API.BaseURL = "https://eu.dust.tt"
	cfg.API.WorkspaceID = "wksp_abc123"
	cfg.API.APIKey = "sk-test"
	cfg.API.Timeout = 30 * time.Second

	clientCfg := cfg.ClientConfig()

	if clientCfg.BaseURL != "https://eu.dust.tt" {
		t.Errorf("BaseURL = %q, want %q", clientCfg.BaseURL, "https://eu.dust.tt")
	}
	if clientCfg.WorkspaceID != "wksp_abc123" {
		t.Errorf("WorkspaceID = %q, want %q", clientCfg.WorkspaceID, "wksp_abc123")
	}
	if clientCfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", clientCfg.APIKey, "sk-test")
	}
	if clientCfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want %v", clientCfg.Timeout, 30*time.Second)
	}
}

func TestHistoryPath(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		cfg := &Config{}
		cfg.History.Path = "/tmp/custom-history.db"

		path, err := cfg.HistoryPath()
		if err != nil {
			t.Fatalf("HistoryPath() error = %v", err)
		}
		if path != "/tmp/custom-history.db" {
			t.Errorf("HistoryPath() = %q, want %q", path, "/tmp/custom-history.db")
		}
	})

	t.Run("xdg data home fallback", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		cfg := &Config{}
		path, err := cfg.HistoryPath()
		if err != nil {
			t.Fatalf("HistoryPath() error = %v", err)
		}
		want := filepath.Join("/tmp/xdg-data", "dust", "history.db")
		if path != want {
			t.Errorf("HistoryPath() = %q, want %q", path, want)
		}
	})
}
