package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "debug"
  format: "json"

server:
  agent_id: "agent-7"
  metrics:
    enabled: true
    port: 9191

content:
  type: "memory"

metadata:
  type: "memory"
  cache:
    enabled: true
    ttl: "1m"

access:
  mode: "whitelist"
  whitelist:
    upload: ["0xABC"]
    manage: ["0xadmin"]

adapters:
  http:
    enabled: true
    port: 8181
    mount_prefix: "/files"
    rate_limit:
      requests_per_second: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Server.AgentID != "agent-7" {
		t.Errorf("Expected agent-7, got %q", cfg.Server.AgentID)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected memory content, got %q", cfg.Content.Type)
	}
	if !cfg.Metadata.Cache.Enabled || cfg.Metadata.Cache.TTL != time.Minute {
		t.Errorf("Unexpected cache config: %+v", cfg.Metadata.Cache)
	}
	if len(cfg.Access.Whitelist.Upload) != 1 || cfg.Access.Whitelist.Upload[0] != "0xABC" {
		t.Errorf("Unexpected upload list: %v", cfg.Access.Whitelist.Upload)
	}
	if cfg.Adapters.HTTP.Port != 8181 || cfg.Adapters.HTTP.MountPrefix != "/files" {
		t.Errorf("Unexpected http config: %+v", cfg.Adapters.HTTP)
	}
	if cfg.Adapters.HTTP.RateLimit.RequestsPerSecond != 5 {
		t.Errorf("Expected 5 rps, got %d", cfg.Adapters.HTTP.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without config file failed: %v", err)
	}
	if cfg.Content.Type != "filesystem" {
		t.Errorf("Expected default content type filesystem, got %q", cfg.Content.Type)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled by default")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
content:
  type: "floppy"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unknown content type")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("FILEWALLET_LOGGING_LEVEL", "ERROR")
	t.Setenv("FILEWALLET_ADAPTERS_HTTP_PORT", "5080")

	path := writeConfig(t, `
logging:
  level: "INFO"

adapters:
  http:
    enabled: true
    port: 8080
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 5080 {
		t.Errorf("Expected port 5080 from env var, got %d", cfg.Adapters.HTTP.Port)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "filewallet", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if ConfigExists() {
		t.Error("Expected no config at a fresh location")
	}
}
