package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"lowercase level", func(c *Config) { c.Logging.Level = "debug" }, ""},
		{"invalid level", func(c *Config) { c.Logging.Level = "TRACE" }, "Level"},
		{"invalid format", func(c *Config) { c.Logging.Format = "xml" }, "Format"},
		{"invalid content type", func(c *Config) { c.Content.Type = "floppy" }, "Content.Type"},
		{"invalid metadata type", func(c *Config) { c.Metadata.Type = "postgres" }, "Metadata.Type"},
		{"invalid access mode", func(c *Config) { c.Access.Mode = "anyone" }, "Access.Mode"},
		{"invalid http port", func(c *Config) { c.Adapters.HTTP.Port = 70000 }, "Port"},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "ShutdownTimeout"},
		{"no adapters", func(c *Config) { c.Adapters.HTTP.Enabled = false }, "at least one adapter"},
		{"level mode without endpoint", func(c *Config) { c.Access.Mode = "level" }, "access.acl.endpoint"},
		{"redis lists without addr", func(c *Config) { c.Access.Whitelist.Provider = "redis" }, "access.whitelist.redis.addr"},
		{"metrics port clash", func(c *Config) {
			c.Server.Metrics.Enabled = true
			c.Server.Metrics.Port = c.Adapters.HTTP.Port
		}, "server.metrics.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
