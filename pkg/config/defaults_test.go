package config

import (
	"testing"
	"time"

	httpadapter "github.com/marmos91/filewallet/pkg/adapter/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, "filewallet", cfg.Server.AgentID)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 9090, cfg.Server.Metrics.Port)

	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.Equal(t, "/tmp/filewallet-content", cfg.Content.Filesystem["path"])
	assert.Equal(t, "memory", cfg.Metadata.Type)
	assert.Equal(t, 5*time.Minute, cfg.Metadata.Cache.TTL)

	assert.Equal(t, "whitelist", cfg.Access.Mode)
	assert.Equal(t, "static", cfg.Access.Whitelist.Provider)
	assert.Equal(t, "/acl/check", cfg.Access.ACL.Path)

	assert.Equal(t, 24*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 500, cfg.Sweep.BatchSize)

	assert.True(t, cfg.Adapters.HTTP.Enabled)
	assert.Equal(t, 8080, cfg.Adapters.HTTP.Port)
	assert.Equal(t, httpadapter.DefaultIdentityHeader, cfg.Adapters.HTTP.IdentityHeader)
	assert.Equal(t, httpadapter.DefaultBodyLimit, cfg.Adapters.HTTP.BodyLimit)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json"},
		Content: ContentConfig{Type: "s3", Filesystem: map[string]any{"path": "/data"}},
		Access:  AccessConfig{Mode: "open"},
		Adapters: AdaptersConfig{HTTP: httpadapter.HTTPConfig{
			Port:           9000,
			IdentityHeader: "X-User",
		}},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "s3", cfg.Content.Type)
	assert.Equal(t, "/data", cfg.Content.Filesystem["path"])
	assert.Equal(t, "open", cfg.Access.Mode)
	assert.Equal(t, 9000, cfg.Adapters.HTTP.Port)
	assert.Equal(t, "X-User", cfg.Adapters.HTTP.IdentityHeader)
}

func TestApplyDefaults_HTTPExplicitlyDisabled(t *testing.T) {
	cfg := &Config{Adapters: AdaptersConfig{HTTP: httpadapter.HTTPConfig{Port: 8080}}}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Adapters.HTTP.Enabled)
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}
