package config

import (
	"strings"
	"time"

	httpadapter "github.com/marmos91/filewallet/pkg/adapter/http"
	"github.com/marmos91/filewallet/pkg/sweep"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults and explicit values are preserved.
// Backend-specific defaults are handled by the backends themselves.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyContentDefaults(&cfg.Content)
	applyMetadataDefaults(&cfg.Metadata)
	applyAccessDefaults(&cfg.Access)
	applySweepDefaults(&cfg.Sweep)
	applyAdaptersDefaults(&cfg.Adapters)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 30
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.AgentID == "" {
		cfg.AgentID = "filewallet"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	// Present in every generated config file.
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/filewallet-content"
	}
	if _, ok := cfg.Memory["max_object_bytes"]; !ok {
		cfg.Memory["max_object_bytes"] = int64(0)
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
}

func applyAccessDefaults(cfg *AccessConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "whitelist"
	}
	if cfg.Whitelist.Provider == "" {
		cfg.Whitelist.Provider = "static"
	}
	if cfg.Whitelist.Upload == nil {
		cfg.Whitelist.Upload = []string{}
	}
	if cfg.Whitelist.Manage == nil {
		cfg.Whitelist.Manage = []string{}
	}
	if cfg.Whitelist.Redis.KeyPrefix == "" {
		cfg.Whitelist.Redis.KeyPrefix = "filewallet:whitelist:"
	}
	if cfg.ACL.Path == "" {
		cfg.ACL.Path = "/acl/check"
	}
	if cfg.ACL.Timeout == 0 {
		cfg.ACL.Timeout = 5 * time.Second
	}
}

func applySweepDefaults(cfg *sweep.Config) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
}

// applyAdaptersDefaults enables the HTTP adapter when it looks unconfigured
// (port 0), so a config without a file still serves.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	if !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}
	applyHTTPDefaults(&cfg.HTTP)
}

func applyHTTPDefaults(cfg *httpadapter.HTTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.IdentityHeader == "" {
		cfg.IdentityHeader = httpadapter.DefaultIdentityHeader
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = httpadapter.DefaultBodyLimit
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
