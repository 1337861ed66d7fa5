package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/filewallet/pkg/access"
	httpadapter "github.com/marmos91/filewallet/pkg/adapter/http"
	"github.com/marmos91/filewallet/pkg/sweep"
	"github.com/spf13/viper"
)

// Config represents the complete file wallet configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FILEWALLET_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each backend and store defines its own configuration type. Config holds
// the type-specific sections as maps (e.g. content.s3, metadata.redis) and
// only the section matching the selected type is decoded.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Content  ContentConfig  `mapstructure:"content"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Access   AccessConfig   `mapstructure:"access"`
	Sweep    sweep.Config   `mapstructure:"sweep"`
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path (rotated)
	Output string `mapstructure:"output" validate:"required"`

	// Rotation settings, only used for file output
	MaxSizeMB  int `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int `mapstructure:"max_age_days" validate:"min=0"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// AgentID identifies this deployment to the ACL service and in /status.
	AgentID string `mapstructure:"agent_id" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=0,max=65535"`
}

// ContentConfig selects the storage backend.
type ContentConfig struct {
	// Type specifies which backend to use
	// Valid values: filesystem, memory, s3, minio, ipfs
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3 minio ipfs"`

	Filesystem map[string]any `mapstructure:"filesystem"`
	Memory     map[string]any `mapstructure:"memory"`
	S3         map[string]any `mapstructure:"s3"`
	Minio      map[string]any `mapstructure:"minio"`
	IPFS       map[string]any `mapstructure:"ipfs"`
}

// MetadataConfig selects the metadata store.
type MetadataConfig struct {
	// Type specifies which store to use
	// Valid values: memory, badger, redis
	Type string `mapstructure:"type" validate:"required,oneof=memory badger redis"`

	Memory map[string]any `mapstructure:"memory"`
	Badger map[string]any `mapstructure:"badger"`
	Redis  map[string]any `mapstructure:"redis"`

	// Cache puts a read-through record cache in front of the store.
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig configures the record cache.
type CacheConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	TTL                time.Duration `mapstructure:"ttl" validate:"min=0"`
	MaxEntries         int           `mapstructure:"max_entries" validate:"min=0"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb" validate:"min=0"`
}

// AccessConfig selects how permissions are computed.
type AccessConfig struct {
	// Mode is one of:
	//   - open: every authenticated identity may edit, nobody is admin
	//   - level: graded levels from the ACL service (edit >= 2, admin >= 3)
	//   - whitelist: "upload" and "manage" lists
	Mode string `mapstructure:"mode" validate:"required,oneof=open level whitelist"`

	// ACL configures the ACL service client (mode level).
	ACL access.ACLClientConfig `mapstructure:"acl"`

	// Whitelist configures the lists (mode whitelist).
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
}

// WhitelistConfig configures whitelist permissions.
type WhitelistConfig struct {
	// Provider is "static" (lists below) or "redis" (SISMEMBER on
	// <key_prefix><list>).
	Provider string `mapstructure:"provider" validate:"required,oneof=static redis"`

	Upload []string `mapstructure:"upload"`
	Manage []string `mapstructure:"manage"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig locates a Redis server.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"min=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AdaptersConfig contains all transport adapter configurations.
type AdaptersConfig struct {
	HTTP httpadapter.HTTPConfig `mapstructure:"http"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location; a missing file there
// is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables and the config file search.
// Example: FILEWALLET_LOGGING_LEVEL=DEBUG
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("FILEWALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	// Default location: $XDG_CONFIG_HOME/filewallet/config.yaml
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/filewallet, ~/.config/filewallet,
// or "." when the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filewallet")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filewallet")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
