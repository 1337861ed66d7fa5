package http

import (
	"fmt"
	"strings"
	"time"
)

// DefaultIdentityHeader carries the caller address set by the
// authenticating proxy in front of the adapter.
const DefaultIdentityHeader = "X-Identity-Address"

// DefaultBodyLimit caps buffered uploads (100 MiB).
const DefaultBodyLimit = 100 << 20

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	// Enabled controls whether the adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Host to bind to. Empty binds every interface.
	Host string `mapstructure:"host"`

	// Port to listen on. Default: 8080
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MountPrefix is prepended to every route ("" or e.g. "/files").
	MountPrefix string `mapstructure:"mount_prefix"`

	// IdentityHeader names the request header holding the authenticated
	// identity. A missing or empty header means an anonymous caller.
	IdentityHeader string `mapstructure:"identity_header"`

	// BodyLimit is the maximum request body size in bytes. Uploads are
	// buffered up to this size. Default: 100 MiB
	BodyLimit int `mapstructure:"body_limit" validate:"min=0"`

	// HideErrorDetails drops the details object from error responses.
	HideErrorDetails bool `mapstructure:"hide_error_details"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown. Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// RateLimit throttles mutating requests per identity.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-identity token buckets for uploads,
// deletes and folder changes. RequestsPerSecond 0 disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`
}

func (c *HTTPConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.IdentityHeader == "" {
		c.IdentityHeader = DefaultIdentityHeader
	}
	if c.BodyLimit <= 0 {
		c.BodyLimit = DefaultBodyLimit
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerSecond
	}
	c.MountPrefix = normalizePrefix(c.MountPrefix)
}

func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if strings.ContainsAny(c.MountPrefix, "?#: ") {
		return fmt.Errorf("invalid mount prefix %q", c.MountPrefix)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// normalizePrefix returns "" or "/a/b" without a trailing slash.
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func (c *HTTPConfig) address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
