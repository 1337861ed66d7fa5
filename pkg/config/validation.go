package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules checks rules that depend on more than one field.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.Adapters.HTTP.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by the http adapter", cfg.Server.Metrics.Port)
	}

	switch cfg.Access.Mode {
	case "level":
		if strings.TrimSpace(cfg.Access.ACL.Endpoint) == "" {
			return fmt.Errorf("access.acl.endpoint: required when access.mode is level")
		}
	case "whitelist":
		if cfg.Access.Whitelist.Provider == "redis" && cfg.Access.Whitelist.Redis.Addr == "" {
			return fmt.Errorf("access.whitelist.redis.addr: required when the whitelist provider is redis")
		}
	}

	if cfg.Sweep.Enabled && cfg.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval: must be > 0 when the sweeper is enabled")
	}

	return nil
}

// formatValidationError returns the first validator failure with its
// field path.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
