package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// InitConfig writes a commented sample configuration to the default
// location and returns its path. An existing file is only replaced when
// force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var sampleTemplate = template.Must(template.New("config").Parse(`# File Wallet Configuration File
#
# Every value can be overridden with an environment variable:
# FILEWALLET_<SECTION>_<KEY>, e.g. FILEWALLET_LOGGING_LEVEL=DEBUG

logging:
  # DEBUG, INFO, WARN or ERROR
  level: "{{.Logging.Level}}"
  # text or json
  format: "{{.Logging.Format}}"
  # stdout, stderr or a file path (rotated)
  output: "{{.Logging.Output}}"
  max_size_mb: {{.Logging.MaxSizeMB}}
  max_backups: {{.Logging.MaxBackups}}
  max_age_days: {{.Logging.MaxAgeDays}}

server:
  # Identifies this deployment to the ACL service and in /status
  agent_id: "{{.Server.AgentID}}"
  shutdown_timeout: "{{.Server.ShutdownTimeout}}"
  metrics:
    enabled: {{.Server.Metrics.Enabled}}
    port: {{.Server.Metrics.Port}}

content:
  # filesystem, memory, s3, minio or ipfs
  type: "{{.Content.Type}}"
  filesystem:
    path: "{{index .Content.Filesystem "path"}}"
  memory:
    # 0 means no per-object limit
    max_object_bytes: 0
  # s3:
  #   region: "us-east-1"
  #   bucket: "filewallet"
  #   key_prefix: ""
  #   endpoint: ""
  #   access_key_id: ""
  #   secret_access_key: ""
  #   max_attempts: 1
  # minio:
  #   endpoint: "localhost:9000"
  #   access_key: ""
  #   secret_key: ""
  #   bucket: "filewallet"
  #   use_ssl: false
  #   create_bucket: true
  # ipfs:
  #   api_url: "http://127.0.0.1:5001"
  #   gateway_url: ""
  #   timeout: "60s"

metadata:
  # memory, badger or redis
  type: "{{.Metadata.Type}}"
  # badger:
  #   db_path: "/var/lib/filewallet/metadata"
  # redis:
  #   addr: "localhost:6379"
  #   key_prefix: "filewallet:"
  cache:
    enabled: {{.Metadata.Cache.Enabled}}
    ttl: "{{.Metadata.Cache.TTL}}"
    max_entries: {{.Metadata.Cache.MaxEntries}}

access:
  # open, level or whitelist
  mode: "{{.Access.Mode}}"
  acl:
    endpoint: ""
    path: "{{.Access.ACL.Path}}"
    timeout: "{{.Access.ACL.Timeout}}"
  whitelist:
    # static or redis
    provider: "{{.Access.Whitelist.Provider}}"
    # Identity addresses allowed to upload and create folders
    upload: []
    # Identity addresses allowed to delete folders and any file
    manage: []
    redis:
      addr: ""
      key_prefix: "{{.Access.Whitelist.Redis.KeyPrefix}}"

sweep:
  # Periodically remove backend objects no file record references
  enabled: {{.Sweep.Enabled}}
  interval: "{{.Sweep.Interval}}"
  batch_size: {{.Sweep.BatchSize}}
  dry_run: {{.Sweep.DryRun}}

adapters:
  http:
    enabled: {{.Adapters.HTTP.Enabled}}
    host: "{{.Adapters.HTTP.Host}}"
    port: {{.Adapters.HTTP.Port}}
    mount_prefix: "{{.Adapters.HTTP.MountPrefix}}"
    # Header set by the authenticating proxy
    identity_header: "{{.Adapters.HTTP.IdentityHeader}}"
    body_limit: {{.Adapters.HTTP.BodyLimit}}
    hide_error_details: {{.Adapters.HTTP.HideErrorDetails}}
    read_timeout: "{{.Adapters.HTTP.ReadTimeout}}"
    write_timeout: "{{.Adapters.HTTP.WriteTimeout}}"
    idle_timeout: "{{.Adapters.HTTP.IdleTimeout}}"
    shutdown_timeout: "{{.Adapters.HTTP.ShutdownTimeout}}"
    rate_limit:
      # 0 disables per-identity limiting of mutating requests
      requests_per_second: {{.Adapters.HTTP.RateLimit.RequestsPerSecond}}
      burst: {{.Adapters.HTTP.RateLimit.Burst}}
`))

func generateYAMLWithComments(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := sampleTemplate.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to render sample config: %w", err)
	}
	return buf.Bytes(), nil
}
