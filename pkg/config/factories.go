package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/registry"
	"github.com/marmos91/filewallet/pkg/store/content"
	contentFs "github.com/marmos91/filewallet/pkg/store/content/fs"
	contentIPFS "github.com/marmos91/filewallet/pkg/store/content/ipfs"
	contentMemory "github.com/marmos91/filewallet/pkg/store/content/memory"
	contentMinio "github.com/marmos91/filewallet/pkg/store/content/minio"
	contentS3 "github.com/marmos91/filewallet/pkg/store/content/s3"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/marmos91/filewallet/pkg/store/metadata/badger"
	"github.com/marmos91/filewallet/pkg/store/metadata/cache"
	metaMemory "github.com/marmos91/filewallet/pkg/store/metadata/memory"
	metaRedis "github.com/marmos91/filewallet/pkg/store/metadata/redis"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
)

// decodeOptions decodes a type-specific config section into out. Durations
// may be written as strings ("30s").
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// ============================================================================
// Content backends
// ============================================================================

// CreateBackendFactory returns the registry factory for the configured
// backend.
//
// Options are decoded and checked up front so configuration mistakes fail
// at startup. Backends that contact a server on construction (minio) are
// built on first use instead: an unreachable server then surfaces as a
// failed upload rather than a crashed process, and construction is retried
// on the next request.
//
// Supported types:
//   - "filesystem": pkg/store/content/fs
//   - "memory": pkg/store/content/memory (ephemeral)
//   - "s3": pkg/store/content/s3 (Amazon S3 or compatible)
//   - "minio": pkg/store/content/minio
//   - "ipfs": pkg/store/content/ipfs
//
// Every domain shares one backend; keys are domain scoped by its layout.
func CreateBackendFactory(ctx context.Context, cfg *ContentConfig) (registry.Factory, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemBackend(ctx, cfg.Filesystem)
	case "memory":
		return createMemoryBackend(cfg.Memory)
	case "s3":
		return createS3Backend(ctx, cfg.S3)
	case "minio":
		return createMinioBackend(cfg.Minio)
	case "ipfs":
		return createIPFSBackend(cfg.IPFS)
	default:
		return nil, fmt.Errorf("unknown content backend type: %q", cfg.Type)
	}
}

func createFilesystemBackend(ctx context.Context, options map[string]any) (registry.Factory, error) {
	var backendCfg contentFs.Config
	if err := decodeOptions(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backend config: %w", err)
	}
	if backendCfg.Path == "" {
		return nil, fmt.Errorf("filesystem backend: path is required")
	}

	backend, err := contentFs.NewFSBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
	}

	logger.Info("Filesystem backend initialized: path=%s", backendCfg.Path)
	return registry.Shared(backend), nil
}

func createMemoryBackend(options map[string]any) (registry.Factory, error) {
	var backendCfg contentMemory.Config
	if err := decodeOptions(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory backend config: %w", err)
	}

	logger.Warn("Memory backend initialized: uploaded files are lost on restart")
	return registry.Shared(contentMemory.NewMemoryBackend(backendCfg)), nil
}

// S3BackendOptions is the content.s3 section.
type S3BackendOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxObjectBytes  int64  `mapstructure:"max_object_bytes"`

	// MaxAttempts bounds SDK retries per request (default 1: no retry).
	MaxAttempts int `mapstructure:"max_attempts"`
}

func createS3Backend(ctx context.Context, options map[string]any) (registry.Factory, error) {
	var opts S3BackendOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backend config: %w", err)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 backend: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 backend: region is required")
	}

	client, err := NewS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	backend, err := contentS3.NewS3Backend(contentS3.S3BackendConfig{
		Client:         client,
		Bucket:         opts.Bucket,
		KeyPrefix:      opts.KeyPrefix,
		MaxObjectBytes: opts.MaxObjectBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	logger.Info("S3 backend initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)
	return registry.Shared(backend), nil
}

// NewS3Client builds an S3 client from opts. A custom endpoint (MinIO,
// Localstack) switches to path-style addressing.
func NewS3Client(ctx context.Context, opts S3BackendOptions) (*s3.Client, error) {
	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}

	// Static credentials when given, otherwise the default credential chain.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func createMinioBackend(options map[string]any) (registry.Factory, error) {
	var backendCfg contentMinio.Config
	if err := decodeOptions(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode minio backend config: %w", err)
	}
	if backendCfg.Endpoint == "" {
		return nil, fmt.Errorf("minio backend: endpoint is required")
	}
	if backendCfg.Bucket == "" {
		return nil, fmt.Errorf("minio backend: bucket is required")
	}

	logger.Info("MinIO backend configured: endpoint=%s, bucket=%s (connects on first use)",
		backendCfg.Endpoint, backendCfg.Bucket)

	return lazyShared(func(ctx context.Context) (content.Backend, error) {
		backend, err := contentMinio.NewMinioBackend(ctx, backendCfg)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}), nil
}

func createIPFSBackend(options map[string]any) (registry.Factory, error) {
	var backendCfg contentIPFS.Config
	if err := decodeOptions(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode ipfs backend config: %w", err)
	}
	if backendCfg.APIURL == "" {
		logger.Warn("IPFS backend has no api_url: uploads will fail as unavailable")
	}

	logger.Info("IPFS backend initialized: api=%s, gateway=%s", backendCfg.APIURL, backendCfg.GatewayURL)
	return registry.Shared(contentIPFS.NewIPFSBackend(backendCfg)), nil
}

// lazyShared builds one backend on first use and hands it to every domain.
// A failed build is not remembered.
func lazyShared(build func(ctx context.Context) (content.Backend, error)) registry.Factory {
	var (
		mu      sync.Mutex
		backend content.Backend
	)
	return func(ctx context.Context, _ string) (content.Backend, error) {
		mu.Lock()
		defer mu.Unlock()

		if backend != nil {
			return backend, nil
		}
		b, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", content.ErrUnavailable, err)
		}
		backend = b
		return backend, nil
	}
}

// ============================================================================
// Metadata store
// ============================================================================

// StoreMetrics are the optional collectors wired into the metadata store.
type StoreMetrics struct {
	Store metadata.Metrics
	Cache cache.Metrics
}

// CreateMetadataStore creates the configured metadata store, instrumented
// when m.Store is set and wrapped by the record cache when enabled.
//
// Supported types:
//   - "memory": pkg/store/metadata/memory (ephemeral)
//   - "badger": pkg/store/metadata/badger
//   - "redis": pkg/store/metadata/redis
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig, m StoreMetrics) (metadata.Store, error) {
	var (
		store metadata.Store
		err   error
	)

	switch cfg.Type {
	case "memory":
		store = metaMemory.NewMemoryMetadataStore()
		logger.Warn("Memory metadata store initialized: records are lost on restart")
	case "badger":
		store, err = createBadgerMetadataStore(ctx, cfg.Badger)
	case "redis":
		store, err = createRedisMetadataStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	store = metadata.Instrument(store, m.Store)

	if !cfg.Cache.Enabled {
		return store, nil
	}

	cached, err := cache.New(ctx, store, cache.Config{
		TTL:                cfg.Cache.TTL,
		MaxEntries:         cfg.Cache.MaxEntries,
		HardMaxCacheSizeMB: cfg.Cache.HardMaxCacheSizeMB,
		Metrics:            m.Cache,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	logger.Info("Metadata record cache enabled: ttl=%s max_entries=%d", cfg.Cache.TTL, cfg.Cache.MaxEntries)
	return cached, nil
}

func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	var storeCfg badger.BadgerMetadataStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
	}
	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.NewBadgerMetadataStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	logger.Info("BadgerDB metadata store initialized: path=%s", storeCfg.DBPath)
	return store, nil
}

func createRedisMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	var storeCfg metaRedis.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode redis metadata store config: %w", err)
	}
	if storeCfg.Addr == "" {
		return nil, fmt.Errorf("redis metadata store: addr is required")
	}

	store, err := metaRedis.NewRedisMetadataStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis metadata store: %w", err)
	}

	logger.Info("Redis metadata store initialized: addr=%s db=%d", storeCfg.Addr, storeCfg.DB)
	return store, nil
}

// ============================================================================
// Permission gate
// ============================================================================

// CreateGate builds the configured permission gate. The returned close
// function releases connections held by the gate and is never nil.
func CreateGate(cfg *Config) (access.Gate, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Access.Mode {
	case "open":
		logger.Warn("Access mode open: every authenticated identity may upload")
		return access.OpenGate{}, noop, nil

	case "level":
		client, err := access.NewACLClient(cfg.Access.ACL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create ACL client: %w", err)
		}
		logger.Info("Access mode level: ACL service at %s", cfg.Access.ACL.Endpoint)
		return access.NewLevelGate(client, cfg.Server.AgentID), noop, nil

	case "whitelist":
		return createWhitelistGate(&cfg.Access.Whitelist)

	default:
		return nil, nil, fmt.Errorf("unknown access mode: %q", cfg.Access.Mode)
	}
}

func createWhitelistGate(cfg *WhitelistConfig) (access.Gate, func() error, error) {
	switch cfg.Provider {
	case "static":
		lists := access.NewStaticLists(map[string][]string{
			access.ListUpload: cfg.Upload,
			access.ListManage: cfg.Manage,
		})
		logger.Info("Access mode whitelist: %d uploader(s), %d manager(s)", len(cfg.Upload), len(cfg.Manage))
		return access.NewListGate(lists), func() error { return nil }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("Access mode whitelist: redis lists at %s (prefix %q)", cfg.Redis.Addr, cfg.Redis.KeyPrefix)
		return access.NewListGate(access.NewRedisLists(client, cfg.Redis.KeyPrefix)), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown whitelist provider: %q", cfg.Provider)
	}
}
