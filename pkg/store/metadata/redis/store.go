// Package redis implements metadata.Store on a Redis server, for
// deployments that run several filewallet processes against shared state.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/redis/go-redis/v9"
)

// Key layout (all under KeyPrefix):
//
//	<prefix>idx:<domain>       string  Index (JSON)
//	<prefix>f:<domain>:<id>    string  FileRecord (JSON)
//	<prefix>domains            set     domains with a saved Index

// Config configures the Redis connection.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// KeyPrefix namespaces every key (default "filewallet:").
	KeyPrefix string `mapstructure:"key_prefix"`

	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RedisMetadataStore implements metadata.Store with go-redis. The client is
// safe for concurrent use, so the store holds no locks.
type RedisMetadataStore struct {
	client *redis.Client
	prefix string
}

// NewRedisMetadataStore connects to Redis and verifies the connection with
// a PING.
func NewRedisMetadataStore(ctx context.Context, cfg Config) (*RedisMetadataStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, cfg.KeyPrefix), nil
}

// NewFromClient wraps an existing client. The store takes ownership and
// closes it on Close.
func NewFromClient(client *redis.Client, keyPrefix string) *RedisMetadataStore {
	if keyPrefix == "" {
		keyPrefix = "filewallet:"
	}
	return &RedisMetadataStore{client: client, prefix: keyPrefix}
}

// Client exposes the underlying client so other components (the redis
// whitelist provider) can share the connection pool.
func (s *RedisMetadataStore) Client() *redis.Client { return s.client }

func (s *RedisMetadataStore) keyIndex(domain string) string {
	return s.prefix + "idx:" + domain
}

func (s *RedisMetadataStore) keyFile(domain, id string) string {
	return s.prefix + "f:" + domain + ":" + id
}

func (s *RedisMetadataStore) keyDomains() string {
	return s.prefix + "domains"
}

func ioError(domain, op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return metadata.NewError(metadata.ErrClosed, domain, op, err)
	}
	return metadata.NewError(metadata.ErrIOError, domain, op, err)
}

func (s *RedisMetadataStore) ReadIndex(ctx context.Context, domain string) (*metadata.Index, error) {
	if err := metadata.ValidateDomain(domain); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.keyIndex(domain)).Bytes()
	if err == redis.Nil {
		return metadata.NewIndex(), nil
	}
	if err != nil {
		return nil, ioError(domain, "failed to read index", err)
	}
	return metadata.DecodeIndex(domain, data)
}

// SaveIndex writes the index and registers the domain in one MULTI/EXEC.
func (s *RedisMetadataStore) SaveIndex(ctx context.Context, domain string, index *metadata.Index) error {
	if err := metadata.ValidateDomain(domain); err != nil {
		return err
	}

	data, err := metadata.EncodeIndex(index)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode index", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keyIndex(domain), data, 0)
		pipe.SAdd(ctx, s.keyDomains(), domain)
		return nil
	})
	if err != nil {
		return ioError(domain, "failed to save index", err)
	}
	return nil
}

func (s *RedisMetadataStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.keyFile(domain, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, ioError(domain, "failed to read file record", err)
	}
	return metadata.DecodeFile(domain, data)
}

func (s *RedisMetadataStore) SaveFile(ctx context.Context, domain string, record *metadata.FileRecord) error {
	if err := metadata.ValidateRecord(domain, record); err != nil {
		return err
	}

	data, err := metadata.EncodeFile(record)
	if err != nil {
		return metadata.NewError(metadata.ErrInvalidArgument, domain, "failed to encode file record", err)
	}

	if err := s.client.Set(ctx, s.keyFile(domain, record.ID), data, 0).Err(); err != nil {
		return ioError(domain, "failed to save file record", err)
	}
	return nil
}

func (s *RedisMetadataStore) DeleteFile(ctx context.Context, domain, id string) (bool, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return false, err
	}

	n, err := s.client.Del(ctx, s.keyFile(domain, id)).Result()
	if err != nil {
		return false, ioError(domain, "failed to delete file record", err)
	}
	return n > 0, nil
}

func (s *RedisMetadataStore) Domains(ctx context.Context) ([]string, error) {
	domains, err := s.client.SMembers(ctx, s.keyDomains()).Result()
	if err != nil {
		return nil, ioError("", "failed to list domains", err)
	}
	return domains, nil
}

func (s *RedisMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ioError("", "healthcheck failed", err)
	}
	return nil
}

func (s *RedisMetadataStore) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
