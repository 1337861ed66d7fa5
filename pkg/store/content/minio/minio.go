// Package minio implements content.Backend on a MinIO server with the
// native minio-go client.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const codeNoSuchKey = "NoSuchKey"

// Config defines the connection options for a MinIO backend.
type Config struct {
	// Endpoint is the MinIO server address (e.g. "localhost:9000").
	Endpoint string `mapstructure:"endpoint"`

	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	// Bucket holds every object of every domain.
	Bucket string `mapstructure:"bucket"`

	// KeyPrefix is prepended to every object key.
	KeyPrefix string `mapstructure:"key_prefix"`

	Region string `mapstructure:"region"`

	// UseSSL enables HTTPS to the MinIO server.
	UseSSL bool `mapstructure:"use_ssl"`

	// CreateBucket makes the bucket on startup when it does not exist.
	CreateBucket bool `mapstructure:"create_bucket"`

	// MaxObjectBytes rejects larger writes with content.ErrTooLarge (0 = no limit).
	MaxObjectBytes int64 `mapstructure:"max_object_bytes"`
}

// MinioBackend stores objects in a MinIO bucket using content.ObjectLayout.
type MinioBackend struct {
	client         *minio.Client
	bucket         string
	keyPrefix      string
	maxObjectBytes int64
}

// NewMinioBackend creates the client and, when cfg.CreateBucket is set,
// ensures the bucket exists. An empty endpoint or bucket is reported as
// content.ErrUnavailable.
func NewMinioBackend(ctx context.Context, cfg Config) (*MinioBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio backend: endpoint is required: %w", content.ErrUnavailable)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio backend: bucket is required: %w", content.ErrUnavailable)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio backend: create client: %w", err)
	}

	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("minio backend: check bucket %q: %w", cfg.Bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("minio backend: create bucket %q: %w", cfg.Bucket, err)
			}
			logger.Info("Created MinIO bucket %s", cfg.Bucket)
		}
	}

	return &MinioBackend{
		client:         client,
		bucket:         cfg.Bucket,
		keyPrefix:      cfg.KeyPrefix,
		maxObjectBytes: cfg.MaxObjectBytes,
	}, nil
}

func (m *MinioBackend) Type() string { return "minio" }

func (m *MinioBackend) Layout() content.Layout { return content.ObjectLayout{} }

func (m *MinioBackend) objectKey(key string) string {
	return m.keyPrefix + key
}

func (m *MinioBackend) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", content.ErrInvalidKey
	}
	if m.maxObjectBytes > 0 && int64(len(data)) > m.maxObjectBytes {
		return "", fmt.Errorf("write %s (%d bytes): %w", key, len(data), content.ErrTooLarge)
	}

	_, err := m.client.PutObject(ctx, m.bucket, m.objectKey(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "EntityTooLarge" {
			return "", fmt.Errorf("write %s: %w", key, content.ErrTooLarge)
		}
		return "", content.TransferError("write", key, err)
	}
	return key, nil
}

func (m *MinioBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// GetObject is lazy: a missing key surfaces on the first read.
	obj, err := m.client.GetObject(ctx, m.bucket, m.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, m.readError(key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.readError(key, err)
	}
	return data, nil
}

func (m *MinioBackend) readError(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("read %s: %w", key, content.ErrNotFound)
	}
	return content.TransferError("read", key, err)
}

func (m *MinioBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.client.RemoveObject(ctx, m.bucket, m.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return content.TransferError("delete", key, err)
	}
	return nil
}

// DeleteMany streams keys to the multi-object delete API and joins the
// per-key failures it reports.
func (m *MinioBackend) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, key := range keys {
			if key == "" {
				continue
			}
			select {
			case objectsCh <- minio.ObjectInfo{Key: m.objectKey(key)}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err == nil || isNotFound(rerr.Err) {
			continue
		}
		key := strings.TrimPrefix(rerr.ObjectName, m.keyPrefix)
		errs = append(errs, content.TransferError("delete", key, rerr.Err))
	}

	if len(errs) > 0 {
		logger.Debug("MinIO batch delete: %d of %d keys failed", len(errs), len(keys))
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// List returns every key under prefix (without the backend key prefix).
func (m *MinioBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.objectKey(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, content.TransferError("list", prefix, obj.Err)
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, m.keyPrefix))
	}
	return keys, nil
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == codeNoSuchKey
}
