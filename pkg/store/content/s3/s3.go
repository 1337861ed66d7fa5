package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
)

// S3 allows at most 1000 keys per DeleteObjects request.
const maxDeleteBatch = 1000

// Client is the subset of *s3.Client used by the backend.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Backend implements content.Backend on Amazon S3 or a compatible service.
//
// A file occupies two objects: "<domain>/<id>.<ext>" for the bytes and
// "<domain>/<id>._i" for the record blob (see content.ObjectLayout). They are
// written as two separate requests; a failure of the second leaves the first
// in place, which the orphan sweeper later reclaims.
type S3Backend struct {
	client         Client
	bucket         string
	keyPrefix      string
	maxObjectBytes int64
}

// S3BackendConfig configures an S3Backend.
type S3BackendConfig struct {
	Client Client

	Bucket string

	// KeyPrefix is prepended to every key (e.g. "filewallet/").
	KeyPrefix string

	// MaxObjectBytes rejects larger writes with content.ErrTooLarge (0 = no limit).
	MaxObjectBytes int64
}

// NewS3Backend validates cfg and returns a backend. It performs no network
// calls; an unreachable bucket surfaces on first use.
func NewS3Backend(cfg S3BackendConfig) (*S3Backend, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	return &S3Backend{
		client:         cfg.Client,
		bucket:         cfg.Bucket,
		keyPrefix:      cfg.KeyPrefix,
		maxObjectBytes: cfg.MaxObjectBytes,
	}, nil
}

func (s *S3Backend) Type() string { return "s3" }

func (s *S3Backend) Layout() content.Layout { return content.ObjectLayout{} }

func (s *S3Backend) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *S3Backend) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", content.ErrInvalidKey
	}
	if s.maxObjectBytes > 0 && int64(len(data)) > s.maxObjectBytes {
		return "", fmt.Errorf("write %s (%d bytes): %w", key, len(data), content.ErrTooLarge)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", content.TransferError("write", key, err)
	}

	return key, nil
}

func (s *S3Backend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", key, content.ErrNotFound)
		}
		return nil, content.TransferError("read", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, content.TransferError("read", key, err)
	}
	return data, nil
}

func (s *S3Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// DeleteObject on a missing key succeeds on S3.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return content.TransferError("delete", key, err)
	}
	return nil
}

// DeleteMany removes keys in batches of up to 1000 per request. Per-key
// failures reported by S3 are joined into the returned error.
func (s *S3Backend) DeleteMany(ctx context.Context, keys []string) error {
	var errs []error

	for i := 0; i < len(keys); i += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		end := min(i+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			if key == "" {
				continue
			}
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(s.objectKey(key))})
		}
		if len(objects) == 0 {
			continue
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			errs = append(errs, content.TransferError("delete batch", fmt.Sprintf("[%d keys]", len(objects)), err))
			continue
		}

		for _, derr := range result.Errors {
			key := strings.TrimPrefix(aws.ToString(derr.Key), s.keyPrefix)
			if aws.ToString(derr.Code) == "NoSuchKey" {
				continue
			}
			errs = append(errs, fmt.Errorf("delete %s: %w: %s: %s", key, content.ErrTransferFailed,
				aws.ToString(derr.Code), aws.ToString(derr.Message)))
		}
	}

	if len(errs) > 0 {
		logger.Debug("S3 batch delete: %d of %d keys failed", len(errs), len(keys))
	}
	return errors.Join(errs...)
}

// List returns every key under prefix (without the backend key prefix).
func (s *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, content.TransferError("list", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix))
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
