package minio

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinioBackend_Unconfigured(t *testing.T) {
	ctx := context.Background()

	_, err := NewMinioBackend(ctx, Config{Bucket: "wallet"})
	assert.ErrorIs(t, err, content.ErrUnavailable)

	_, err = NewMinioBackend(ctx, Config{Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, content.ErrUnavailable)
}

func TestNewMinioBackend_NoNetworkWithoutCreateBucket(t *testing.T) {
	b, err := NewMinioBackend(context.Background(), Config{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "wallet",
		KeyPrefix: "fw/",
	})
	require.NoError(t, err)

	assert.Equal(t, "minio", b.Type())
	assert.Equal(t, "object", b.Layout().Name())
	assert.Equal(t, "fw/example.com/a.txt", b.objectKey("example.com/a.txt"))
}

func TestIsNotFound(t *testing.T) {
	noSuchKey := minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

	assert.True(t, isNotFound(noSuchKey))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("dial tcp: connection refused")))
}

func TestReadErrorMapping(t *testing.T) {
	b := &MinioBackend{}

	err := b.readError("k", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, content.ErrNotFound)

	err = b.readError("k", fmt.Errorf("unexpected EOF"))
	assert.ErrorIs(t, err, content.ErrTransferFailed)
}

func TestWrite_MaxObjectBytes(t *testing.T) {
	b := &MinioBackend{maxObjectBytes: 1}

	_, err := b.Write(context.Background(), "k", []byte("ab"))
	assert.ErrorIs(t, err, content.ErrTooLarge)
}
