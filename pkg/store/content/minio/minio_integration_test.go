//go:build integration
// +build integration

package minio

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	contenttesting "github.com/marmos91/filewallet/pkg/store/content/testing"
)

// TestMinioBackend_Integration runs the backend suite against a MinIO server.
//
// Prerequisites:
//
//	docker run --rm -p 9000:9000 minio/minio server /data
//	MINIO_ENDPOINT=localhost:9000 go test -tags=integration ./pkg/store/content/minio/...
func TestMinioBackend_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	n := 0
	suite := &contenttesting.BackendTestSuite{
		NewBackend: func(t *testing.T) content.Backend {
			n++
			b, err := NewMinioBackend(context.Background(), Config{
				Endpoint:     endpoint,
				AccessKey:    envOr("MINIO_ACCESS_KEY", "minioadmin"),
				SecretKey:    envOr("MINIO_SECRET_KEY", "minioadmin"),
				Bucket:       "filewallet-test",
				KeyPrefix:    fmt.Sprintf("suite-%d/", n),
				CreateBucket: true,
			})
			if err != nil {
				t.Fatalf("Failed to create MinIO backend: %v", err)
			}
			return b
		},
	}
	suite.Run(t)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
