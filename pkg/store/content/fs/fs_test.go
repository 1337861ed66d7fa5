package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	contenttesting "github.com/marmos91/filewallet/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *FSBackend {
	t.Helper()
	b, err := NewFSBackend(context.Background(), Config{Path: t.TempDir()})
	require.NoError(t, err)
	return b
}

func TestFSBackend(t *testing.T) {
	suite := &contenttesting.BackendTestSuite{
		NewBackend: func(t *testing.T) content.Backend {
			return newTestBackend(t)
		},
	}
	suite.Run(t)
}

func TestFSBackend_RequiresPath(t *testing.T) {
	_, err := NewFSBackend(context.Background(), Config{})
	assert.Error(t, err)
}

func TestFSBackend_NestedDirectories(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Write(ctx, "example.com/abc/report.pdf", []byte("pdf"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(b.BasePath(), "example.com", "abc"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Deleting the last object prunes the now-empty directories.
	require.NoError(t, b.Delete(ctx, "example.com/abc/report.pdf"))
	_, err = os.Stat(filepath.Join(b.BasePath(), "example.com"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(b.BasePath())
	assert.NoError(t, err)
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b", "a/./b", "a\\b", "a/.tmp-x"} {
		_, err := b.Write(ctx, key, []byte("x"))
		assert.ErrorIs(t, err, content.ErrInvalidKey, "key %q", key)
	}
}

func TestFSBackend_ListSkipsTempFiles(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Write(ctx, "example.com/docs/.folder", []byte("{}"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(b.BasePath(), "example.com", "docs", ".tmp-123"), []byte("partial"), 0o644))

	keys, err := b.List(ctx, "example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/docs/.folder"}, keys)
}
