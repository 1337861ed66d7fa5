package testing

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BackendTestSuite checks the content.Backend contract. It is reused by every
// implementation (memory, filesystem, S3, MinIO, IPFS).
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &testing.BackendTestSuite{
//	        NewBackend: func(t *testing.T) content.Backend {
//	            return mybackend.New(...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend creates a fresh backend for each test.
	NewBackend func(t *testing.T) content.Backend

	// EventualDelete skips read-after-delete checks for media where
	// unpinned content may still be served for a while.
	EventualDelete bool
}

// Run executes all tests in the suite.
func (suite *BackendTestSuite) Run(t *testing.T) {
	t.Run("Write_ReadBack", suite.testWriteReadBack)
	t.Run("Write_Empty", suite.testWriteEmpty)
	t.Run("Write_Large", suite.testWriteLarge)
	t.Run("Write_LayoutKeys", suite.testWriteLayoutKeys)
	t.Run("Read_NotFound", suite.testReadNotFound)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
	t.Run("DeleteMany", suite.testDeleteMany)
	t.Run("List", suite.testList)
	t.Run("CancelledContext", suite.testCancelledContext)
}

func testContext() context.Context {
	return context.Background()
}

func mustWrite(t *testing.T, b content.Backend, key string, data []byte) string {
	t.Helper()
	loc, err := b.Write(testContext(), key, data)
	require.NoError(t, err)
	require.NotEmpty(t, loc)
	return loc
}

func (suite *BackendTestSuite) testWriteReadBack(t *testing.T) {
	b := suite.NewBackend(t)
	data := []byte("Hello, World!")

	loc := mustWrite(t, b, "example.com/abc/hello.txt", data)

	got, err := b.Read(testContext(), loc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// The returned buffer belongs to the caller.
	got[0] = 'X'
	again, err := b.Read(testContext(), loc)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func (suite *BackendTestSuite) testWriteEmpty(t *testing.T) {
	b := suite.NewBackend(t)

	loc := mustWrite(t, b, "example.com/abc/empty.bin", []byte{})

	got, err := b.Read(testContext(), loc)
	require.NoError(t, err)
	assert.Len(t, got, 0)
}

func (suite *BackendTestSuite) testWriteLarge(t *testing.T) {
	b := suite.NewBackend(t)
	data := make([]byte, 1<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)

	loc := mustWrite(t, b, "example.com/big/blob.bin", data)

	got, err := b.Read(testContext(), loc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func (suite *BackendTestSuite) testWriteLayoutKeys(t *testing.T) {
	b := suite.NewBackend(t)
	keys := b.Layout().FileKeys("example.com", "0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f", "photo.jpg")

	rawLoc := mustWrite(t, b, keys.Raw, []byte("raw bytes"))
	metaLoc := mustWrite(t, b, keys.Meta, []byte(`{"id":"0f0f"}`))

	raw, err := b.Read(testContext(), rawLoc)
	require.NoError(t, err)
	meta, err := b.Read(testContext(), metaLoc)
	require.NoError(t, err)

	assert.Equal(t, "raw bytes", string(raw))
	assert.Equal(t, `{"id":"0f0f"}`, string(meta))
}

func (suite *BackendTestSuite) testReadNotFound(t *testing.T) {
	b := suite.NewBackend(t)

	_, err := b.Read(testContext(), "example.com/missing/nothing.bin")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *BackendTestSuite) testDeleteIdempotent(t *testing.T) {
	b := suite.NewBackend(t)

	require.NoError(t, b.Delete(testContext(), "example.com/never/written.bin"))

	loc := mustWrite(t, b, "example.com/del/file.txt", []byte("bye"))
	require.NoError(t, b.Delete(testContext(), loc))
	require.NoError(t, b.Delete(testContext(), loc))

	if suite.EventualDelete {
		return
	}
	_, err := b.Read(testContext(), loc)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *BackendTestSuite) testDeleteMany(t *testing.T) {
	b := suite.NewBackend(t)

	locs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		locs = append(locs, mustWrite(t, b, fmt.Sprintf("example.com/many/%d.txt", i), []byte{byte(i)}))
	}
	locs = append(locs, "example.com/many/absent.txt")

	require.NoError(t, b.DeleteMany(testContext(), locs))

	if suite.EventualDelete {
		return
	}
	for _, loc := range locs[:3] {
		_, err := b.Read(testContext(), loc)
		assert.ErrorIs(t, err, content.ErrNotFound)
	}
}

func (suite *BackendTestSuite) testList(t *testing.T) {
	b := suite.NewBackend(t)
	lister, ok := b.(content.Lister)
	if !ok {
		t.Skip("backend does not implement content.Lister")
	}

	mustWrite(t, b, "a.com/docs/.folder", []byte("{}"))
	mustWrite(t, b, "a.com/x/file.txt", []byte("1"))
	mustWrite(t, b, "b.com/x/file.txt", []byte("2"))

	keys, err := lister.List(testContext(), "a.com/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.com/docs/.folder", "a.com/x/file.txt"}, keys)

	keys, err = lister.List(testContext(), "c.com/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func (suite *BackendTestSuite) testCancelledContext(t *testing.T) {
	b := suite.NewBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Write(ctx, "example.com/ctx/file.txt", []byte("x"))
	assert.Error(t, err)
}
