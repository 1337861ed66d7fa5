package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	metadatatesting "github.com/marmos91/filewallet/pkg/store/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisMetadataStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisMetadataStore(context.Background(), Config{Addr: mr.Addr(), KeyPrefix: "fw:"})
	require.NoError(t, err)
	return store, mr
}

func TestRedisMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, _ := newTestStore(t)
			return store
		},
	}
	suite.Run(t)
}

func TestRedisMetadataStore_KeyLayout(t *testing.T) {
	store, mr := newTestStore(t)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, "example.com", metadatatesting.SampleRecord("abc", "")))
	require.NoError(t, store.SaveIndex(ctx, "example.com", metadata.NewIndex()))

	assert.True(t, mr.Exists("fw:f:example.com:abc"))
	assert.True(t, mr.Exists("fw:idx:example.com"))

	members, err := mr.Members("fw:domains")
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, members)
}

func TestRedisMetadataStore_CorruptValue(t *testing.T) {
	store, mr := newTestStore(t)
	defer func() { _ = store.Close() }()

	require.NoError(t, mr.Set("fw:f:example.com:abc", "{truncated"))

	_, err := store.GetFile(context.Background(), "example.com", "abc")
	assert.True(t, metadata.IsCode(err, metadata.ErrCorrupt), "got %v", err)
}

func TestRedisMetadataStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	defer func() { _ = store.Close() }()
	mr.Close()

	_, err := store.ReadIndex(context.Background(), "example.com")
	assert.True(t, metadata.IsCode(err, metadata.ErrIOError), "got %v", err)
	assert.Error(t, store.Healthcheck(context.Background()))
}

func TestNewRedisMetadataStore_Unreachable(t *testing.T) {
	_, err := NewRedisMetadataStore(context.Background(), Config{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisMetadataStore(context.Background(), Config{Addr: addr})
	assert.Error(t, err)
}
