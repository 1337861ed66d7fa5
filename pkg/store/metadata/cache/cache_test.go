package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/marmos91/filewallet/pkg/store/metadata/memory"
	metadatatesting "github.com/marmos91/filewallet/pkg/store/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts GetFile calls that reach the inner store.
type countingStore struct {
	metadata.Store
	gets atomic.Int64
}

func (c *countingStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	c.gets.Add(1)
	return c.Store.GetFile(ctx, domain, id)
}

// gatedStore parks GetFile for one id, after the inner read, until release
// is closed.
type gatedStore struct {
	metadata.Store
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	record, err := g.Store.GetFile(ctx, domain, id)
	if id == g.gated {
		close(g.entered)
		<-g.release
	}
	return record, err
}

func newGated(t *testing.T, id string) (*CachedStore, *gatedStore) {
	t.Helper()
	inner := &gatedStore{
		Store:   memory.NewMemoryMetadataStore(),
		gated:   id,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store, err := New(context.Background(), inner, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, inner
}

func newCounting(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	inner := &countingStore{Store: memory.NewMemoryMetadataStore()}
	store, err := New(context.Background(), inner, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, inner
}

func TestCachedStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			store, err := New(context.Background(), memory.NewMemoryMetadataStore(), Config{})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestCachedStore_ServesHitsFromCache(t *testing.T) {
	store, inner := newCounting(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, "example.com", metadatatesting.SampleRecord("abc", "")))

	for i := 0; i < 3; i++ {
		got, err := store.GetFile(ctx, "example.com", "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
	}

	assert.Equal(t, int64(1), inner.gets.Load())
	assert.Equal(t, int64(2), store.Stats().Hits)
}

func TestCachedStore_InvalidatesOnWrite(t *testing.T) {
	store, _ := newCounting(t)
	ctx := context.Background()

	record := metadatatesting.SampleRecord("abc", "")
	require.NoError(t, store.SaveFile(ctx, "example.com", record))
	_, err := store.GetFile(ctx, "example.com", "abc")
	require.NoError(t, err)

	updated := record.Clone()
	updated.Name = "new-name.pdf"
	require.NoError(t, store.SaveFile(ctx, "example.com", updated))

	got, err := store.GetFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	assert.Equal(t, "new-name.pdf", got.Name)

	removed, err := store.DeleteFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err = store.GetFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedStore_MissesAreNotCached(t *testing.T) {
	store, inner := newCounting(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := store.GetFile(ctx, "example.com", "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, int64(2), inner.gets.Load())
}

type hitCounter struct {
	hits, misses atomic.Int64
}

func (h *hitCounter) RecordCacheHit()  { h.hits.Add(1) }
func (h *hitCounter) RecordCacheMiss() { h.misses.Add(1) }

func TestCachedStore_Metrics(t *testing.T) {
	counter := &hitCounter{}
	store, err := New(context.Background(), memory.NewMemoryMetadataStore(), Config{Metrics: counter})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.SaveFile(ctx, "example.com", metadatatesting.SampleRecord("abc", "")))
	for i := 0; i < 3; i++ {
		_, err := store.GetFile(ctx, "example.com", "abc")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2), counter.hits.Load())
	assert.Equal(t, int64(1), counter.misses.Load())
}

func TestCachedStore_SlowMissDoesNotBlockOtherKeys(t *testing.T) {
	ctx := context.Background()
	const domain = "example.com"

	store, inner := newGated(t, "slow")

	fast := ""
	for i := 0; i < fillStripes; i++ {
		id := fmt.Sprintf("fast%d", i)
		if store.fillLock(cacheKey(domain, id)) != store.fillLock(cacheKey(domain, "slow")) {
			fast = id
			break
		}
	}
	require.NotEmpty(t, fast)

	require.NoError(t, store.SaveFile(ctx, domain, metadatatesting.SampleRecord("slow", "")))
	require.NoError(t, store.SaveFile(ctx, domain, metadatatesting.SampleRecord(fast, "")))

	slowDone := make(chan error, 1)
	go func() {
		_, err := store.GetFile(ctx, domain, "slow")
		slowDone <- err
	}()
	<-inner.entered

	fastDone := make(chan error, 1)
	go func() {
		got, err := store.GetFile(ctx, domain, fast)
		if err == nil && got == nil {
			err = fmt.Errorf("record %s not found", fast)
		}
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(inner.release)
		t.Fatal("miss on an unrelated key waited for the slow fill")
	}

	close(inner.release)
	require.NoError(t, <-slowDone)
}

func TestCachedStore_StaleFillIsNotReinserted(t *testing.T) {
	ctx := context.Background()
	store, inner := newGated(t, "abc")

	record := metadatatesting.SampleRecord("abc", "")
	require.NoError(t, store.SaveFile(ctx, "example.com", record))

	fillDone := make(chan error, 1)
	go func() {
		_, err := store.GetFile(ctx, "example.com", "abc")
		fillDone <- err
	}()
	<-inner.entered

	updated := record.Clone()
	updated.Name = "new-name.pdf"
	saveDone := make(chan error, 1)
	go func() { saveDone <- store.SaveFile(ctx, "example.com", updated) }()

	close(inner.release)
	require.NoError(t, <-fillDone)
	require.NoError(t, <-saveDone)

	got, err := store.GetFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new-name.pdf", got.Name)
}
