package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/store/metadata"
	metadatatesting "github.com/marmos91/filewallet/pkg/store/metadata/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return NewMemoryMetadataStore()
		},
	}
	suite.Run(t)
}

func TestMemoryMetadataStore_UseAfterClose(t *testing.T) {
	store := NewMemoryMetadataStore()
	assert.NoError(t, store.Close())

	_, err := store.ReadIndex(context.Background(), "example.com")
	assert.True(t, metadata.IsCode(err, metadata.ErrClosed))
	assert.Error(t, store.Healthcheck(context.Background()))
}

type opRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *opRecorder) RecordOperation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		op += ":error"
	}
	r.ops = append(r.ops, op)
}

func TestInstrumentedStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return metadata.Instrument(NewMemoryMetadataStore(), &opRecorder{})
		},
	}
	suite.Run(t)
}

func TestInstrumentedStore_Records(t *testing.T) {
	rec := &opRecorder{}
	store := metadata.Instrument(NewMemoryMetadataStore(), rec)
	ctx := context.Background()

	_, err := store.ReadIndex(ctx, "example.com")
	require.NoError(t, err)
	require.NoError(t, store.SaveFile(ctx, "example.com", metadatatesting.SampleRecord("abc", "")))
	_, err = store.GetFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	_, err = store.DeleteFile(ctx, "example.com", "abc")
	require.NoError(t, err)
	_, err = store.GetFile(ctx, "", "abc")
	require.Error(t, err)

	assert.Equal(t, []string{"read_index", "save_file", "get_file", "delete_file", "get_file:error"}, rec.ops)
	assert.Same(t, store, metadata.Instrument(store, nil))
}
