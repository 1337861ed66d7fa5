package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingBackend struct {
	*memory.MemoryBackend
	closed atomic.Int32
}

func (c *closingBackend) Close() error {
	c.closed.Add(1)
	return nil
}

func TestRegistry_MemoizesPerDomain(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(func(ctx context.Context, domain string) (content.Backend, error) {
		calls.Add(1)
		return memory.NewMemoryBackend(memory.Config{}), nil
	})

	a1, err := reg.Backend(context.Background(), "a.com")
	require.NoError(t, err)
	a2, err := reg.Backend(context.Background(), "a.com")
	require.NoError(t, err)
	b, err := reg.Backend(context.Background(), "b.com")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"a.com", "b.com"}, reg.Domains())
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(func(ctx context.Context, domain string) (content.Backend, error) {
		calls.Add(1)
		return memory.NewMemoryBackend(memory.Config{}), nil
	})

	const n = 32
	results := make([]content.Backend, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := reg.Backend(context.Background(), "example.com")
			assert.NoError(t, err)
			results[i] = b
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestRegistry_FailureNotCached(t *testing.T) {
	fail := true
	reg := NewRegistry(func(ctx context.Context, domain string) (content.Backend, error) {
		if fail {
			return nil, content.ErrUnavailable
		}
		return memory.NewMemoryBackend(memory.Config{}), nil
	})

	_, err := reg.Backend(context.Background(), "example.com")
	assert.ErrorIs(t, err, content.ErrUnavailable)
	assert.Empty(t, reg.Domains())

	fail = false
	b, err := reg.Backend(context.Background(), "example.com")
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestRegistry_NilBackendIsUnavailable(t *testing.T) {
	reg := NewRegistry(func(context.Context, string) (content.Backend, error) { return nil, nil })

	_, err := reg.Backend(context.Background(), "example.com")
	assert.ErrorIs(t, err, content.ErrUnavailable)
}

func TestRegistry_EmptyDomain(t *testing.T) {
	reg := NewRegistry(Shared(memory.NewMemoryBackend(memory.Config{})))
	_, err := reg.Backend(context.Background(), "")
	assert.Error(t, err)
}

func TestRegistry_CloseSharedBackendOnce(t *testing.T) {
	shared := &closingBackend{MemoryBackend: memory.NewMemoryBackend(memory.Config{})}
	reg := NewRegistry(Shared(shared))

	for _, d := range []string{"a.com", "b.com", "c.com"} {
		_, err := reg.Backend(context.Background(), d)
		require.NoError(t, err)
	}

	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())
	assert.Equal(t, int32(1), shared.closed.Load())

	_, err := reg.Backend(context.Background(), "a.com")
	assert.Error(t, err)
}

func TestShared(t *testing.T) {
	b := memory.NewMemoryBackend(memory.Config{})
	got, err := Shared(b)(context.Background(), "any")
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.False(t, errors.Is(err, content.ErrUnavailable))
}
