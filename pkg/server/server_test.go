package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/registry"
	"github.com/marmos91/filewallet/pkg/store/content/memory"
	metamemory "github.com/marmos91/filewallet/pkg/store/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	protocol string
	port     int
	serveErr error

	mu      sync.Mutex
	svc     *files.Service
	stopped chan struct{}
	once    sync.Once
	stops   *[]string
}

func newFakeAdapter(protocol string, port int, stops *[]string) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stopped: make(chan struct{}), stops: stops}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeAdapter) SetService(svc *files.Service) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.svc = svc
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.once.Do(func() {
		if f.stops != nil {
			*f.stops = append(*f.stops, f.protocol)
		}
		close(f.stopped)
	})
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func newService(t *testing.T) *files.Service {
	t.Helper()
	backend := memory.NewMemoryBackend(memory.Config{})
	svc, err := files.New(files.Config{
		Backends: registry.NewRegistry(registry.Shared(backend)),
		Store:    metamemory.NewMemoryMetadataStore(),
		Gate:     access.OpenGate{},
	})
	require.NoError(t, err)
	return svc
}

func TestNew_NilServicePanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestAddAdapter(t *testing.T) {
	svc := newService(t)
	s := New(svc)

	a := newFakeAdapter("HTTP", 8080, nil)
	require.NoError(t, s.AddAdapter(a))
	assert.Same(t, svc, a.svc)

	assert.Error(t, s.AddAdapter(newFakeAdapter("HTTP", 8081, nil)), "duplicate protocol")
	assert.Error(t, s.AddAdapter(newFakeAdapter("GRPC", 8080, nil)), "port conflict")
	assert.Len(t, s.Adapters(), 1)
}

func TestServe_NoAdapters(t *testing.T) {
	s := New(newService(t))
	assert.Error(t, s.Serve(context.Background()))
}

func TestServe_CancelStopsInReverseOrder(t *testing.T) {
	var stops []string
	s := New(newService(t))
	require.NoError(t, s.AddAdapter(newFakeAdapter("A", 1, &stops)))
	require.NoError(t, s.AddAdapter(newFakeAdapter("B", 2, &stops)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, []string{"B", "A"}, stops)

	assert.ErrorIs(t, s.Serve(context.Background()), ErrAlreadyServed)
	assert.Panics(t, func() { _ = s.AddAdapter(newFakeAdapter("C", 3, nil)) })
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	var stops []string
	s := New(newService(t))

	healthy := newFakeAdapter("A", 1, &stops)
	broken := newFakeAdapter("B", 2, &stops)
	broken.serveErr = errors.New("bind: address in use")
	require.NoError(t, s.AddAdapter(healthy))
	require.NoError(t, s.AddAdapter(broken))

	err := s.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B adapter error")
	assert.Contains(t, stops, "A")
}
