package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/filewallet/pkg/store/content"
)

// MemoryBackend implements content.Backend on an in-process map.
//
// It is meant for tests and ephemeral deployments: data is lost on restart.
// Values are copied on write and read so callers never share buffers with
// the store.
//
// Implemented Interfaces:
//   - content.Backend
//   - content.Lister
//
// Thread Safety:
// All operations are protected by a sync.RWMutex.
type MemoryBackend struct {
	data map[string][]byte

	// maxObjectBytes rejects larger writes with content.ErrTooLarge (0 = no limit).
	maxObjectBytes int64

	mu sync.RWMutex
}

// Config configures a MemoryBackend.
type Config struct {
	MaxObjectBytes int64 `mapstructure:"max_object_bytes"`
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(cfg Config) *MemoryBackend {
	return &MemoryBackend{
		data:           make(map[string][]byte),
		maxObjectBytes: cfg.MaxObjectBytes,
	}
}

func (m *MemoryBackend) Type() string { return "memory" }

func (m *MemoryBackend) Layout() content.Layout { return content.PathLayout{} }

func (m *MemoryBackend) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", content.ErrInvalidKey
	}
	if m.maxObjectBytes > 0 && int64(len(data)) > m.maxObjectBytes {
		return "", fmt.Errorf("write %s (%d bytes): %w", key, len(data), content.ErrTooLarge)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()

	return key, nil
}

func (m *MemoryBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("read %s: %w", key, content.ErrNotFound)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// List returns all keys with the given prefix in lexical order.
func (m *MemoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored objects.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
