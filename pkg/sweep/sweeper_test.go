package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/registry"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/content/memory"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	metamemory "github.com/marmos91/filewallet/pkg/store/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orphan = "example.com/0123456789abcdef0123456789abcdef/lost.bin"

type env struct {
	backend  *memory.MemoryBackend
	store    metadata.Store
	backends *registry.Registry
	record   *metadata.FileRecord
}

// newEnv uploads one file and creates one folder on example.com, then
// writes an unreferenced object next to them.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	backend := memory.NewMemoryBackend(memory.Config{})
	store := metamemory.NewMemoryMetadataStore()
	backends := registry.NewRegistry(registry.Shared(backend))

	svc, err := files.New(files.Config{Backends: backends, Store: store, Gate: access.OpenGate{}})
	require.NoError(t, err)

	caller := files.Caller{Identity: "0xabc", Hostname: "example.com"}
	record, err := svc.Upload(ctx, caller, files.UploadInput{Data: []byte("hello"), Name: "a.txt"})
	require.NoError(t, err)
	_, err = svc.CreateFolder(ctx, caller, "docs", "")
	require.NoError(t, err)

	_, err = backend.Write(ctx, orphan, []byte("partial"))
	require.NoError(t, err)

	return &env{backend: backend, store: store, backends: backends, record: record}
}

func (e *env) exists(t *testing.T, key string) bool {
	t.Helper()
	_, err := e.backend.Read(context.Background(), key)
	return err == nil
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, Config{})
	assert.Error(t, err)
}

func TestRunNow_Immediate(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{Immediate: true})
	require.NoError(t, err)

	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Domains)
	assert.Equal(t, uint64(2), stats.ReferencedCount)
	assert.Equal(t, uint64(4), stats.ExistingCount)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)

	assert.False(t, e.exists(t, orphan))
	for _, loc := range e.record.Locators() {
		assert.True(t, e.exists(t, loc), loc)
	}
	marker, _ := content.PathLayout{}.FolderMarker("example.com", "docs")
	assert.True(t, e.exists(t, marker))
}

func TestRunNow_RequiresTwoPasses(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{})
	require.NoError(t, err)

	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.DeferredCount)
	assert.Zero(t, stats.DeletedCount)
	assert.True(t, e.exists(t, orphan))

	stats, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.False(t, e.exists(t, orphan))
}

func TestRunNow_AdoptedKeyIsKept(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{})
	require.NoError(t, err)

	_, err = s.RunNow(context.Background())
	require.NoError(t, err)

	// The key becomes referenced before the confirming pass.
	ctx := context.Background()
	record := &metadata.FileRecord{ID: "0123456789abcdef0123456789abcdef", Name: "lost.bin", StorageKey: orphan}
	require.NoError(t, e.store.SaveFile(ctx, "example.com", record))
	index, err := e.store.ReadIndex(ctx, "example.com")
	require.NoError(t, err)
	index.Put(record.ID, "")
	require.NoError(t, e.store.SaveIndex(ctx, "example.com", index))

	stats, err := s.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.OrphanedCount)
	assert.True(t, e.exists(t, orphan))
}

func TestRunNow_DryRun(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{DryRun: true, Immediate: true})
	require.NoError(t, err)

	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Zero(t, stats.DeletedCount)
	assert.True(t, e.exists(t, orphan))
}

type opaqueBackend struct {
	content.Backend
}

func TestRunNow_SkipsUnlistableBackends(t *testing.T) {
	e := newEnv(t)
	backends := registry.NewRegistry(registry.Shared(opaqueBackend{Backend: e.backend}))
	s, err := New(e.store, backends, Config{Immediate: true})
	require.NoError(t, err)

	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Domains)
	assert.True(t, e.exists(t, orphan))
}

func TestStartStop(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{Enabled: true, Interval: 10 * time.Millisecond, Immediate: true})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return !e.exists(t, orphan) }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestStop_Disabled(t *testing.T) {
	e := newEnv(t)
	s, err := New(e.store, e.backends, Config{})
	require.NoError(t, err)

	s.Start()
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStats_Summary(t *testing.T) {
	start := time.Now()
	s := &Stats{StartTime: start, EndTime: start.Add(time.Second), DeletedCount: 2}
	assert.Equal(t, time.Second, s.Duration())
	assert.Contains(t, s.Summary(), "deleted=2")
}
