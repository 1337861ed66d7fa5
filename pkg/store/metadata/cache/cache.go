// Package cache provides a read-through cache in front of a metadata.Store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/metadata"
)

// Config configures the record cache.
type Config struct {
	// TTL bounds how long a record stays cached (default 5m).
	TTL time.Duration `mapstructure:"ttl"`

	// MaxEntries sizes the cache for the expected number of hot records
	// (default 10000).
	MaxEntries int `mapstructure:"max_entries"`

	// HardMaxCacheSizeMB caps memory use (0 = unbounded).
	HardMaxCacheSizeMB int `mapstructure:"hard_max_cache_size_mb"`

	// Metrics receives hit and miss counts. Optional.
	Metrics Metrics `mapstructure:"-"`
}

// Metrics observes cache effectiveness.
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit()  {}
func (noopMetrics) RecordCacheMiss() {}

// CachedStore decorates a metadata.Store with a bigcache of encoded
// FileRecords.
//
// Only GetFile is served from the cache. The Index is read on every call
// because it changes on every upload and delete. SaveFile and DeleteFile
// write through to the inner store and then drop the cached entry.
//
// Absent records are not cached, so a record saved by another process
// becomes visible at once; a record changed by another process is visible
// after at most TTL.
type CachedStore struct {
	inner   metadata.Store
	cache   *bigcache.BigCache
	metrics Metrics

	// fillMu orders cache fills against invalidations of the same key, so a
	// fill that read the inner store before a concurrent SaveFile cannot
	// re-insert the stale value. Keys are striped across the locks.
	fillMu [fillStripes]sync.Mutex
}

const fillStripes = 64

func (s *CachedStore) fillLock(key string) *sync.Mutex {
	return &s.fillMu[xxhash.Sum64String(key)%fillStripes]
}

// New wraps inner.
func New(ctx context.Context, inner metadata.Store, cfg Config) (*CachedStore, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	bcfg := bigcache.DefaultConfig(ttl)
	bcfg.Shards = 64
	bcfg.MaxEntriesInWindow = maxEntries
	bcfg.MaxEntrySize = 1024
	bcfg.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	bcfg.CleanWindow = ttl / 2
	bcfg.Verbose = false

	c, err := bigcache.New(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &CachedStore{inner: inner, cache: c, metrics: m}, nil
}

func cacheKey(domain, id string) string {
	return domain + ":" + id
}

func (s *CachedStore) ReadIndex(ctx context.Context, domain string) (*metadata.Index, error) {
	return s.inner.ReadIndex(ctx, domain)
}

func (s *CachedStore) SaveIndex(ctx context.Context, domain string, index *metadata.Index) error {
	return s.inner.SaveIndex(ctx, domain, index)
}

func (s *CachedStore) GetFile(ctx context.Context, domain, id string) (*metadata.FileRecord, error) {
	if err := metadata.ValidateKey(domain, id); err != nil {
		return nil, err
	}

	key := cacheKey(domain, id)
	if data, err := s.cache.Get(key); err == nil {
		record, derr := metadata.DecodeFile(domain, data)
		if derr == nil {
			s.metrics.RecordCacheHit()
			return record, nil
		}
		_ = s.cache.Delete(key)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Debug("record cache get %s: %v", key, err)
	}

	s.metrics.RecordCacheMiss()

	mu := s.fillLock(key)
	mu.Lock()
	defer mu.Unlock()

	record, err := s.inner.GetFile(ctx, domain, id)
	if err != nil || record == nil {
		return record, err
	}

	if data, err := metadata.EncodeFile(record); err == nil {
		if err := s.cache.Set(key, data); err != nil {
			logger.Debug("record cache set %s: %v", key, err)
		}
	}
	return record, nil
}

func (s *CachedStore) SaveFile(ctx context.Context, domain string, record *metadata.FileRecord) error {
	if record == nil {
		return s.inner.SaveFile(ctx, domain, record)
	}

	mu := s.fillLock(cacheKey(domain, record.ID))
	mu.Lock()
	defer mu.Unlock()

	err := s.inner.SaveFile(ctx, domain, record)
	s.invalidate(domain, record.ID)
	return err
}

func (s *CachedStore) DeleteFile(ctx context.Context, domain, id string) (bool, error) {
	mu := s.fillLock(cacheKey(domain, id))
	mu.Lock()
	defer mu.Unlock()

	removed, err := s.inner.DeleteFile(ctx, domain, id)
	s.invalidate(domain, id)
	return removed, err
}

func (s *CachedStore) invalidate(domain, id string) {
	if err := s.cache.Delete(cacheKey(domain, id)); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Debug("record cache delete %s:%s: %v", domain, id, err)
	}
}

func (s *CachedStore) Domains(ctx context.Context) ([]string, error) {
	return s.inner.Domains(ctx)
}

func (s *CachedStore) Healthcheck(ctx context.Context) error {
	return s.inner.Healthcheck(ctx)
}

// Stats reports cache hits and misses.
func (s *CachedStore) Stats() bigcache.Stats {
	return s.cache.Stats()
}

// Close closes the cache and the inner store.
func (s *CachedStore) Close() error {
	return errors.Join(s.cache.Close(), s.inner.Close())
}
