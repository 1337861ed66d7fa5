// Package sweep reclaims backend objects that no file record references.
//
// An upload writes the raw bytes before anything else, so a failure later in
// the upload leaves an unreferenced object behind. The sweeper lists each
// domain's keys on backends that can be listed, subtracts the locators of
// every indexed FileRecord and the folder markers, and deletes the rest.
//
// A periodic sweeper only deletes a key found orphaned on two consecutive
// passes, so uploads in flight during a pass are never touched. Immediate
// mode deletes on the first pass and is meant for offline use.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/store/content"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/samber/lo"
)

// Config configures the sweeper.
type Config struct {
	// Enabled starts the periodic sweep in Start.
	Enabled bool `mapstructure:"enabled"`

	// Interval between periodic passes. Default: 24h
	Interval time.Duration `mapstructure:"interval" validate:"min=0"`

	// BatchSize bounds the keys passed to one DeleteMany. Default: 500
	BatchSize int `mapstructure:"batch_size" validate:"min=0"`

	// DryRun reports orphans without deleting them.
	DryRun bool `mapstructure:"dry_run"`

	// Immediate deletes orphans found by a single pass.
	Immediate bool `mapstructure:"-"`
}

// Sweeper finds and removes orphaned backend objects.
type Sweeper struct {
	store    metadata.Store
	backends files.Backends
	config   Config

	// runMu serialises passes; pending is only touched under it.
	runMu   sync.Mutex
	pending map[string]struct{}

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a sweeper over the domains known to store.
func New(store metadata.Store, backends files.Backends, config Config) (*Sweeper, error) {
	if store == nil || backends == nil {
		return nil, errors.New("sweep: store and backends are required")
	}
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	return &Sweeper{
		store:    store,
		backends: backends,
		config:   config,
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the periodic worker when the sweeper is enabled.
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		logger.Info("Orphan sweeper disabled")
		return
	}

	logger.Info("Starting orphan sweeper: interval=%s batch_size=%d dry_run=%v",
		s.config.Interval, s.config.BatchSize, s.config.DryRun)

	s.started = true
	go s.worker()
}

// Stop ends the worker, waiting for a running pass until ctx expires.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.started {
		return nil
	}

	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		logger.Info("Orphan sweeper stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Orphan sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow runs one pass immediately.
func (s *Sweeper) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running orphan sweep (manual trigger)")
	return s.sweep(ctx)
}

func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := s.sweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Orphan sweep failed: %v", err)
			} else {
				logger.Info("Orphan sweep completed: %s", stats.Summary())
			}

		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) (*Stats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	domains, err := s.store.Domains(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list domains: %w", err)
	}

	pending := make(map[string]struct{})
	var errs []error
	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.sweepDomain(ctx, domain, stats, pending); err != nil {
			logger.Warn("Sweep of %s failed: %v", domain, err)
			errs = append(errs, fmt.Errorf("%s: %w", domain, err))
		}
	}
	s.pending = pending

	return stats, errors.Join(errs...)
}

func (s *Sweeper) sweepDomain(ctx context.Context, domain string, stats *Stats, pending map[string]struct{}) error {
	backend, err := s.backends.Backend(ctx, domain)
	if err != nil {
		return err
	}
	lister, ok := backend.(content.Lister)
	if !ok {
		logger.Debug("Sweep: %s backend cannot list keys, skipping %s", backend.Type(), domain)
		return nil
	}
	prefix := backend.Layout().DomainPrefix(domain)
	if prefix == "" {
		logger.Debug("Sweep: %s keys are not domain scoped, skipping", domain)
		return nil
	}

	referenced, err := s.referenced(ctx, domain)
	if err != nil {
		return err
	}

	keys, err := lister.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}

	stats.Domains++
	stats.ReferencedCount += uint64(len(referenced))
	stats.ExistingCount += uint64(len(keys))

	orphans := lo.Filter(keys, func(key string, _ int) bool {
		if content.IsFolderMarker(key) {
			return false
		}
		_, ok := referenced[key]
		return !ok
	})
	stats.OrphanedCount += uint64(len(orphans))
	if len(orphans) == 0 {
		return nil
	}

	if s.config.DryRun {
		logger.Info("Sweep: DRY RUN - %d orphaned object(s) on %s", len(orphans), domain)
		for _, key := range lo.Slice(orphans, 0, 10) {
			logger.Info("  - %s", key)
		}
		if len(orphans) > 10 {
			logger.Info("  ... and %d more", len(orphans)-10)
		}
		return nil
	}

	confirmed := orphans
	if !s.config.Immediate {
		confirmed = nil
		for _, key := range orphans {
			id := domain + "\x00" + key
			if _, seen := s.pending[id]; seen {
				confirmed = append(confirmed, key)
			} else {
				pending[id] = struct{}{}
				stats.DeferredCount++
			}
		}
	}

	for _, batch := range lo.Chunk(confirmed, s.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := backend.DeleteMany(ctx, batch); err != nil {
			logger.Warn("Sweep: batch delete on %s failed: %v", domain, err)
			stats.FailedCount += uint64(len(batch))
			continue
		}
		stats.DeletedCount += uint64(len(batch))
	}

	return nil
}

// referenced returns the locators of every indexed record of domain.
func (s *Sweeper) referenced(ctx context.Context, domain string) (map[string]struct{}, error) {
	index, err := s.store.ReadIndex(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	refs := make(map[string]struct{}, 2*index.Len())
	for id := range index.Files {
		record, err := s.store.GetFile(ctx, domain, id)
		if err != nil {
			return nil, fmt.Errorf("get file %s: %w", id, err)
		}
		if record == nil {
			continue
		}
		for _, loc := range record.Locators() {
			refs[loc] = struct{}{}
		}
	}
	return refs, nil
}

// Stats describes one sweep pass.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	Domains         int
	ReferencedCount uint64 // locators referenced by records
	ExistingCount   uint64 // keys listed on the backends
	OrphanedCount   uint64
	DeferredCount   uint64 // orphans awaiting confirmation by the next pass
	DeletedCount    uint64
	FailedCount     uint64
}

// Duration returns how long the pass took (or has taken so far).
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary formats the stats for logs.
func (s *Stats) Summary() string {
	return fmt.Sprintf("domains=%d referenced=%d existing=%d orphaned=%d deferred=%d deleted=%d failed=%d duration=%s",
		s.Domains, s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeferredCount, s.DeletedCount, s.FailedCount, s.Duration())
}
