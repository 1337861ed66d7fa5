package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
)

// Factory builds the backend serving domain. It must be idempotent: the
// registry calls it at most once per domain on success, but retries after
// a failure.
type Factory func(ctx context.Context, domain string) (content.Backend, error)

// Shared returns a Factory that hands the same backend to every domain.
// Keys are domain scoped by the backend layout, so one bucket or directory
// can serve all tenants.
func Shared(b content.Backend) Factory {
	return func(context.Context, string) (content.Backend, error) {
		return b, nil
	}
}

// Registry memoizes one backend handle per domain.
//
// Construction is explicit and thread-safe: concurrent first requests for a
// domain wait for a single factory call instead of racing to initialize.
// Different domains are constructed independently.
//
// Example usage:
//
//	reg := NewRegistry(registry.Shared(fsBackend))
//	backend, err := reg.Backend(ctx, "example.com")
type Registry struct {
	factory Factory

	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	mu      sync.Mutex
	backend content.Backend
}

// NewRegistry creates an empty registry using factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		entries: make(map[string]*entry),
	}
}

// Backend returns the backend for domain, building it on first use.
// A failed construction is not cached.
func (r *Registry) Backend(ctx context.Context, domain string) (content.Backend, error) {
	if domain == "" {
		return nil, fmt.Errorf("cannot resolve backend for empty domain")
	}

	e, err := r.entry(domain)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend != nil {
		return e.backend, nil
	}

	backend, err := r.factory(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend for %s: %w", domain, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("backend factory returned nil for %s: %w", domain, content.ErrUnavailable)
	}

	logger.Debug("Initialized %s backend for domain %s", backend.Type(), domain)
	e.backend = backend
	return backend, nil
}

func (r *Registry) entry(domain string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[domain]
	closed := r.closed
	r.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("registry closed")
	}
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("registry closed")
	}
	if e, ok = r.entries[domain]; !ok {
		e = &entry{}
		r.entries[domain] = e
	}
	return e, nil
}

// Domains lists domains with an initialized backend, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]string, 0, len(r.entries))
	for domain, e := range r.entries {
		e.mu.Lock()
		ready := e.backend != nil
		e.mu.Unlock()
		if ready {
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)
	return domains
}

// Close closes every distinct backend implementing io.Closer and rejects
// further lookups.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	seen := make(map[content.Backend]struct{})
	var errs []error
	for domain, e := range r.entries {
		e.mu.Lock()
		b := e.backend
		e.mu.Unlock()
		if b == nil {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		if closer, ok := b.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close backend for %s: %w", domain, err))
			}
		}
	}
	return errors.Join(errs...)
}
