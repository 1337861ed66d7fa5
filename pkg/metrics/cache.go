package metrics

import (
	"github.com/marmos91/filewallet/pkg/store/metadata/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewCacheMetrics creates metrics for the metadata record cache.
//
// Returns nil if metrics are not enabled, which makes the cache use its
// built-in no-op implementation.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newCacheMetrics(GetRegistry())
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filewallet_metadata_cache_hits_total",
				Help: "Total number of file record cache hits",
			},
		),
		misses: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "filewallet_metadata_cache_misses_total",
				Help: "Total number of file record cache misses",
			},
		),
	}
}

func (m *cacheMetrics) RecordCacheHit()  { m.hits.Inc() }
func (m *cacheMetrics) RecordCacheMiss() { m.misses.Inc() }
