package metrics

import (
	"time"

	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metadataMetrics is the Prometheus implementation of metadata.Metrics.
type metadataMetrics struct {
	storeType         string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewMetadataMetrics creates metadata store metrics labelled with storeType
// ("memory", "badger", "redis").
//
// Returns nil if metrics are not enabled, in which case metadata.Instrument
// leaves the store unwrapped.
func NewMetadataMetrics(storeType string) metadata.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newMetadataMetrics(GetRegistry(), storeType)
}

func newMetadataMetrics(reg prometheus.Registerer, storeType string) *metadataMetrics {
	return &metadataMetrics{
		storeType: storeType,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_metadata_operations_total",
				Help: "Total number of metadata store operations by store type, operation and status",
			},
			[]string{"store_type", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filewallet_metadata_operation_duration_seconds",
				Help: "Duration of metadata store operations in seconds",
				Buckets: []float64{
					0.0001, // 100us
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
	}
}

func (m *metadataMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(m.storeType, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}
