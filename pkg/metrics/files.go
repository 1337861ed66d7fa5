package metrics

import (
	"time"

	"github.com/marmos91/filewallet/pkg/files"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// filesMetrics is the Prometheus implementation of files.Metrics.
type filesMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	bytesTotal        *prometheus.CounterVec
}

// NewFilesMetrics creates a Prometheus-backed files.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the files service use its built-in no-op implementation.
func NewFilesMetrics() files.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newFilesMetrics(GetRegistry())
}

func newFilesMetrics(reg prometheus.Registerer) *filesMetrics {
	return &filesMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_files_operations_total",
				Help: "Total number of files service operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filewallet_files_operation_duration_seconds",
				Help: "Duration of files service operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
					30.0,  // 30s
				},
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_files_errors_total",
				Help: "Total number of files service errors by operation and error code",
			},
			[]string{"operation", "code"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_files_bytes_total",
				Help: "Total payload bytes uploaded and downloaded",
			},
			[]string{"operation"},
		),
	}
}

func (m *filesMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if err != nil {
		m.errorsTotal.WithLabelValues(operation, files.Code(err)).Inc()
	}
	m.operationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *filesMetrics) RecordBytes(operation string, bytes int64) {
	m.bytesTotal.WithLabelValues(operation).Add(float64(bytes))
}
