package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics provides observability for the HTTP adapter.
//
// This interface is optional - if not provided to the HTTP adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	adapter := http.New(config, svc, metrics.NewHTTPMetrics())
type HTTPMetrics interface {
	// RecordRequest records a completed request by route pattern and
	// response status code.
	RecordRequest(route string, statusCode int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(route string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(route string)

	// RecordBytesTransferred records body bytes.
	//
	// Parameters:
	//   - direction: "in" (request bodies) or "out" (response bodies)
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// RecordRateLimited counts requests rejected by the rate limiter.
	RecordRateLimited(route string)
}

// httpMetrics is the Prometheus implementation of HTTPMetrics.
type httpMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	bytesTransferred *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
}

// NewHTTPMetrics creates a Prometheus-backed HTTPMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewHTTPMetrics() HTTPMetrics {
	if !IsEnabled() {
		return NewNoopHTTPMetrics()
	}
	return newHTTPMetrics(GetRegistry())
}

// NewNoopHTTPMetrics returns an HTTPMetrics that records nothing.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filewallet_http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
				},
			},
			[]string{"route"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filewallet_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"route"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_http_bytes_transferred_total",
				Help: "Total HTTP body bytes by direction",
			},
			[]string{"direction"},
		),
		rateLimited: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filewallet_http_rate_limited_total",
				Help: "Total number of HTTP requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}

func (m *httpMetrics) RecordRequest(route string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *httpMetrics) RecordRequestStart(route string) {
	m.requestsInFlight.WithLabelValues(route).Inc()
}

func (m *httpMetrics) RecordRequestEnd(route string) {
	m.requestsInFlight.WithLabelValues(route).Dec()
}

func (m *httpMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *httpMetrics) RecordRateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// noopHTTPMetrics is a no-op implementation of HTTPMetrics.
type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(string, int, time.Duration) {}
func (noopHTTPMetrics) RecordRequestStart(string)                {}
func (noopHTTPMetrics) RecordRequestEnd(string)                  {}
func (noopHTTPMetrics) RecordBytesTransferred(string, int64)     {}
func (noopHTTPMetrics) RecordRateLimited(string)                 {}
