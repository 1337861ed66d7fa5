package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/filewallet/pkg/files"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_DisabledByDefault(t *testing.T) {
	require.False(t, IsEnabled())

	assert.Nil(t, NewFilesMetrics())
	assert.Nil(t, NewMetadataMetrics("memory"))
	assert.Nil(t, NewCacheMetrics())
	assert.Equal(t, NewNoopHTTPMetrics(), NewHTTPMetrics())
}

func TestFilesMetrics(t *testing.T) {
	m := newFilesMetrics(prometheus.NewRegistry())

	m.ObserveOperation("upload", 20*time.Millisecond, nil)
	m.ObserveOperation("upload", time.Millisecond, errors.New("boom"))
	m.RecordBytes("upload", 10)
	m.RecordBytes("upload", 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("upload", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("upload", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("upload", files.CodeInternal)))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("upload")))
}

func TestMetadataMetrics(t *testing.T) {
	m := newMetadataMetrics(prometheus.NewRegistry(), "badger")

	m.RecordOperation("get_file", time.Millisecond, nil)
	m.RecordOperation("get_file", time.Millisecond, nil)
	m.RecordOperation("save_index", time.Millisecond, errors.New("closed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("badger", "get_file", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("badger", "save_index", "error")))
}

func TestCacheMetrics(t *testing.T) {
	m := newCacheMetrics(prometheus.NewRegistry())

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.misses))
}

func TestHTTPMetrics(t *testing.T) {
	m := newHTTPMetrics(prometheus.NewRegistry())

	m.RecordRequestStart("/api/upload")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsInFlight.WithLabelValues("/api/upload")))
	m.RecordRequestEnd("/api/upload")
	m.RecordRequest("/api/upload", 200, time.Millisecond)
	m.RecordRequest("/api/upload", 429, time.Millisecond)
	m.RecordRateLimited("/api/upload")
	m.RecordBytesTransferred("in", 100)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestsInFlight.WithLabelValues("/api/upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/upload", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/upload", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("/api/upload")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("in")))
}

func TestServer_Endpoints(t *testing.T) {
	healthy := true
	mux := newMux(ServerConfig{
		Port: 9999,
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("store closed")
		},
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusServiceUnavailable, get("/metrics").Code)
	assert.Equal(t, http.StatusOK, get("/healthz").Code)

	healthy = false
	rec := get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store closed")

	rec = get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ":9999/metrics")
	assert.Equal(t, http.StatusNotFound, get("/nope").Code)
}

func TestServer_Defaults(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
