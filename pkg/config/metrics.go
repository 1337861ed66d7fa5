package config

import (
	"context"

	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/metrics"
)

// MetricsResult contains all metrics components created from configuration.
type MetricsResult struct {
	// Server exposes /metrics and /healthz (nil if disabled)
	Server *metrics.Server

	// HTTP never nil, no-op when disabled
	HTTP metrics.HTTPMetrics

	// Files, Store nil when disabled
	Files files.Metrics
	Store StoreMetrics
}

// InitializeMetrics creates the metrics components.
//
// When enabled, the global Prometheus registry is initialized and the
// server reports health through health (nil means always healthy).
func InitializeMetrics(cfg *Config, health func(ctx context.Context) error) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{HTTP: metrics.NewNoopHTTPMetrics()}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port:   cfg.Server.Metrics.Port,
			Health: health,
		}),
		HTTP:  metrics.NewHTTPMetrics(),
		Files: metrics.NewFilesMetrics(),
		Store: StoreMetrics{
			Store: metrics.NewMetadataMetrics(cfg.Metadata.Type),
			Cache: metrics.NewCacheMetrics(),
		},
	}
}
