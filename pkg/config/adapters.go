package config

import (
	"fmt"

	"github.com/marmos91/filewallet/pkg/adapter"
	httpadapter "github.com/marmos91/filewallet/pkg/adapter/http"
	"github.com/marmos91/filewallet/pkg/metrics"
)

// CreateAdapters creates all enabled transport adapters.
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		adapters = append(adapters, httpadapter.New(cfg.Adapters.HTTP, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
