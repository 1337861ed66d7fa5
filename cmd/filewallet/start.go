package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/config"
	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/registry"
	"github.com/marmos91/filewallet/pkg/server"
	"github.com/marmos91/filewallet/pkg/store/metadata"
	"github.com/marmos91/filewallet/pkg/sweep"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
}

// loadConfig loads the configuration and configures the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Configure(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	return cfg, nil
}

// deps are the long-lived components shared by the service and the sweeper.
type deps struct {
	backends  *registry.Registry
	store     metadata.Store
	gate      access.Gate
	closeGate func() error
}

func buildDeps(ctx context.Context, cfg *config.Config, m *config.MetricsResult) (*deps, error) {
	factory, err := config.CreateBackendFactory(ctx, &cfg.Content)
	if err != nil {
		return nil, err
	}
	backends := registry.NewRegistry(factory)

	store, err := config.CreateMetadataStore(ctx, &cfg.Metadata, m.Store)
	if err != nil {
		_ = backends.Close()
		return nil, err
	}

	gate, closeGate, err := config.CreateGate(cfg)
	if err != nil {
		_ = store.Close()
		_ = backends.Close()
		return nil, err
	}

	return &deps{backends: backends, store: store, gate: gate, closeGate: closeGate}, nil
}

func (d *deps) close() {
	if err := d.closeGate(); err != nil {
		logger.Warn("Closing permission gate: %v", err)
	}
	if err := d.store.Close(); err != nil {
		logger.Warn("Closing metadata store: %v", err)
	}
	if err := d.backends.Close(); err != nil {
		logger.Warn("Closing storage backends: %v", err)
	}
	_ = logger.Sync()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("File Wallet %s starting (agent %s)", version, cfg.Server.AgentID)

	// The health check reads the store through this pointer, set below.
	var store metadata.Store
	m := config.InitializeMetrics(cfg, func(ctx context.Context) error {
		if store == nil {
			return errors.New("metadata store not ready")
		}
		return store.Healthcheck(ctx)
	})

	d, err := buildDeps(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer d.close()
	store = d.store

	svc, err := files.New(files.Config{
		AgentID:  cfg.Server.AgentID,
		Version:  version,
		Backends: d.backends,
		Store:    d.store,
		Gate:     d.gate,
		Metrics:  m.Files,
	})
	if err != nil {
		return err
	}

	adapters, err := config.CreateAdapters(cfg, m.HTTP)
	if err != nil {
		return err
	}

	srv := server.New(svc)
	srv.StopTimeout = cfg.Server.ShutdownTimeout
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	sweeper, err := sweep.New(d.store, d.backends, cfg.Sweep)
	if err != nil {
		return err
	}
	sweeper.Start()

	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	serveErr := srv.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Warn("Sweeper stop: %v", err)
	}
	if m.Server != nil {
		if err := m.Server.Stop(shutdownCtx); err != nil {
			logger.Warn("Metrics server stop: %v", err)
		}
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logger.Error("Server stopped with error: %v", serveErr)
		return serveErr
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return server.DefaultStopTimeout
}
