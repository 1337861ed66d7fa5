// Package http exposes the files service over HTTP with fiber.
//
// Routes, relative to the configured mount prefix:
//
//	POST   /api/folder              create a folder
//	DELETE /api/folder?path=        delete an empty folder
//	GET    /api/list?folder=        list a folder
//	POST   /api/upload              multipart upload (field "file", optional "folder")
//	GET    /api/file/:id/download   file bytes or a redirect to a gateway
//	DELETE /api/file/:id            delete a file
//	GET    /status                  diagnostic summary
//
// The caller identity is read from a header set by the authenticating proxy;
// the domain is derived from the Host header.
package http

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/internal/ratelimiter"
	"github.com/marmos91/filewallet/pkg/files"
	"github.com/marmos91/filewallet/pkg/metrics"
)

// HTTPAdapter implements adapter.Adapter for HTTP.
//
// Thread safety:
// Handlers run concurrently. SetService is called once before Serve.
type HTTPAdapter struct {
	config  HTTPConfig
	app     *fiber.App
	svc     *files.Service
	limiter *ratelimiter.KeyedLimiter
	metrics metrics.HTTPMetrics

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an HTTP adapter. It panics on invalid configuration, like the
// other adapters, since configuration is validated at load time.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	a := &HTTPAdapter{
		config:  config,
		metrics: httpMetrics,
		limiter: ratelimiter.NewKeyed(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst, 0),
	}

	a.app = fiber.New(fiber.Config{
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           config.IdleTimeout,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          errorHandler(config.HideErrorDetails),
		DisableStartupMessage: true,
		Immutable:             true,
	})
	a.registerRoutes(a.app.Group(config.MountPrefix))

	return a
}

// SetService injects the files service.
func (a *HTTPAdapter) SetService(svc *files.Service) {
	a.svc = svc
	logger.Debug("HTTP adapter service configured")
}

// App returns the underlying fiber application.
func (a *HTTPAdapter) App() *fiber.App {
	return a.app
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	if a.svc == nil {
		return errors.New("http adapter: files service not set")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening on %s%s", a.config.address(), a.config.MountPrefix)
		errCh <- a.app.Listen(a.config.address())
	}()

	select {
	case <-ctx.Done():
		// The cancelled ctx would abort the shutdown at once.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := a.Stop(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

// Stop shuts the server down, waiting for in-flight requests until ctx
// expires. Safe to call more than once.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")
		if err := a.app.ShutdownWithContext(ctx); err != nil {
			a.shutdownErr = fmt.Errorf("http shutdown: %w", err)
			return
		}
		logger.Info("HTTP server stopped gracefully")
	})
	return a.shutdownErr
}

// Protocol returns "HTTP".
func (a *HTTPAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the configured listen port.
func (a *HTTPAdapter) Port() int {
	return a.config.Port
}
