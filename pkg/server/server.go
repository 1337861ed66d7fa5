package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/adapter"
	"github.com/marmos91/filewallet/pkg/files"
)

// DefaultStopTimeout bounds the graceful shutdown of all adapters.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server: Serve already called")

// FileWalletServer runs the transport adapters that expose one shared files
// service.
//
// Lifecycle:
//  1. Creation: New() with the files service
//  2. Registration: AddAdapter() for each transport
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or a failing adapter stops all of them
//     in reverse registration order
//
// Example usage:
//
//	srv := server.New(svc)
//	if err := srv.AddAdapter(http.New(httpConfig, httpMetrics)); err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    return err
//	}
type FileWalletServer struct {
	svc      *files.Service
	adapters []adapter.Adapter

	// StopTimeout bounds adapter shutdown. Zero means DefaultStopTimeout.
	StopTimeout time.Duration

	// mu protects adapters and served
	mu     sync.RWMutex
	served bool
}

// New creates a server for svc. Panics if svc is nil.
func New(svc *files.Service) *FileWalletServer {
	if svc == nil {
		panic("files service cannot be nil")
	}
	return &FileWalletServer{
		svc:      svc,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter injects the files service into a and registers it.
//
// Duplicate protocols and port conflicts are rejected. Panics if a is nil
// or Serve has already been called.
func (s *FileWalletServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetService(s.svc)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts every adapter and blocks until ctx is cancelled or an
// adapter fails. It returns ctx.Err() after a cancellation, or the adapter
// error that triggered the shutdown.
func (s *FileWalletServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting file wallet server with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block.
	errChan := make(chan adapterError, len(adapters))
	// Closed when every adapter has returned, so Serve does not hang when
	// all adapters exit cleanly on their own.
	done := make(chan struct{})

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)

	case <-done:
		logger.Info("All adapters exited")
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	<-done

	logger.Info("File wallet server stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters signals every adapter to stop, last registered first.
// Errors are logged; the remaining adapters are still stopped.
func (s *FileWalletServer) stopAllAdapters(adapters []adapter.Adapter) {
	timeout := s.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *FileWalletServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
