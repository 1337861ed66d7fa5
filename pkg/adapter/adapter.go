package adapter

import (
	"context"

	"github.com/marmos91/filewallet/pkg/files"
)

// Adapter exposes the files service over one transport and is managed by
// server.FileWalletServer.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//  2. Service injection: SetService() provides the shared files service
//  3. Startup: Serve() starts the server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// SetService() is called once before Serve(), but Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled or
	// an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting requests,
	// let in-flight requests finish within the shutdown timeout and return
	// nil or context.Canceled.
	//
	// If Serve returns before context cancellation, the server treats it
	// as fatal and stops all other adapters.
	Serve(ctx context.Context) error

	// SetService injects the files service. Called exactly once before
	// Serve().
	SetService(svc *files.Service)

	// Stop initiates graceful shutdown. It must be idempotent, safe to call
	// concurrently with Serve() and respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging.
	Protocol() string

	// Port returns the TCP port the adapter listens on.
	Port() int
}
