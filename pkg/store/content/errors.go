package content

import (
	"errors"
	"fmt"
)

// ============================================================================
// Standard Backend Errors
// ============================================================================

// Implementations wrap these sentinels with context so callers can classify
// failures with errors.Is:
//
//	if !exists {
//	    return nil, fmt.Errorf("object %s: %w", key, content.ErrNotFound)
//	}

var (
	// ErrNotFound indicates the requested key does not exist.
	//
	// Read reports it to the caller. Delete treats it as success.
	ErrNotFound = errors.New("object not found")

	// ErrUnavailable indicates the backend cannot serve requests at all,
	// usually because it is not configured (no endpoint, no bucket).
	//
	// It is distinct from ErrTransferFailed so uploads can report
	// "storage not configured" rather than a transient failure.
	ErrUnavailable = errors.New("storage backend unavailable")

	// ErrTransferFailed indicates an I/O failure while moving bytes to or
	// from the medium (network error, disk error, rejected request).
	ErrTransferFailed = errors.New("storage transfer failed")

	// ErrTooLarge indicates the medium rejected the object because of its
	// size. It is a TransferFailed condition.
	ErrTooLarge = fmt.Errorf("%w: object too large", ErrTransferFailed)

	// ErrInvalidKey indicates a key that cannot be mapped onto the medium
	// (empty, absolute, or escaping the storage root).
	ErrInvalidKey = errors.New("invalid storage key")
)

// TransferError wraps err for operation op on key. Errors that already carry
// one of the sentinels keep it; anything else becomes ErrTransferFailed.
func TransferError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTransferFailed) || errors.Is(err, ErrInvalidKey) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%s %s: %w: %v", op, key, ErrTransferFailed, err)
}
