// Package metadata defines the per-domain metadata store: one Index and any
// number of FileRecords per domain.
//
// Operations are not transactional across calls. Callers order them so a
// crash leaves at worst an orphan FileRecord with no Index entry, never an
// Index entry without a record:
//
//	create: SaveFile, then SaveIndex
//	delete: SaveIndex (entry removed), then DeleteFile
package metadata

import (
	"context"
	"strings"
)

// Store is implemented by every metadata backend (memory, badger, redis)
// and by the caching decorator.
//
// Thread Safety:
// Implementations must be safe for concurrent use. No isolation is provided
// between a ReadIndex and a concurrent SaveIndex.
type Store interface {
	// ReadIndex returns the domain index, or an empty index when none was
	// saved. Absence is never an error.
	ReadIndex(ctx context.Context, domain string) (*Index, error)

	// SaveIndex overwrites the domain index.
	SaveIndex(ctx context.Context, domain string, index *Index) error

	// GetFile returns the record for id, or nil when absent.
	GetFile(ctx context.Context, domain, id string) (*FileRecord, error)

	// SaveFile overwrites the record keyed by record.ID.
	SaveFile(ctx context.Context, domain string, record *FileRecord) error

	// DeleteFile removes the record and reports whether it existed.
	DeleteFile(ctx context.Context, domain, id string) (bool, error)

	// Domains lists every domain that has a saved index.
	Domains(ctx context.Context) ([]string, error)

	// Healthcheck verifies the store is usable.
	Healthcheck(ctx context.Context) error

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

// ValidateDomain rejects domains that cannot be used as key components.
func ValidateDomain(domain string) error {
	if domain == "" {
		return NewError(ErrInvalidArgument, domain, "domain is required", nil)
	}
	if strings.ContainsAny(domain, ":/\\ \x00") {
		return NewError(ErrInvalidArgument, domain, "domain contains reserved characters", nil)
	}
	return nil
}

// ValidateKey checks a domain and file id pair.
func ValidateKey(domain, id string) error {
	if err := ValidateDomain(domain); err != nil {
		return err
	}
	if id == "" {
		return NewError(ErrInvalidArgument, domain, "file id is required", nil)
	}
	if strings.ContainsAny(id, ":/\\ \x00") {
		return NewError(ErrInvalidArgument, domain, "file id contains reserved characters", nil)
	}
	return nil
}

// ValidateRecord checks a record before it is saved.
func ValidateRecord(domain string, record *FileRecord) error {
	if record == nil {
		return NewError(ErrInvalidArgument, domain, "record is nil", nil)
	}
	return ValidateKey(domain, record.ID)
}
