// Package content defines the backend storage adapter: a narrow put/get/delete
// by key contract implemented over local disk, object storage and
// content-addressed networks.
//
// The files service is written once against Backend. Each implementation
// decides how keys land on its medium and reports failures with the sentinels
// in errors.go.
package content

import (
	"context"
	"errors"
)

// Backend is the uniform storage contract.
//
// Keys are produced by the backend's Layout. For addressable media the
// locator returned by Write equals the key; content-addressed media return
// the identifier they assigned, and every later Read or Delete must use that
// locator instead of the key.
type Backend interface {
	// Type returns the backend kind recorded in file records ("filesystem",
	// "memory", "s3", "minio", "ipfs").
	Type() string

	// Layout returns the key scheme for this backend.
	Layout() Layout

	// Write stores data under key and returns the locator to read it back.
	Write(ctx context.Context, key string, data []byte) (string, error)

	// Read returns the bytes stored under locator.
	// Returns ErrNotFound when absent.
	Read(ctx context.Context, locator string) ([]byte, error)

	// Delete removes locator. Deleting an absent key succeeds.
	Delete(ctx context.Context, locator string) error

	// DeleteMany removes every locator, continuing past failures.
	DeleteMany(ctx context.Context, locators []string) error
}

// Lister is implemented by backends that can enumerate keys under a prefix.
// It powers folder-marker discovery and the orphan sweeper.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// URLResolver is implemented by backends that can hand out an external
// retrieval URL for a locator (a gateway for content-addressed storage).
// Downloads redirect to that URL instead of proxying bytes.
type URLResolver interface {
	URL(locator string) (string, bool)
}

// DeleteEach is the generic DeleteMany: it deletes locators one at a time
// and joins the failures.
func DeleteEach(ctx context.Context, b Backend, locators []string) error {
	var errs []error
	for _, loc := range locators {
		if loc == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := b.Delete(ctx, loc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
