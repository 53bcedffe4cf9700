// Package storage defines the BlobStore interface for persisting encrypted
// artifacts and their keys. It abstracts the underlying backend so that
// deployments can swap between local disk and S3-compatible object stores
// without changing orchestration code.
//
// A deployment wires two independent stores: one for ciphertext blobs and
// one for artifact keys. Keeping them behind separate stores (separate
// buckets, prefixes, or directories with different access policies) is what
// makes the at-rest encryption meaningful.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a locator does not exist in the store.
var ErrNotFound = errors.New("storage: not found")

// BlobStore is a minimal byte-oriented store keyed by locator.
//
// Locators are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Put stores data under the locator, overwriting any previous value,
	// and returns a backend-specific URL for the stored blob. Put returns
	// only after the backend has confirmed the write; the returned URL is
	// the caller's commit signal.
	Put(ctx context.Context, locator string, data []byte) (url string, err error)

	// Get retrieves the blob stored under the locator.
	// Returns an error wrapping ErrNotFound if the locator does not exist.
	Get(ctx context.Context, locator string) ([]byte, error)

	// Delete removes the blob. Deleting a missing locator is not an
	// error (idempotent).
	Delete(ctx context.Context, locator string) error

	// Exists reports whether the locator holds a blob.
	Exists(ctx context.Context, locator string) (bool, error)
}
