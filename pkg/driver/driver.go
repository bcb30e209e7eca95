// Package driver defines the storage-backend contracts gasdb is built
// against: a blob store for whole-collection payloads and a property
// store for small keyed values (the master index). Concrete
// implementations live in pkg/driver/localblob and pkg/driver/localkv;
// callers may supply their own for other backends without touching the
// engine's four core subsystems.
package driver

import (
	"context"
	"time"
)

// BlobStore persists opaque, whole-collection blobs under a handle the
// store itself assigns at creation time.
type BlobStore interface {
	// ReadFile returns the raw bytes stored under handle.
	ReadFile(ctx context.Context, handle string) ([]byte, error)
	// WriteFile overwrites the bytes stored under handle. handle must
	// have been returned by a prior CreateFile call.
	WriteFile(ctx context.Context, handle string, data []byte) error
	// CreateFile allocates a new handle for name and stores data under
	// it, returning the handle.
	CreateFile(ctx context.Context, name string, data []byte) (string, error)
	// DeleteFile removes the blob stored under handle. Deleting an
	// already-absent handle is not an error.
	DeleteFile(ctx context.Context, handle string) error
}

// PropertyStore persists small string-keyed values, used for the master
// index. Implementations must make Get/Set/Delete safe to call
// concurrently from multiple goroutines/processes; WithExclusiveLock is
// the coordination primitive callers use to make a read-modify-write
// sequence atomic across the whole store.
type PropertyStore interface {
	// Get returns the value stored at key, or ("", false) if absent.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value at key, creating or overwriting it.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting an already-absent key is not an error.
	Delete(ctx context.Context, key string) error
	// WithExclusiveLock runs fn while holding the store's native
	// exclusive lock, timing out after timeout. The lock is released on
	// every exit path, including fn panicking.
	WithExclusiveLock(ctx context.Context, timeout time.Duration, fn func() error) error
}
