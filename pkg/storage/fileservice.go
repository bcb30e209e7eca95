// Package storage implements FileService: a thin, caching front end over
// the injected driver.BlobStore that reads and writes whole collection
// blobs. It tracks a per-handle cache entry, suppresses writes that
// wouldn't change the stored bytes, coalesces reads within a short
// window of the last load, and trips a circuit breaker after repeated
// backend failures so callers fail fast with BackendUnavailable instead
// of retrying a dead backend one collection at a time.
package storage

import (
	"context"
	"log"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/driver"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
)

// DefaultCacheCapacity, DefaultCoalesceWindow, DefaultBreakerThreshold,
// and DefaultBreakerCoolOff are the FileService tuning defaults:
// generous enough for a single-process library, tight enough to fail
// fast on a genuinely dead backend.
const (
	DefaultCacheCapacity    = 256
	DefaultCoalesceWindow   = 200 * time.Millisecond
	DefaultBreakerThreshold = 5
	DefaultBreakerCoolOff   = 10 * time.Second
)

// cacheEntry is a handle's cached blob plus when it was last loaded from
// (or written to) the backend. There is no separate dirty flag: a write
// is a no-op exactly when its encoding matches what's already cached,
// which is the content-addressed equivalent of "not dirty" and needs no
// bookkeeping of its own.
type cacheEntry struct {
	blob     *domain.CollectionBlob
	loadedAt time.Time
}

// FileService is a caching front end over a driver.BlobStore.
type FileService struct {
	blobs driver.BlobStore

	cache          *LRUCache
	coalesceWindow time.Duration
	breaker        *circuitBreaker
}

// New returns a FileService reading and writing through blobs.
func New(blobs driver.BlobStore, opts ...Option) *FileService {
	fs := &FileService{
		blobs:          blobs,
		cache:          NewLRUCache(DefaultCacheCapacity),
		coalesceWindow: DefaultCoalesceWindow,
		breaker:        newCircuitBreaker(DefaultBreakerThreshold, DefaultBreakerCoolOff),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Read returns the collection blob stored under handle, serving a
// cached copy if it was loaded within the coalesce window.
func (fs *FileService) Read(ctx context.Context, handle string) (*domain.CollectionBlob, error) {
	if entry, ok := fs.cache.Get(handle); ok {
		if time.Since(entry.loadedAt) < fs.coalesceWindow {
			return entry.blob, nil
		}
	}

	if !fs.breaker.Allow() {
		return nil, domain.NewError(domain.BackendUnavailable, "file service: circuit breaker open, backend calls suspended")
	}

	raw, err := fs.blobs.ReadFile(ctx, handle)
	if err != nil {
		fs.breaker.RecordFailure()
		return nil, domain.Wrap(domain.BackendUnavailable, err, "file service: read handle %q", handle)
	}
	fs.breaker.RecordSuccess()

	blob, err := decodeBlob(raw)
	if err != nil {
		return nil, domain.Wrap(domain.InternalError, err, "file service: decode handle %q", handle)
	}

	fs.cache.Put(handle, &cacheEntry{blob: blob, loadedAt: time.Now()})
	return blob, nil
}

// Write persists blob under handle. If the cache already holds a byte-
// identical encoding for handle, the stored bytes wouldn't change and
// the backend call is suppressed.
func (fs *FileService) Write(ctx context.Context, handle string, blob *domain.CollectionBlob) error {
	encoded, err := encodeBlob(blob)
	if err != nil {
		return domain.Wrap(domain.InternalError, err, "file service: encode handle %q", handle)
	}

	if entry, ok := fs.cache.Get(handle); ok {
		if cached, err := encodeBlob(entry.blob); err == nil && string(cached) == string(encoded) {
			log.Printf("INFO: file service: suppressing no-op write for handle %q", handle)
			return nil
		}
	}

	if !fs.breaker.Allow() {
		return domain.NewError(domain.BackendUnavailable, "file service: circuit breaker open, backend calls suspended")
	}

	if err := fs.blobs.WriteFile(ctx, handle, encoded); err != nil {
		fs.breaker.RecordFailure()
		return domain.Wrap(domain.BackendUnavailable, err, "file service: write handle %q", handle)
	}
	fs.breaker.RecordSuccess()

	// Cache a decoded copy of what was written, not the caller's pointer:
	// a caller that keeps mutating blob must not change the cached entry
	// the next Write is compared against.
	if cached, err := decodeBlob(encoded); err == nil {
		fs.cache.Put(handle, &cacheEntry{blob: cached, loadedAt: time.Now()})
	} else {
		fs.cache.Remove(handle)
	}
	return nil
}

// Create allocates a brand-new handle for name, persists blob under it,
// and returns the handle.
func (fs *FileService) Create(ctx context.Context, name string, blob *domain.CollectionBlob) (string, error) {
	encoded, err := encodeBlob(blob)
	if err != nil {
		return "", domain.Wrap(domain.InternalError, err, "file service: encode new collection %q", name)
	}

	if !fs.breaker.Allow() {
		return "", domain.NewError(domain.BackendUnavailable, "file service: circuit breaker open, backend calls suspended")
	}

	handle, err := fs.blobs.CreateFile(ctx, name, encoded)
	if err != nil {
		fs.breaker.RecordFailure()
		return "", domain.Wrap(domain.BackendUnavailable, err, "file service: create collection %q", name)
	}
	fs.breaker.RecordSuccess()

	if cached, err := decodeBlob(encoded); err == nil {
		fs.cache.Put(handle, &cacheEntry{blob: cached, loadedAt: time.Now()})
	}
	return handle, nil
}

// Delete removes the blob at handle and drops it from the cache.
func (fs *FileService) Delete(ctx context.Context, handle string) error {
	if !fs.breaker.Allow() {
		return domain.NewError(domain.BackendUnavailable, "file service: circuit breaker open, backend calls suspended")
	}
	if err := fs.blobs.DeleteFile(ctx, handle); err != nil {
		fs.breaker.RecordFailure()
		return domain.Wrap(domain.BackendUnavailable, err, "file service: delete handle %q", handle)
	}
	fs.breaker.RecordSuccess()
	fs.cache.Remove(handle)
	return nil
}

func encodeBlob(blob *domain.CollectionBlob) ([]byte, error) {
	docs := make(map[string]interface{}, len(blob.Documents))
	for id, d := range blob.Documents {
		docs[id] = d
	}
	return objutil.Marshal(map[string]interface{}{
		"documents": docs,
		"metadata":  blob.Metadata,
	})
}

func decodeBlob(raw []byte) (*domain.CollectionBlob, error) {
	decoded, err := objutil.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	doc, ok := decoded.(domain.Document)
	if !ok {
		return nil, domain.NewError(domain.InternalError, "collection blob is not a JSON object")
	}

	blob := &domain.CollectionBlob{Documents: make(map[string]domain.Document)}
	if docsVal, ok := doc["documents"].(domain.Document); ok {
		for id, v := range docsVal {
			if d, ok := v.(domain.Document); ok {
				blob.Documents[id] = d
			}
		}
	}
	if meta, ok := doc["metadata"].(*domain.CollectionMetadata); ok {
		blob.Metadata = meta
	}
	return blob, nil
}
