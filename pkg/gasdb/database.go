// Package gasdb is the public surface of the engine:
// Database.CreateCollection/Collection/ListCollections/DropCollection
// and Collection's MongoDB-style CRUD. It is the orchestration layer
// that ties the query engine, update engine, document store, file
// service, lock service, and master index together behind one exported
// façade type, wrapping a handful of internal collaborators each
// constructed with functional options.
package gasdb

import (
	"context"
	"sync"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/driver"
	"github.com/adfharrison1/gasdb-go/pkg/lock"
	"github.com/adfharrison1/gasdb-go/pkg/masterindex"
	"github.com/adfharrison1/gasdb-go/pkg/storage"
	"github.com/google/uuid"
)

// Database is a handle to a set of collections persisted through a
// BlobStore, coordinated across instances via a PropertyStore-backed
// master index.
type Database struct {
	files *storage.FileService
	locks *lock.Service
	index *masterindex.Index

	instanceID string

	masterIndexKey        string
	fileServiceOpts       []storage.Option
	processLockTimeout    time.Duration
	collectionLockTimeout time.Duration

	mu          sync.Mutex
	collections map[string]*Collection
}

// Option configures a Database via the functional-options pattern.
type Option func(*Database)

// WithMasterIndexKey overrides the property-store key the master index
// is stored under (default: GASDB_MASTER_INDEX).
func WithMasterIndexKey(key string) Option {
	return func(db *Database) { db.masterIndexKey = key }
}

// WithProcessLockTimeout overrides how long a public call waits to
// acquire the process-wide lock before failing with LockTimeout.
func WithProcessLockTimeout(d time.Duration) Option {
	return func(db *Database) { db.processLockTimeout = d }
}

// WithCollectionLockTimeout overrides how long the per-collection
// application lock taken by a mutating call stays valid before it
// expires. Acquisition does not wait: a lock held by a different,
// non-expired operation fails the call with LockTimeout at once.
func WithCollectionLockTimeout(d time.Duration) Option {
	return func(db *Database) { db.collectionLockTimeout = d }
}

// WithFileServiceOptions passes through tuning options to the
// underlying FileService.
func WithFileServiceOptions(opts ...storage.Option) Option {
	return func(db *Database) { db.fileServiceOpts = opts }
}

// Open constructs a Database over the given blob and property stores.
func Open(blobs driver.BlobStore, props driver.PropertyStore, opts ...Option) *Database {
	db := &Database{
		instanceID:            uuid.NewString(),
		processLockTimeout:    lock.DefaultTimeout,
		collectionLockTimeout: lock.DefaultTimeout,
		collections:           make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(db)
	}

	db.files = storage.New(blobs, db.fileServiceOpts...)
	db.index = masterindex.New(props, db.masterIndexKey)
	db.locks = lock.NewService(db.index)
	return db
}

// Locks exposes the lock service so callers can inspect or manage
// per-collection application locks directly (e.g. cleaning up locks
// left behind by a crashed instance).
func (db *Database) Locks() *lock.Service {
	return db.locks
}

// Index exposes the master index for conflict inspection and manual
// resolution via ResolveConflict.
func (db *Database) Index() *masterindex.Index {
	return db.index
}

// CreateCollection returns the handle for the collection named name,
// the same handle on every call. Creation is idempotent and lazy: the
// collection is registered in the master index on its first operation,
// not by this call.
func (db *Database) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, domain.NewError(domain.InvalidArgument, "collection name must not be empty")
	}
	return db.collection(ctx, name)
}

// Collection returns a handle to the named collection, creating it
// lazily if it doesn't yet exist. The returned handle is cached on the
// Database so repeated calls for the same name return the same
// in-memory state.
func (db *Database) Collection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, domain.NewError(domain.InvalidArgument, "collection name must not be empty")
	}
	return db.collection(ctx, name)
}

func (db *Database) collection(_ context.Context, name string) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c, ok := db.collections[name]; ok {
		return c, nil
	}
	c := &Collection{db: db, name: name}
	db.collections[name] = c
	return c, nil
}

// ListCollections returns every collection name registered in the
// master index, including ones never accessed via Collection in this
// process.
func (db *Database) ListCollections(ctx context.Context) ([]string, error) {
	handle, err := db.locks.AcquireProcessLock(ctx, db.processLockTimeout)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	return db.index.ListCollections(ctx)
}

// DropCollection deletes a collection's blob and its master index entry.
// Dropping a collection that was never persisted (no documents were
// ever written) is not an error.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	if name == "" {
		return domain.NewError(domain.InvalidArgument, "collection name must not be empty")
	}

	handle, err := db.locks.AcquireProcessLock(ctx, db.processLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()

	meta, ok, err := db.index.GetCollection(ctx, name)
	if err != nil {
		return err
	}
	if ok && meta.FileHandle != "" {
		if err := db.files.Delete(ctx, meta.FileHandle); err != nil {
			return err
		}
	}
	if err := db.index.RemoveCollection(ctx, name); err != nil {
		return err
	}

	db.mu.Lock()
	delete(db.collections, name)
	db.mu.Unlock()
	return nil
}
