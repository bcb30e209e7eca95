// Package masterindex implements the master index: the single-blob
// registry of every collection's metadata and outstanding per-collection
// application locks, persisted in the property store under one
// well-known key. It is the single serialisation point for
// cross-component state: every read and write of the blob funnels
// through load/mutate/save, called by pkg/lock and pkg/gasdb while the
// caller holds the process-wide lock.
package masterindex

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/driver"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
)

// DefaultKey is the property-store key the master index is stored under
// when the caller doesn't configure one.
const DefaultKey = "GASDB_MASTER_INDEX"

// ConflictStrategy names how MasterIndex.ResolveConflict settles a
// token mismatch.
type ConflictStrategy string

const (
	// StrategyOverwrite lets the publisher win: the caller's metadata is
	// written regardless of the stored token.
	StrategyOverwrite ConflictStrategy = "overwrite"
	// StrategyAbort lets the stored value win: the caller retries.
	StrategyAbort ConflictStrategy = "abort"
	// StrategyMerge is reserved for a future field-level merge policy;
	// it behaves as StrategyAbort until one is designed.
	StrategyMerge ConflictStrategy = "merge"
)

// Index is the master index, backed by a PropertyStore.
type Index struct {
	store driver.PropertyStore
	key   string

	// mu guards the whole load-mutate-save sequence against concurrent
	// callers within this process. pkg/lock's process-wide lock already
	// serialises public Collection operations, but Index is also used
	// directly by pkg/lock itself (for collection-lock bookkeeping), so
	// it carries its own mutex as a second line of defense rather than
	// depending on every caller remembering to hold the outer lock.
	mu sync.Mutex
}

// New returns a MasterIndex persisted in store under key. An empty key
// defaults to DefaultKey.
func New(store driver.PropertyStore, key string) *Index {
	if key == "" {
		key = DefaultKey
	}
	return &Index{store: store, key: key}
}

func (idx *Index) load(ctx context.Context) (*domain.MasterIndexData, error) {
	raw, ok, err := idx.store.Get(ctx, idx.key)
	if err != nil {
		return nil, domain.Wrap(domain.BackendUnavailable, err, "master index: read %q", idx.key)
	}
	if !ok || raw == "" {
		return domain.NewMasterIndexData(), nil
	}
	decoded, err := objutil.Unmarshal([]byte(raw))
	if err != nil {
		return nil, domain.Wrap(domain.InternalError, err, "master index: decode %q", idx.key)
	}
	return decodeIndex(decoded), nil
}

func (idx *Index) save(ctx context.Context, data *domain.MasterIndexData) error {
	encoded, err := objutil.Marshal(encodeIndex(data))
	if err != nil {
		return domain.Wrap(domain.InternalError, err, "master index: encode %q", idx.key)
	}
	if err := idx.store.Set(ctx, idx.key, string(encoded)); err != nil {
		return domain.Wrap(domain.BackendUnavailable, err, "master index: write %q", idx.key)
	}
	return nil
}

// GenerateModificationToken returns a fresh opaque token, minted on
// every persist so concurrent writers can detect a conflict.
func (idx *Index) GenerateModificationToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to
		// a timestamp so callers still get a token instead of a panic.
		return fmt.Sprintf("tok-%d", time.Now().UnixNano())
	}
	return "tok-" + hex.EncodeToString(buf[:])
}

// AddCollection registers meta as a brand-new collection. It overwrites
// any existing entry of the same name; callers that must not clobber an
// existing collection check GetCollection first.
func (idx *Index) AddCollection(ctx context.Context, meta *domain.CollectionMetadata) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return err
	}
	data.Collections[meta.Name] = meta.Clone()
	return idx.save(ctx, data)
}

// RemoveCollection deletes name's entry, if any, and its outstanding
// lock entry alongside it.
func (idx *Index) RemoveCollection(ctx context.Context, name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return err
	}
	delete(data.Collections, name)
	delete(data.Locks, name)
	return idx.save(ctx, data)
}

// GetCollection returns a clone of name's metadata, or ok=false if no
// such collection is registered.
func (idx *Index) GetCollection(ctx context.Context, name string) (*domain.CollectionMetadata, bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return nil, false, err
	}
	meta, ok := data.Collections[name]
	if !ok {
		return nil, false, nil
	}
	return meta.Clone(), true, nil
}

// ListCollections returns every registered collection name.
func (idx *Index) ListCollections(ctx context.Context) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(data.Collections))
	for name := range data.Collections {
		names = append(names, name)
	}
	return names, nil
}

// UpdateCollectionMetadata publishes meta as the new authoritative
// metadata for its collection, unconditionally. Callers that must
// detect a concurrent writer call HasConflict first.
func (idx *Index) UpdateCollectionMetadata(ctx context.Context, meta *domain.CollectionMetadata) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return err
	}
	data.Collections[meta.Name] = meta.Clone()
	return idx.save(ctx, data)
}

// HasConflict reports whether the stored modification token for name
// differs from expectedToken, returning both tokens on a mismatch so
// the caller can retry. A collection with no stored entry never
// conflicts (it is being created).
func (idx *Index) HasConflict(ctx context.Context, name, expectedToken string) (bool, *domain.ConflictDetails, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return false, nil, err
	}
	meta, ok := data.Collections[name]
	if !ok {
		return false, nil, nil
	}
	if meta.ModificationToken == expectedToken {
		return false, nil, nil
	}
	return true, &domain.ConflictDetails{
		CollectionName: name,
		Expected:       expectedToken,
		Actual:         meta.ModificationToken,
	}, nil
}

// ResolveConflict applies strategy to a detected conflict. Overwrite
// publishes incoming unconditionally; Abort and Merge (reserved) both
// leave the stored metadata untouched and return it so the caller can
// retry against current state.
func (idx *Index) ResolveConflict(ctx context.Context, strategy ConflictStrategy, incoming *domain.CollectionMetadata) (*domain.CollectionMetadata, error) {
	switch strategy {
	case StrategyOverwrite:
		if err := idx.UpdateCollectionMetadata(ctx, incoming); err != nil {
			return nil, err
		}
		return incoming.Clone(), nil
	case StrategyAbort, StrategyMerge:
		stored, ok, err := idx.GetCollection(ctx, incoming.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewError(domain.NotFound, "no collection %q to resolve conflict against", incoming.Name)
		}
		return stored, domain.NewConflictError(incoming.Name, incoming.ModificationToken, stored.ModificationToken)
	default:
		return nil, domain.NewError(domain.InvalidArgument, "unknown conflict resolution strategy %q", strategy)
	}
}

// AcquireCollectionLock writes a lock entry for name under operationID,
// valid for ttl, unless a different, non-expired operation already holds
// it.
func (idx *Index) AcquireCollectionLock(ctx context.Context, name, operationID string, ttl time.Duration) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	if existing, ok := data.Locks[name]; ok && !existing.Expired(now) && existing.OperationID != operationID {
		return domain.NewError(domain.LockTimeout, "collection %q already locked by operation %q", name, existing.OperationID)
	}

	data.Locks[name] = &domain.LockEntry{
		OperationID: operationID,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(ttl),
	}
	return idx.save(ctx, data)
}

// ReleaseCollectionLock removes name's lock entry only if operationID
// matches its current holder.
func (idx *Index) ReleaseCollectionLock(ctx context.Context, name, operationID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return err
	}
	existing, ok := data.Locks[name]
	if !ok || existing.OperationID != operationID {
		return nil
	}
	delete(data.Locks, name)
	return idx.save(ctx, data)
}

// IsCollectionLocked reports whether name carries a non-expired lock
// entry.
func (idx *Index) IsCollectionLocked(ctx context.Context, name string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return false, err
	}
	entry, ok := data.Locks[name]
	return ok && !entry.Expired(time.Now()), nil
}

// CleanupExpiredCollectionLocks deletes every lock entry whose
// expiresAt has passed and reports how many were removed.
func (idx *Index) CleanupExpiredCollectionLocks(ctx context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	data, err := idx.load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for name, entry := range data.Locks {
		if entry.Expired(now) {
			delete(data.Locks, name)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, idx.save(ctx, data)
}

func encodeIndex(data *domain.MasterIndexData) map[string]interface{} {
	collections := make(map[string]interface{}, len(data.Collections))
	for name, meta := range data.Collections {
		collections[name] = meta
	}
	locks := make(map[string]interface{}, len(data.Locks))
	for name, entry := range data.Locks {
		locks[name] = map[string]interface{}{
			"operationId": entry.OperationID,
			"acquiredAt":  entry.AcquiredAt,
			"expiresAt":   entry.ExpiresAt,
		}
	}
	return map[string]interface{}{
		"collections": collections,
		"locks":       locks,
		"version":     data.Version,
	}
}

func decodeIndex(raw interface{}) *domain.MasterIndexData {
	data := domain.NewMasterIndexData()
	doc, ok := raw.(domain.Document)
	if !ok {
		return data
	}
	if cols, ok := doc["collections"].(domain.Document); ok {
		for name, v := range cols {
			if meta, ok := v.(*domain.CollectionMetadata); ok {
				data.Collections[name] = meta
			}
		}
	}
	if locks, ok := doc["locks"].(domain.Document); ok {
		for name, v := range locks {
			entry, ok := v.(domain.Document)
			if !ok {
				continue
			}
			lock := &domain.LockEntry{}
			if op, ok := entry["operationId"].(string); ok {
				lock.OperationID = op
			}
			if t, ok := entry["acquiredAt"].(time.Time); ok {
				lock.AcquiredAt = t
			}
			if t, ok := entry["expiresAt"].(time.Time); ok {
				lock.ExpiresAt = t
			}
			data.Locks[name] = lock
		}
	}
	if v, ok := doc["version"].(float64); ok {
		data.Version = int(v)
	}
	return data
}
