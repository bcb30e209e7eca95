package gasdb

import (
	"context"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/docops"
	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
	"github.com/adfharrison1/gasdb-go/pkg/query"
	"github.com/google/uuid"
)

// Collection is a handle to one named collection. It owns the
// in-memory document map exclusively for the duration of each public
// call; loaded/dirty state is explicit, per-instance state rather than a
// hidden global.
type Collection struct {
	db   *Database
	name string

	loaded         bool
	dirty          bool
	lastKnownToken string
	meta           *domain.CollectionMetadata
	store          *docops.Store
}

// InsertOneResult is returned by InsertOne.
type InsertOneResult struct {
	InsertedID   string
	Acknowledged bool
}

// WriteResult is returned by UpdateOne/UpdateMany/ReplaceOne.
type WriteResult struct {
	MatchedCount  int
	ModifiedCount int
	Acknowledged  bool
}

// DeleteResult is returned by DeleteOne/DeleteMany.
type DeleteResult struct {
	DeletedCount int
	Acknowledged bool
}

// InsertOne inserts doc, assigning a generated "_id" if doc omits one.
func (c *Collection) InsertOne(ctx context.Context, doc domain.Document) (*InsertOneResult, error) {
	if doc == nil {
		return nil, domain.NewError(domain.InvalidArgument, "document must not be nil")
	}

	var result *InsertOneResult
	err := c.withMutation(ctx, func() error {
		id, err := c.store.Insert(doc)
		if err != nil {
			return err
		}
		result = &InsertOneResult{InsertedID: id, Acknowledged: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Find returns every document matching filter. A nil or empty filter
// matches everything.
func (c *Collection) Find(ctx context.Context, filter map[string]interface{}) ([]domain.Document, error) {
	var docs []domain.Document
	err := c.withRead(ctx, func() error {
		if id, ok := idOnlyFilter(filter); ok {
			if d := c.store.FindByID(id); d != nil {
				docs = []domain.Document{d}
			}
			return nil
		}
		f, err := query.Compile(filter)
		if err != nil {
			return err
		}
		docs = c.store.FindByFilter(f)
		return nil
	})
	return docs, err
}

// FindOne returns the first document matching filter, or nil if none
// match.
func (c *Collection) FindOne(ctx context.Context, filter map[string]interface{}) (domain.Document, error) {
	var doc domain.Document
	err := c.withRead(ctx, func() error {
		if id, ok := idOnlyFilter(filter); ok {
			doc = c.store.FindByID(id)
			return nil
		}
		f, err := query.Compile(filter)
		if err != nil {
			return err
		}
		doc = c.store.FindOneByFilter(f)
		return nil
	})
	return doc, err
}

// CountDocuments returns how many documents match filter.
func (c *Collection) CountDocuments(ctx context.Context, filter map[string]interface{}) (int, error) {
	var count int
	err := c.withRead(ctx, func() error {
		if id, ok := idOnlyFilter(filter); ok {
			if c.store.FindByID(id) != nil {
				count = 1
			}
			return nil
		}
		f, err := query.Compile(filter)
		if err != nil {
			return err
		}
		count = c.store.CountByFilter(f)
		return nil
	})
	return count, err
}

// UpdateOne applies update to the first document matching filter.
func (c *Collection) UpdateOne(ctx context.Context, filter, update map[string]interface{}) (*WriteResult, error) {
	if len(update) == 0 {
		return nil, domain.NewError(domain.InvalidUpdate, "update expression must not be empty")
	}

	result := &WriteResult{Acknowledged: true}
	err := c.withMutation(ctx, func() error {
		id, ok := idOnlyFilter(filter)
		if !ok {
			f, err := query.Compile(filter)
			if err != nil {
				return err
			}
			doc := c.store.FindOneByFilter(f)
			if doc == nil {
				return nil // matched 0, modified 0
			}
			id, _ = doc["_id"].(string)
		}

		r, err := c.store.UpdateByID(id, update)
		if err != nil {
			if kind, ok := domain.KindOf(err); ok && kind == domain.NotFound {
				return nil // matched 0, modified 0
			}
			return err
		}
		result.MatchedCount = r.Matched
		result.ModifiedCount = r.Modified
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateMany applies update to every document matching filter.
func (c *Collection) UpdateMany(ctx context.Context, filter, update map[string]interface{}) (*WriteResult, error) {
	if len(update) == 0 {
		return nil, domain.NewError(domain.InvalidUpdate, "update expression must not be empty")
	}

	result := &WriteResult{Acknowledged: true}
	err := c.withMutation(ctx, func() error {
		f, err := query.Compile(filter)
		if err != nil {
			return err
		}
		r, err := c.store.UpdateByFilter(f, update)
		if err != nil {
			return err
		}
		result.MatchedCount = r.Matched
		result.ModifiedCount = r.Modified
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceOne overwrites the first document matching filter with
// replacement, preserving "_id".
func (c *Collection) ReplaceOne(ctx context.Context, filter map[string]interface{}, replacement domain.Document) (*WriteResult, error) {
	if replacement == nil {
		return nil, domain.NewError(domain.InvalidArgument, "replacement document must not be nil")
	}

	result := &WriteResult{Acknowledged: true}
	err := c.withMutation(ctx, func() error {
		id, ok := idOnlyFilter(filter)
		if !ok {
			f, err := query.Compile(filter)
			if err != nil {
				return err
			}
			doc := c.store.FindOneByFilter(f)
			if doc == nil {
				return nil
			}
			id, _ = doc["_id"].(string)
		}

		before := c.store.FindByID(id)
		if before == nil {
			return nil
		}
		if err := c.store.ReplaceByID(id, replacement); err != nil {
			return err
		}
		result.MatchedCount = 1
		after := c.store.FindByID(id)
		if !objutil.DeepEqual(before, after) {
			result.ModifiedCount = 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteOne removes the first document matching filter.
func (c *Collection) DeleteOne(ctx context.Context, filter map[string]interface{}) (*DeleteResult, error) {
	result := &DeleteResult{Acknowledged: true}
	err := c.withMutation(ctx, func() error {
		id, ok := idOnlyFilter(filter)
		if !ok {
			f, err := query.Compile(filter)
			if err != nil {
				return err
			}
			doc := c.store.FindOneByFilter(f)
			if doc == nil {
				return nil
			}
			id, _ = doc["_id"].(string)
		}
		if err := c.store.DeleteByID(id); err != nil {
			if kind, ok := domain.KindOf(err); ok && kind == domain.NotFound {
				return nil
			}
			return err
		}
		result.DeletedCount = 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteMany removes every document matching filter.
func (c *Collection) DeleteMany(ctx context.Context, filter map[string]interface{}) (*DeleteResult, error) {
	result := &DeleteResult{Acknowledged: true}
	err := c.withMutation(ctx, func() error {
		f, err := query.Compile(filter)
		if err != nil {
			return err
		}
		result.DeletedCount = c.store.DeleteByFilter(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withRead runs fn under the process-wide lock, with the collection
// loaded, without any persistence step afterward.
func (c *Collection) withRead(ctx context.Context, fn func() error) error {
	handle, err := c.db.locks.AcquireProcessLock(ctx, c.db.processLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	return fn()
}

// withMutation runs fn (which must mutate c.store) under both the
// process-wide lock and the per-collection application lock, then bumps
// metadata and persists through FileService and the master index.
func (c *Collection) withMutation(ctx context.Context, fn func() error) error {
	handle, err := c.db.locks.AcquireProcessLock(ctx, c.db.processLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()

	operationID := c.db.instanceID + "-" + uuid.NewString()
	if err := c.db.locks.AcquireCollectionLock(ctx, c.name, operationID, int(c.db.collectionLockTimeout/time.Millisecond)); err != nil {
		return err
	}
	defer c.db.locks.ReleaseCollectionLock(ctx, c.name, operationID)

	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	if conflict, details, err := c.db.index.HasConflict(ctx, c.name, c.lastKnownToken); err != nil {
		return err
	} else if conflict {
		return domain.NewConflictError(details.CollectionName, details.Expected, details.Actual)
	}

	// Snapshot so a failed mutation or persist leaves the in-memory
	// state exactly as it was: callers never observe a half-applied
	// call, and the store stays consistent with what is on disk.
	snapshot := c.store.Clone()
	prevMeta := c.meta.Clone()

	if err := fn(); err != nil {
		c.store = snapshot
		return err
	}

	c.dirty = true
	if err := c.persist(ctx); err != nil {
		c.store = snapshot
		c.meta = prevMeta
		c.dirty = false
		return err
	}
	return nil
}

// ensureLoaded loads the collection's blob on first use in this
// process. Subsequent calls reuse the in-memory store.
func (c *Collection) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	meta, ok, err := c.db.index.GetCollection(ctx, c.name)
	if err != nil {
		return err
	}

	if !ok {
		now := time.Now()
		newMeta := domain.NewCollectionMetadata(c.name, "", c.db.index.GenerateModificationToken(), now)
		blob := domain.NewCollectionBlob(newMeta)
		handle, err := c.db.files.Create(ctx, c.name, blob)
		if err != nil {
			return err
		}
		newMeta.FileHandle = handle
		if err := c.db.index.AddCollection(ctx, newMeta); err != nil {
			return err
		}

		c.meta = newMeta
		c.store = docops.NewStore()
		c.lastKnownToken = newMeta.ModificationToken
		c.loaded = true
		return nil
	}

	blob, err := c.db.files.Read(ctx, meta.FileHandle)
	if err != nil {
		return err
	}

	store := docops.NewStore()
	docs := make([]domain.Document, 0, len(blob.Documents))
	for _, d := range blob.Documents {
		docs = append(docs, d)
	}
	store.Load(docs)

	c.meta = meta
	c.store = store
	c.lastKnownToken = meta.ModificationToken
	c.loaded = true
	return nil
}

// persist writes the collection's current state through FileService and
// publishes the new metadata to the master index. withMutation calls
// this after every mutation that succeeded; failed mutations are rolled
// back instead.
func (c *Collection) persist(ctx context.Context) error {
	if !c.dirty {
		return nil
	}

	now := time.Now()
	c.meta.DocumentCount = c.store.Len()
	c.meta.LastUpdated = now
	c.meta.ModificationToken = c.db.index.GenerateModificationToken()

	docsByID := make(map[string]domain.Document, c.store.Len())
	for _, d := range c.store.All() {
		id, _ := d["_id"].(string)
		docsByID[id] = d
	}
	blob := &domain.CollectionBlob{Documents: docsByID, Metadata: c.meta}

	if err := c.db.files.Write(ctx, c.meta.FileHandle, blob); err != nil {
		return err
	}
	if err := c.db.index.UpdateCollectionMetadata(ctx, c.meta); err != nil {
		return err
	}

	c.lastKnownToken = c.meta.ModificationToken
	c.dirty = false
	return nil
}

// Save flushes any pending in-memory mutation to the backend. Every
// public mutating method already persists before returning, so this is
// only useful after an external caller mutated the collection through
// some other path (e.g. during tests).
func (c *Collection) Save(ctx context.Context) error {
	handle, err := c.db.locks.AcquireProcessLock(ctx, c.db.processLockTimeout)
	if err != nil {
		return err
	}
	defer handle.Release()
	return c.persist(ctx)
}

func idOnlyFilter(filter map[string]interface{}) (string, bool) {
	if len(filter) != 1 {
		return "", false
	}
	v, ok := filter["_id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
