// Package docops implements the in-memory, per-collection document map
// and the CRUD primitives layered on top of it. It has no notion of
// persistence, locking, or collection metadata bookkeeping; Collection
// (pkg/gasdb) owns that and calls into this package once a collection's
// documents are loaded.
package docops

import (
	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
	"github.com/adfharrison1/gasdb-go/pkg/query"
	"github.com/adfharrison1/gasdb-go/pkg/update"
	"github.com/google/uuid"
)

const idField = "_id"

// Store is an in-memory map of document id to document for a single
// collection. It is not safe for concurrent use; callers (Collection)
// serialize access under the process-wide lock.
type Store struct {
	docs map[string]domain.Document
	// order preserves insertion order so FindAll/iteration results are
	// deterministic across calls.
	order []string
}

// NewStore returns an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]domain.Document)}
}

// Len returns the number of documents currently held.
func (s *Store) Len() int {
	return len(s.docs)
}

// All returns every document in insertion order. The slice and its
// documents are the store's own copies (via Insert/Replace/Update) and
// must not be mutated by the caller.
func (s *Store) All() []domain.Document {
	out := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		if d, ok := s.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy of the store. Collection snapshots before
// each mutation so a failed persist can roll the in-memory state back.
func (s *Store) Clone() *Store {
	cp := &Store{
		docs:  make(map[string]domain.Document, len(s.docs)),
		order: append([]string(nil), s.order...),
	}
	for id, d := range s.docs {
		cp.docs[id] = objutil.CloneDocument(d)
	}
	return cp
}

// Load replaces the store's contents with docs, used when a collection
// blob is deserialised from disk.
func (s *Store) Load(docs []domain.Document) {
	s.docs = make(map[string]domain.Document, len(docs))
	s.order = make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d[idField].(string)
		s.docs[id] = d
		s.order = append(s.order, id)
	}
}

// Insert validates doc, assigns a generated "_id" if absent, and stores
// a deep clone. Returns the assigned id.
func (s *Store) Insert(doc domain.Document) (string, error) {
	if domain.HasOperatorKeys(doc) {
		return "", domain.NewError(domain.InvalidDocument, "document must not contain operator-shaped keys")
	}
	if objutil.HasInvalidNumber(doc) {
		return "", domain.NewError(domain.InvalidDocument, "document must not contain NaN or infinite numbers")
	}

	stored := objutil.CloneDocument(doc)
	id, hasID := stored[idField]
	idStr, isStr := id.(string)
	switch {
	case !hasID:
		idStr = uuid.NewString()
		stored[idField] = idStr
	case !isStr || idStr == "":
		return "", domain.NewError(domain.InvalidDocument, "\"_id\" must be a non-empty string")
	}

	if _, exists := s.docs[idStr]; exists {
		return "", domain.NewError(domain.DuplicateKey, "document with _id %q already exists", idStr)
	}

	if s.docs == nil {
		s.docs = make(map[string]domain.Document)
	}
	s.docs[idStr] = stored
	s.order = append(s.order, idStr)
	return idStr, nil
}

// FindByID returns a clone of the document with the given id, or nil if
// absent.
func (s *Store) FindByID(id string) domain.Document {
	d, ok := s.docs[id]
	if !ok {
		return nil
	}
	return objutil.CloneDocument(d)
}

// FindByFilter returns clones of every document matching f.
func (s *Store) FindByFilter(f *query.Filter) []domain.Document {
	matched := query.FindAll(s.All(), f)
	out := make([]domain.Document, len(matched))
	for i, d := range matched {
		out[i] = objutil.CloneDocument(d)
	}
	return out
}

// FindOneByFilter returns a clone of the first document matching f, or
// nil if none match.
func (s *Store) FindOneByFilter(f *query.Filter) domain.Document {
	d := query.FindFirst(s.All(), f)
	if d == nil {
		return nil
	}
	return objutil.CloneDocument(d)
}

// CountByFilter returns the number of documents matching f.
func (s *Store) CountByFilter(f *query.Filter) int {
	return query.Count(s.All(), f)
}

// ReplaceByID overwrites the full document at id with replacement,
// preserving "_id". Returns NotFound if id is absent, ImmutableField if
// replacement disagrees with the existing "_id".
func (s *Store) ReplaceByID(id string, replacement domain.Document) error {
	existing, ok := s.docs[id]
	if !ok {
		return domain.NewError(domain.NotFound, "no document with _id %q", id)
	}
	if domain.HasOperatorKeys(replacement) {
		return domain.NewError(domain.InvalidDocument, "document must not contain operator-shaped keys")
	}
	if objutil.HasInvalidNumber(replacement) {
		return domain.NewError(domain.InvalidDocument, "document must not contain NaN or infinite numbers")
	}
	if newID, hasID := replacement[idField]; hasID && !objutil.DeepEqual(newID, existing[idField]) {
		return domain.NewError(domain.ImmutableField, "replacement must not change _id")
	}

	stored := objutil.CloneDocument(replacement)
	stored[idField] = existing[idField]
	s.docs[id] = stored
	return nil
}

// UpdateResult reports how many documents an update-style call touched.
type UpdateResult struct {
	Matched  int
	Modified int
}

// UpdateByID applies upd (an update-operator expression) to the document
// at id. Returns NotFound if id is absent; otherwise Matched is always 1
// and Modified is 1 unless the update produced a structurally identical
// document.
func (s *Store) UpdateByID(id string, upd map[string]interface{}) (UpdateResult, error) {
	existing, ok := s.docs[id]
	if !ok {
		return UpdateResult{}, domain.NewError(domain.NotFound, "no document with _id %q", id)
	}
	updated, err := update.Apply(existing, upd)
	if err != nil {
		return UpdateResult{}, err
	}
	s.docs[id] = updated
	modified := 0
	if !objutil.DeepEqual(existing, updated) {
		modified = 1
	}
	return UpdateResult{Matched: 1, Modified: modified}, nil
}

// UpdateByFilter applies upd to every document matching f.
func (s *Store) UpdateByFilter(f *query.Filter, upd map[string]interface{}) (UpdateResult, error) {
	result := UpdateResult{}
	for _, id := range s.order {
		doc, ok := s.docs[id]
		if !ok || !f.Matches(doc) {
			continue
		}
		result.Matched++
		updated, err := update.Apply(doc, upd)
		if err != nil {
			return UpdateResult{}, err
		}
		s.docs[id] = updated
		if !objutil.DeepEqual(doc, updated) {
			result.Modified++
		}
	}
	return result, nil
}

// DeleteByID removes the document with the given id. Returns NotFound if
// absent.
func (s *Store) DeleteByID(id string) error {
	if _, ok := s.docs[id]; !ok {
		return domain.NewError(domain.NotFound, "no document with _id %q", id)
	}
	delete(s.docs, id)
	s.removeFromOrder(id)
	return nil
}

// DeleteByFilter removes every document matching f and returns the count
// removed.
func (s *Store) DeleteByFilter(f *query.Filter) int {
	var toDelete []string
	for _, id := range s.order {
		if doc, ok := s.docs[id]; ok && f.Matches(doc) {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		delete(s.docs, id)
	}
	if len(toDelete) > 0 {
		removed := make(map[string]bool, len(toDelete))
		for _, id := range toDelete {
			removed[id] = true
		}
		kept := s.order[:0]
		for _, id := range s.order {
			if !removed[id] {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	return len(toDelete)
}

func (s *Store) removeFromOrder(id string) {
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
