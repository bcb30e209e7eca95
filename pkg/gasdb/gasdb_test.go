package gasdb_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/gasdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore and fakePropertyStore are in-memory driver
// implementations shared between "instances" in cross-instance tests,
// standing in for the real backend.
type fakeBlobStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	seq        int
	failWrites bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{files: make(map[string][]byte)}
}

func (f *fakeBlobStore) ReadFile(_ context.Context, handle string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[handle]
	if !ok {
		return nil, errors.New("no such handle")
	}
	return data, nil
}

func (f *fakeBlobStore) WriteFile(_ context.Context, handle string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("simulated backend failure")
	}
	if _, ok := f.files[handle]; !ok {
		return errors.New("no such handle")
	}
	f.files[handle] = data
	return nil
}

func (f *fakeBlobStore) CreateFile(_ context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	handle := fmt.Sprintf("%s-%d", name, f.seq)
	f.files[handle] = data
	return handle, nil
}

func (f *fakeBlobStore) DeleteFile(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, handle)
	return nil
}

type fakePropertyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakePropertyStore() *fakePropertyStore {
	return &fakePropertyStore{values: make(map[string]string)}
}

func (f *fakePropertyStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakePropertyStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakePropertyStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakePropertyStore) WithExclusiveLock(_ context.Context, _ time.Duration, fn func() error) error {
	return fn()
}

func openTestDB(t *testing.T) *gasdb.Database {
	t.Helper()
	return gasdb.Open(newFakeBlobStore(), newFakePropertyStore())
}

func TestInsertAndFind(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	res, err := coll.InsertOne(ctx, domain.Document{"_id": "a", "name": map[string]interface{}{"first": "Anna"}})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, "a", res.InsertedID)

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "b", "name": map[string]interface{}{"first": "Ben"}})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, map[string]interface{}{"name.first": "Anna"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["_id"])
}

func TestInsertAssignsIdWhenAbsent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	res, err := coll.InsertOne(ctx, domain.Document{"name": "Anna"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.InsertedID)

	doc, err := coll.FindOne(ctx, map[string]interface{}{"_id": res.InsertedID})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Anna", doc["name"])
}

func TestDuplicateInsertRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "a"})
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "a"})
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.DuplicateKey, kind)

	count, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateOneAppliesOperators(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "counters")
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "x", "n": float64(10)})
	require.NoError(t, err)

	res, err := coll.UpdateOne(ctx, map[string]interface{}{"_id": "x"}, map[string]interface{}{
		"$inc": map[string]interface{}{"n": float64(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, 1, res.ModifiedCount)

	doc, err := coll.FindOne(ctx, map[string]interface{}{"_id": "x"})
	require.NoError(t, err)
	assert.Equal(t, float64(15), doc["n"])
}

func TestUpdateOneNoMatch(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "counters")
	require.NoError(t, err)

	res, err := coll.UpdateOne(ctx, map[string]interface{}{"_id": "missing"}, map[string]interface{}{
		"$set": map[string]interface{}{"n": float64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.MatchedCount)
	assert.Equal(t, 0, res.ModifiedCount)
}

func TestUpdateManyAndLogicalFilter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "persons")
	require.NoError(t, err)

	ages := []float64{29, 0, 45, 38, 50, 65}
	active := []bool{true, false, true, true, false, true}
	for i := range ages {
		_, err := coll.InsertOne(ctx, domain.Document{
			"_id":      fmt.Sprintf("p%d", i),
			"age":      ages[i],
			"isActive": active[i],
		})
		require.NoError(t, err)
	}

	filter := map[string]interface{}{
		"$and": []interface{}{
			map[string]interface{}{"age": map[string]interface{}{"$gt": float64(25)}},
			map[string]interface{}{"isActive": true},
		},
	}

	docs, err := coll.Find(ctx, filter)
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d["_id"].(string)
	}
	assert.ElementsMatch(t, []string{"p0", "p2", "p3", "p5"}, ids)

	res, err := coll.UpdateMany(ctx, filter, map[string]interface{}{
		"$set": map[string]interface{}{"cohort": "active-adult"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.MatchedCount)
	assert.Equal(t, 4, res.ModifiedCount)
}

func TestReplaceOnePreservesId(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "a", "name": "Anna", "age": float64(29)})
	require.NoError(t, err)

	res, err := coll.ReplaceOne(ctx, map[string]interface{}{"_id": "a"}, domain.Document{"name": "Anne"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchedCount)
	assert.Equal(t, 1, res.ModifiedCount)

	doc, err := coll.FindOne(ctx, map[string]interface{}{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", doc["_id"])
	assert.Equal(t, "Anne", doc["name"])
	_, hasAge := doc["age"]
	assert.False(t, hasAge)
}

func TestDeleteManyAdjustsCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := coll.InsertOne(ctx, domain.Document{
			"_id":  fmt.Sprintf("p%d", i),
			"even": i%2 == 0,
		})
		require.NoError(t, err)
	}

	filter := map[string]interface{}{"even": true}
	res, err := coll.DeleteMany(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedCount)

	remaining, err := coll.CountDocuments(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	total, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestEmptyUpdateRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)

	_, err = coll.UpdateOne(ctx, map[string]interface{}{"_id": "a"}, map[string]interface{}{})
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.InvalidUpdate, kind)
}

func TestCollectionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobStore()
	props := newFakePropertyStore()

	db := gasdb.Open(blobs, props)
	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, domain.Document{"_id": "a", "name": "Anna"})
	require.NoError(t, err)

	reopened := gasdb.Open(blobs, props)
	coll2, err := reopened.Collection(ctx, "people")
	require.NoError(t, err)

	doc, err := coll2.FindOne(ctx, map[string]interface{}{"_id": "a"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Anna", doc["name"])
}

func TestListAndDropCollections(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, name := range []string{"users", "orders"} {
		coll, err := db.CreateCollection(ctx, name)
		require.NoError(t, err)
		_, err = coll.InsertOne(ctx, domain.Document{"seed": true})
		require.NoError(t, err)
	}

	names, err := db.ListCollections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "orders"}, names)

	require.NoError(t, db.DropCollection(ctx, "orders"))

	names, err = db.ListCollections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users"}, names)
}

func TestDropNeverPersistedCollection(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	assert.NoError(t, db.DropCollection(ctx, "ghost"))
}

func TestFailedPersistRollsBackInMemoryState(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobStore()
	props := newFakePropertyStore()

	db := gasdb.Open(blobs, props)
	coll, err := db.Collection(ctx, "people")
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, domain.Document{"_id": "a", "n": float64(1)})
	require.NoError(t, err)

	blobs.mu.Lock()
	blobs.failWrites = true
	blobs.mu.Unlock()

	_, err = coll.InsertOne(ctx, domain.Document{"_id": "b"})
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.BackendUnavailable, kind)

	blobs.mu.Lock()
	blobs.failWrites = false
	blobs.mu.Unlock()

	// The failed insert must not be visible in memory.
	count, err := coll.CountDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCrossInstanceConflictDetected(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobStore()
	props := newFakePropertyStore()

	instanceA := gasdb.Open(blobs, props)
	instanceB := gasdb.Open(blobs, props)

	collA, err := instanceA.Collection(ctx, "shared")
	require.NoError(t, err)
	_, err = collA.InsertOne(ctx, domain.Document{"_id": "seed", "n": float64(0)})
	require.NoError(t, err)

	// Instance A reads the collection, pinning its last-known token.
	_, err = collA.FindOne(ctx, map[string]interface{}{"_id": "seed"})
	require.NoError(t, err)

	// Instance B writes the same collection, minting a new token.
	collB, err := instanceB.Collection(ctx, "shared")
	require.NoError(t, err)
	_, err = collB.UpdateOne(ctx, map[string]interface{}{"_id": "seed"}, map[string]interface{}{
		"$inc": map[string]interface{}{"n": float64(1)},
	})
	require.NoError(t, err)

	// Instance A's next publish attempt must fail with a Conflict and
	// leave B's write untouched.
	_, err = collA.UpdateOne(ctx, map[string]interface{}{"_id": "seed"}, map[string]interface{}{
		"$inc": map[string]interface{}{"n": float64(10)},
	})
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.Conflict, kind)

	fresh := gasdb.Open(blobs, props)
	collFresh, err := fresh.Collection(ctx, "shared")
	require.NoError(t, err)
	doc, err := collFresh.FindOne(ctx, map[string]interface{}{"_id": "seed"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc["n"])
}

func TestCrossInstanceCollectionLockBlocksWriter(t *testing.T) {
	ctx := context.Background()
	blobs := newFakeBlobStore()
	props := newFakePropertyStore()

	instanceA := gasdb.Open(blobs, props)
	instanceB := gasdb.Open(blobs, props)

	collA, err := instanceA.Collection(ctx, "shared")
	require.NoError(t, err)
	_, err = collA.InsertOne(ctx, domain.Document{"_id": "seed"})
	require.NoError(t, err)

	// Simulate instance A dying mid-operation with the application lock
	// still held.
	require.NoError(t, instanceA.Locks().AcquireCollectionLock(ctx, "shared", "op-A", 60_000))

	collB, err := instanceB.Collection(ctx, "shared")
	require.NoError(t, err)
	_, err = collB.InsertOne(ctx, domain.Document{"_id": "blocked"})
	require.Error(t, err)
	kind, _ := domain.KindOf(err)
	assert.Equal(t, domain.LockTimeout, kind)

	// Releasing unblocks instance B.
	require.NoError(t, instanceA.Locks().ReleaseCollectionLock(ctx, "shared", "op-A"))
	_, err = collB.InsertOne(ctx, domain.Document{"_id": "blocked"})
	require.NoError(t, err)
}
