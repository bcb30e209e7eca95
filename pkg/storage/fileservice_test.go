package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBlobStore is a hand-written in-memory driver.BlobStore for
// deterministic tests, in place of a mocking framework.
type fakeBlobStore struct {
	files    map[string][]byte
	failNext int
	reads    int
	writes   int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{files: make(map[string][]byte)}
}

func (f *fakeBlobStore) ReadFile(_ context.Context, handle string) ([]byte, error) {
	f.reads++
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("simulated backend failure")
	}
	data, ok := f.files[handle]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeBlobStore) WriteFile(_ context.Context, handle string, data []byte) error {
	f.writes++
	if f.failNext > 0 {
		f.failNext--
		return errors.New("simulated backend failure")
	}
	f.files[handle] = data
	return nil
}

func (f *fakeBlobStore) CreateFile(_ context.Context, name string, data []byte) (string, error) {
	handle := name + "-handle"
	f.files[handle] = data
	return handle, nil
}

func (f *fakeBlobStore) DeleteFile(_ context.Context, handle string) error {
	delete(f.files, handle)
	return nil
}

func TestFileService_CreateReadWrite(t *testing.T) {
	store := newFakeBlobStore()
	fs := New(store)
	ctx := context.Background()

	meta := domain.NewCollectionMetadata("widgets", "", "tok-1", time.Now())
	blob := domain.NewCollectionBlob(meta)
	blob.Documents["a"] = domain.Document{"_id": "a", "n": float64(1)}

	handle, err := fs.Create(ctx, "widgets", blob)
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	got, err := fs.Read(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Documents["a"]["_id"])
	assert.Equal(t, "widgets", got.Metadata.Name)
}

func TestFileService_WriteSuppressesNoOp(t *testing.T) {
	store := newFakeBlobStore()
	fs := New(store, WithReadCoalesceWindow(0))
	ctx := context.Background()

	meta := domain.NewCollectionMetadata("widgets", "", "tok-1", time.Now())
	blob := domain.NewCollectionBlob(meta)
	handle, err := fs.Create(ctx, "widgets", blob)
	require.NoError(t, err)

	writesBefore := store.writes
	require.NoError(t, fs.Write(ctx, handle, blob))
	assert.Equal(t, writesBefore, store.writes, "identical write should be suppressed")

	blob.Documents["b"] = domain.Document{"_id": "b"}
	require.NoError(t, fs.Write(ctx, handle, blob))
	assert.Equal(t, writesBefore+1, store.writes, "changed content must hit the backend")
}

func TestFileService_ReadCoalescesWithinWindow(t *testing.T) {
	store := newFakeBlobStore()
	fs := New(store, WithReadCoalesceWindow(time.Hour))
	ctx := context.Background()

	meta := domain.NewCollectionMetadata("widgets", "", "tok-1", time.Now())
	blob := domain.NewCollectionBlob(meta)
	handle, err := fs.Create(ctx, "widgets", blob)
	require.NoError(t, err)

	readsBefore := store.reads
	_, err = fs.Read(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, readsBefore, store.reads, "read within the coalesce window must not hit the backend")
}

func TestFileService_CircuitBreakerTripsAndCoolsOff(t *testing.T) {
	store := newFakeBlobStore()
	fs := New(store, WithCircuitBreaker(2, 20*time.Millisecond), WithReadCoalesceWindow(0))
	ctx := context.Background()

	meta := domain.NewCollectionMetadata("widgets", "", "tok-1", time.Now())
	blob := domain.NewCollectionBlob(meta)
	handle, err := fs.Create(ctx, "widgets", blob)
	require.NoError(t, err)

	store.failNext = 2
	_, err = fs.Read(ctx, handle)
	require.Error(t, err)
	_, err = fs.Read(ctx, handle)
	require.Error(t, err)

	_, err = fs.Read(ctx, handle)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.BackendUnavailable, kind)

	time.Sleep(30 * time.Millisecond)
	_, err = fs.Read(ctx, handle)
	assert.NoError(t, err, "breaker should allow a probe call through after cool-off")
}
