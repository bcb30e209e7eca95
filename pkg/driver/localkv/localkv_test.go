package localkv_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/driver/localkv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *localkv.Store {
	t.Helper()
	return localkv.New(filepath.Join(t.TempDir(), "props.json"))
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "props.json")

	s := localkv.New(path)
	require.NoError(t, s.Set(ctx, "k", "v"))

	reopened := localkv.New(path)
	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestWithExclusiveLockSerializesCallers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.WithExclusiveLock(ctx, time.Minute, func() error {
			close(entered)
			<-release
			return s.Set(ctx, "holder", "first")
		})
	}()

	<-entered

	// A second caller cannot get the lock while the first holds it.
	err := s.WithExclusiveLock(ctx, 20*time.Millisecond, func() error { return nil })
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.LockTimeout, kind)

	close(release)
	require.NoError(t, <-done)

	// Released on exit, so the lock is available again.
	require.NoError(t, s.WithExclusiveLock(ctx, time.Second, func() error {
		return s.Set(ctx, "holder", "second")
	}))

	v, _, err := s.Get(ctx, "holder")
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestWithExclusiveLockHonorsContext(t *testing.T) {
	s := newStore(t)

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		s.WithExclusiveLock(context.Background(), time.Minute, func() error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.WithExclusiveLock(ctx, time.Minute, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
