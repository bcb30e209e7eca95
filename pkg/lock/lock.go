// Package lock implements a two-tier locking service: an in-process
// exclusive lock serialising every public mutation within one running
// instance, and a per-collection "application lock" cooperatively stored
// in the master index so separate instances sharing the same backend
// don't race each other.
//
// The process-wide lock is a hard primitive (a channel semaphore:
// preemption is impossible once acquired). The per-collection lock is advisory — it
// is a value in a JSON blob, not an OS-level lock — so correctness
// against adversarial or buggy callers still rests on the
// modification-token check in pkg/masterindex. Neither mechanism is
// redundant with the other.
package lock

import (
	"context"
	"log"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/masterindex"
)

// MinTimeout and DefaultTimeout bound lock acquisition: timeouts below
// MinTimeout are clamped up, with a warning logged.
const (
	MinTimeout     = 1 * time.Second
	DefaultTimeout = 30 * time.Second
)

// Service is the process-wide exclusive lock plus the per-collection
// application lock, backed by a master index for the latter's storage.
type Service struct {
	index *masterindex.Index

	// sem is a 1-buffered channel acting as a timeout-aware mutex: taking
	// a value acquires the lock, putting it back releases it. A plain
	// sync.Mutex has no TryLock-with-timeout in older Go, and explicit,
	// inspectable lock state is easier to reason about than relying on
	// standard-library internals.
	sem chan struct{}
}

// NewService returns a LockService whose per-collection locks are
// persisted through index.
func NewService(index *masterindex.Index) *Service {
	s := &Service{index: index, sem: make(chan struct{}, 1)}
	s.sem <- struct{}{}
	return s
}

// ProcessLockHandle is returned by AcquireProcessLock; Release must be
// called exactly once, on every exit path, to hand the lock back.
type ProcessLockHandle struct {
	s        *Service
	released bool
}

// Release returns the process-wide lock. Calling Release more than once
// is a no-op.
func (h *ProcessLockHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.s.sem <- struct{}{}
}

// AcquireProcessLock blocks until the process-wide lock is free or
// timeout elapses, whichever comes first. A zero or negative timeout is
// clamped to MinTimeout.
func (s *Service) AcquireProcessLock(ctx context.Context, timeout time.Duration) (*ProcessLockHandle, error) {
	timeout = clampTimeout(timeout)

	select {
	case <-s.sem:
		return &ProcessLockHandle{s: s}, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.sem:
		return &ProcessLockHandle{s: s}, nil
	case <-timer.C:
		return nil, domain.NewError(domain.LockTimeout, "process lock not acquired within %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcquireCollectionLock takes out the advisory per-collection
// application lock for name under operationID, valid until timeoutMs
// elapses. It fails with a LockTimeout error if a different, non-expired
// operation already holds it.
func (s *Service) AcquireCollectionLock(ctx context.Context, name, operationID string, timeoutMs int) error {
	ttl := clampTimeout(time.Duration(timeoutMs) * time.Millisecond)
	return s.index.AcquireCollectionLock(ctx, name, operationID, ttl)
}

// ReleaseCollectionLock releases the per-collection lock on name, but
// only if operationID matches the current holder; otherwise it is a
// no-op.
func (s *Service) ReleaseCollectionLock(ctx context.Context, name, operationID string) error {
	return s.index.ReleaseCollectionLock(ctx, name, operationID)
}

// IsCollectionLocked reports whether name currently carries a
// non-expired application lock.
func (s *Service) IsCollectionLocked(ctx context.Context, name string) (bool, error) {
	return s.index.IsCollectionLocked(ctx, name)
}

// CleanupExpiredCollectionLocks removes every lock entry whose
// expiresAt has passed and returns how many were removed.
func (s *Service) CleanupExpiredCollectionLocks(ctx context.Context) (int, error) {
	return s.index.CleanupExpiredCollectionLocks(ctx)
}

func clampTimeout(d time.Duration) time.Duration {
	if d < MinTimeout {
		log.Printf("WARN: lock timeout %s below minimum, clamped to %s", d, MinTimeout)
		return MinTimeout
	}
	return d
}
