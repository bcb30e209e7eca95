package storage

import (
	"log"
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker trips after a run of consecutive backend failures and
// fails fast with BackendUnavailable until a cool-off elapses. It is a
// small mutex-guarded state struct rather than a pulled-in breaker
// library, sized for a single-process library rather than a networked
// service.
type circuitBreaker struct {
	mu sync.Mutex

	threshold int
	coolOff   time.Duration

	state         breakerState
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

func newCircuitBreaker(threshold int, coolOff time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, coolOff: coolOff}
}

// Allow reports whether a call may proceed. It returns false while the
// breaker is open and the cool-off hasn't elapsed; once elapsed it lets
// exactly one probe call through (half-open) and holds the breaker open
// for any other concurrent caller until that probe resolves.
func (b *circuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) < b.coolOff {
			return false
		}
		if b.probeInFlight {
			return false
		}
		b.state = breakerHalfOpen
		b.probeInFlight = true
		return true
	default: // breakerHalfOpen
		return false
	}
}

// RecordSuccess resets the breaker to closed.
func (b *circuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != breakerClosed {
		log.Printf("INFO: circuit breaker closing after successful probe")
	}
	b.state = breakerClosed
	b.failures = 0
	b.probeInFlight = false
}

// RecordFailure counts a failure, tripping the breaker open once
// threshold consecutive failures have been seen.
func (b *circuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probeInFlight = false
	b.failures++
	if b.failures >= b.threshold && b.state != breakerOpen {
		log.Printf("WARN: circuit breaker tripping open after %d consecutive failures", b.failures)
		b.state = breakerOpen
		b.openedAt = time.Now()
	} else if b.state == breakerHalfOpen {
		// Probe failed: stay open and restart the cool-off window.
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}
