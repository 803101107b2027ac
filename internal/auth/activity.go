package auth

import (
	"sync"
	"time"
)

// ActivityTracker records the last request time per identity so stale
// credentials can be rejected before their signed expiry. Injected as an
// interface so multi-instance deployments can back it with a shared cache.
type ActivityTracker interface {
	// Record marks the identity active now (called at session creation).
	Record(email string)
	// Touch refreshes the identity's activity timestamp. It returns false
	// when the identity has been idle longer than the limit, in which case
	// the entry is dropped.
	Touch(email string) bool
	// Forget removes the identity's entry.
	Forget(email string)
}

type memoryActivityTracker struct {
	mu    sync.Mutex
	last  map[string]time.Time
	limit time.Duration
	now   func() time.Time
}

// NewActivityTracker returns an in-memory tracker with the given inactivity
// limit. State is process-lifetime only; a restart clears it.
func NewActivityTracker(limit time.Duration) ActivityTracker {
	return &memoryActivityTracker{
		last:  make(map[string]time.Time),
		limit: limit,
		now:   time.Now,
	}
}

func (t *memoryActivityTracker) Record(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[email] = t.now()
}

func (t *memoryActivityTracker) Touch(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	lastActive, ok := t.last[email]
	if !ok {
		return false
	}
	if t.now().Sub(lastActive) > t.limit {
		delete(t.last, email)
		return false
	}

	t.last[email] = t.now()
	return true
}

func (t *memoryActivityTracker) Forget(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, email)
}
