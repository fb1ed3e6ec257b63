// Package debounce provides the two timer mechanisms behind pinned-summary
// synchronization: a coalescing scheduler that collapses bursts of refresh
// triggers into one delayed execution per key, and a retry arm that keeps
// at most one pending backoff timer per key, replacing its payload when a
// newer rate-limit signal arrives.
//
// Timers are process-local and abandoned on shutdown; durable state is
// re-rendered from the store on the next start.
package debounce

import (
	"sync"
	"time"
)

// Scheduler coalesces triggers per key: each Trigger cancels the pending
// delayed execution for that key (if any) and arms a new one. Only the
// last trigger inside the delay window fires. A trigger that lands while
// an earlier execution is already running cannot cancel it; it arms a
// fresh timer, so exactly one more execution follows.
type Scheduler[K comparable] struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[K]*time.Timer
	fn     func(key K)
}

// NewScheduler creates a scheduler firing fn after delay per key.
func NewScheduler[K comparable](delay time.Duration, fn func(key K)) *Scheduler[K] {
	return &Scheduler[K]{
		delay:  delay,
		timers: make(map[K]*time.Timer),
		fn:     fn,
	}
}

// Trigger schedules (or reschedules) an execution for key.
func (s *Scheduler[K]) Trigger(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		// Stop returning false means the timer already fired and its
		// callback is running or done; the new timer below still arms,
		// which is exactly the "one more refresh" the caller expects.
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// Only unregister if we are still the current timer; a later
		// Trigger may have replaced us while we waited for the lock.
		if s.timers[key] == t {
			delete(s.timers, key)
		}
		s.mu.Unlock()
		s.fn(key)
	})
	s.timers[key] = t
}

// Pending reports whether an execution is currently scheduled for key.
func (s *Scheduler[K]) Pending(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Stop cancels all pending timers. Executions that already started are
// not interrupted.
func (s *Scheduler[K]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}

// Retry keeps at most one pending backoff timer per key. Re-arming a key
// replaces both the wait and the payload of the pending retry instead of
// stacking a second timer.
type Retry[K comparable] struct {
	mu     sync.Mutex
	margin time.Duration
	timers map[K]*time.Timer
}

// NewRetry creates a retry arm. margin is a safety pad added to every
// wait the caller passes in (platforms round their retry-after hints).
func NewRetry[K comparable](margin time.Duration) *Retry[K] {
	return &Retry[K]{
		margin: margin,
		timers: make(map[K]*time.Timer),
	}
}

// Arm schedules fn to run after wait+margin. If a retry is already
// pending for key it is replaced, payload included.
func (r *Retry[K]) Arm(key K, wait time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(wait+r.margin, func() {
		r.mu.Lock()
		if r.timers[key] != t {
			// Replaced or cancelled while we waited for the lock.
			r.mu.Unlock()
			return
		}
		delete(r.timers, key)
		r.mu.Unlock()
		fn()
	})
	r.timers[key] = t
}

// Pending reports whether a retry is currently armed for key.
func (r *Retry[K]) Pending(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[key]
	return ok
}

// Stop cancels all pending retries.
func (r *Retry[K]) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.timers {
		t.Stop()
		delete(r.timers, k)
	}
}
