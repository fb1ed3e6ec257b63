package tracker

import (
	"sync"
	"time"
)

// Throttle is a best-effort, lossy rate limiter: events arriving faster
// than the interval for a key are dropped, never queued or retried.
type Throttle struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewThrottle creates an empty throttle.
func NewThrottle() *Throttle {
	return &Throttle{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Allow reports whether an event for key may proceed, and records it if
// so. An event inside the interval since the last accepted one is
// rejected without updating the window.
func (t *Throttle) Allow(key string, interval time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < interval {
		return false
	}
	t.last[key] = now
	return true
}
