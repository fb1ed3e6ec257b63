// Package keylock provides lazily created mutexes keyed by string.
// Two goroutines asking for the same key always get the same mutex, so
// at most one of them holds it at a time. Locks are retained for the
// process lifetime; the key space is bounded by the number of live
// tasks and chats, which keeps the map small enough to never reap.
package keylock

import "sync"

// Map hands out per-key mutexes.
type Map struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty lock map.
func New() *Map {
	return &Map{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for key, creating it on first use.
func (m *Map) Get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lk, ok := m.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[key] = lk
	}
	return lk
}

// Len reports how many keys have been locked at least once.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
