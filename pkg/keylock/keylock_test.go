package keylock

import (
	"sync"
	"testing"
)

func TestGetReturnsSameMutexPerKey(t *testing.T) {
	m := New()
	a := m.Get("task:1")
	b := m.Get("task:1")
	if a != b {
		t.Fatal("expected the same mutex for the same key")
	}
	c := m.Get("chat:1")
	if a == c {
		t.Fatal("expected distinct mutexes for distinct keys")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", m.Len())
	}
}

func TestSerializesSameKey(t *testing.T) {
	m := New()
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lk := m.Get("task:42")
			lk.Lock()
			counter++
			lk.Unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments, got %d", workers, counter)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	m := New()
	lk := m.Get("task:1")
	lk.Lock()
	defer lk.Unlock()

	done := make(chan struct{})
	go func() {
		other := m.Get("task:2")
		other.Lock()
		other.Unlock()
		close(done)
	}()
	<-done
}
