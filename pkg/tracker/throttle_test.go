package tracker

import (
	"testing"
	"time"
)

func TestThrottleAllowsFirstAndRejectsBurst(t *testing.T) {
	th := NewThrottle()
	clock := time.Unix(1000, 0)
	th.now = func() time.Time { return clock }

	if !th.Allow("k", time.Second) {
		t.Fatal("first event must pass")
	}
	clock = clock.Add(300 * time.Millisecond)
	if th.Allow("k", time.Second) {
		t.Fatal("event inside the interval must be dropped")
	}
	clock = clock.Add(800 * time.Millisecond)
	if !th.Allow("k", time.Second) {
		t.Fatal("event past the interval must pass")
	}
}

func TestThrottleRejectionDoesNotExtendWindow(t *testing.T) {
	th := NewThrottle()
	clock := time.Unix(1000, 0)
	th.now = func() time.Time { return clock }

	th.Allow("k", time.Second)

	// Hammering during the window must not push the window forward.
	for i := 0; i < 5; i++ {
		clock = clock.Add(150 * time.Millisecond)
		if th.Allow("k", time.Second) {
			t.Fatalf("event %d inside the window passed", i)
		}
	}
	clock = clock.Add(300 * time.Millisecond) // 1.05s after the accepted event
	if !th.Allow("k", time.Second) {
		t.Fatal("window was extended by rejected events")
	}
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	th := NewThrottle()
	clock := time.Unix(1000, 0)
	th.now = func() time.Time { return clock }

	if !th.Allow("a", time.Second) {
		t.Fatal("first event for a must pass")
	}
	if !th.Allow("b", time.Second) {
		t.Fatal("throttling a must not affect b")
	}
}
