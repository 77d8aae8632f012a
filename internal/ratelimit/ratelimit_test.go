package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(now *time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = func() time.Time { return *now }
	return s
}

// --- Admission ---

func TestAdmitUpToLimit(t *testing.T) {
	now := time.Now()
	l := New(newTestStore(&now), 5, time.Minute)

	for i := 1; i <= 5; i++ {
		res, err := l.Check(context.Background(), "k")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if res.Count != i {
			t.Errorf("request %d: expected count %d, got %d", i, i, res.Count)
		}
	}
}

func TestRejectOverLimit(t *testing.T) {
	now := time.Now()
	l := New(newTestStore(&now), 5, time.Minute)

	for i := 0; i < 5; i++ {
		l.Check(context.Background(), "k")
	}
	res, err := l.Check(context.Background(), "k")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Allowed {
		t.Error("expected 6th request rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", res.Remaining)
	}
	if !res.ResetAt.After(now) {
		t.Error("expected ResetAt in the future")
	}
}

func TestRemainingCountsDown(t *testing.T) {
	now := time.Now()
	l := New(newTestStore(&now), 3, time.Minute)

	want := []int{2, 1, 0, 0}
	for i, w := range want {
		res, _ := l.Check(context.Background(), "k")
		if res.Remaining != w {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, w, res.Remaining)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Now()
	l := New(newTestStore(&now), 1, time.Minute)

	if res, _ := l.Check(context.Background(), "a"); !res.Allowed {
		t.Error("expected first request for a allowed")
	}
	if res, _ := l.Check(context.Background(), "b"); !res.Allowed {
		t.Error("expected first request for b allowed")
	}
	if res, _ := l.Check(context.Background(), "a"); res.Allowed {
		t.Error("expected second request for a rejected")
	}
}

// --- Window rollover ---

func TestWindowRollover(t *testing.T) {
	now := time.Now()
	l := New(newTestStore(&now), 2, time.Minute)

	l.Check(context.Background(), "k")
	l.Check(context.Background(), "k")
	if res, _ := l.Check(context.Background(), "k"); res.Allowed {
		t.Fatal("expected rejection before rollover")
	}

	now = now.Add(61 * time.Second)
	res, _ := l.Check(context.Background(), "k")
	if !res.Allowed {
		t.Error("expected fresh window to admit")
	}
	if res.Count != 1 {
		t.Errorf("expected count 1 in new window, got %d", res.Count)
	}
}

func TestRolloverExactlyAtReset(t *testing.T) {
	now := time.Now()
	store := newTestStore(&now)
	l := New(store, 10, time.Minute)

	res1, _ := l.Check(context.Background(), "k")
	now = res1.ResetAt // now == windowResetAt: window has ended
	res2, _ := l.Check(context.Background(), "k")
	if res2.Count != 1 {
		t.Errorf("expected new window at reset instant, got count %d", res2.Count)
	}
}

// --- Concurrency ---

func TestConcurrentIncrementsLoseNoUpdates(t *testing.T) {
	store := NewMemoryStore()
	l := New(store, 1000, time.Minute)

	const goroutines = 50
	const perGoroutine = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := l.Check(context.Background(), "shared"); err != nil {
					t.Errorf("Check: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	res, _ := l.Check(context.Background(), "shared")
	if res.Count != goroutines*perGoroutine+1 {
		t.Errorf("expected count %d, got %d", goroutines*perGoroutine+1, res.Count)
	}
}

// --- Store hygiene ---

func TestSweepDropsDeadWindows(t *testing.T) {
	now := time.Now()
	store := newTestStore(&now)
	l := New(store, 100, time.Second)

	for i := 0; i < 100; i++ {
		l.Check(context.Background(), string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	now = now.Add(2 * time.Second)
	for i := 0; i < sweepEvery; i++ {
		l.Check(context.Background(), "fresh")
	}
	// All pre-rollover keys are dead; only "fresh" should survive the sweep.
	if n := store.Len(); n != 1 {
		t.Errorf("expected 1 live key after sweep, got %d", n)
	}
}

func TestDefaults(t *testing.T) {
	l := New(NewMemoryStore(), 0, 0)
	if l.Limit() != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, l.Limit())
	}
	if l.window != DefaultWindow {
		t.Errorf("expected default window %s, got %s", DefaultWindow, l.window)
	}
}
