package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/stationmap/internal/core/session"
)

type firings struct {
	mu  sync.Mutex
	got []int
}

func (f *firings) add(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, v)
}

func (f *firings) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.got...)
}

func TestDebouncer_BurstFiresOnceWithLatest(t *testing.T) {
	f := &firings{}
	d := session.NewDebouncer(100*time.Millisecond, f.add)

	for i := 1; i <= 10; i++ {
		d.Push(i)
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, func() bool { return len(f.snapshot()) == 1 })
	time.Sleep(150 * time.Millisecond)

	got := f.snapshot()
	if len(got) != 1 || got[0] != 10 {
		t.Errorf("expected a single firing with 10, got %v", got)
	}
	if d.Pending() {
		t.Error("expected nothing pending after firing")
	}
}

func TestDebouncer_SeparateWindowsFireSeparately(t *testing.T) {
	f := &firings{}
	d := session.NewDebouncer(10*time.Millisecond, f.add)

	d.Push(1)
	waitFor(t, func() bool { return len(f.snapshot()) == 1 })
	d.Push(2)
	waitFor(t, func() bool { return len(f.snapshot()) == 2 })

	got := f.snapshot()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	f := &firings{}
	d := session.NewDebouncer(20*time.Millisecond, f.add)

	d.Push(1)
	if !d.Pending() {
		t.Fatal("expected a pending value")
	}
	d.Cancel()
	time.Sleep(50 * time.Millisecond)
	if got := f.snapshot(); len(got) != 0 {
		t.Fatalf("expected no firing after cancel, got %v", got)
	}

	// Still usable after cancel.
	d.Push(2)
	waitFor(t, func() bool { return len(f.snapshot()) == 1 })
	if got := f.snapshot(); got[0] != 2 {
		t.Errorf("expected 2, got %v", got)
	}
}
