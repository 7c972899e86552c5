package session

import (
	"sync"
	"time"
)

// Debouncer delivers the most recent pushed value once no new value has
// arrived for delay. At most one timer is pending at any time.
type Debouncer[T any] struct {
	delay  time.Duration
	onFire func(T)

	mu     sync.Mutex
	timer  *time.Timer
	latest T
	gen    uint64
}

// NewDebouncer returns a debouncer calling onFire on its own goroutine.
func NewDebouncer[T any](delay time.Duration, onFire func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, onFire: onFire}
}

// Push records v and restarts the quiet window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.latest = v
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending value, if any. The debouncer stays usable.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.latest = zero
}

// Pending reports whether a value is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A Push or Cancel that raced with the timer wins.
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.latest
	d.timer = nil
	d.mu.Unlock()

	d.onFire(v)
}
