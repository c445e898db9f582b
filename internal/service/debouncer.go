package service

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of values and delivers only the last one once the
// input has been quiet for the configured interval.
type Debouncer[T any] struct {
	interval time.Duration
	fire     func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	gen     uint64
	stopped bool
}

// NewDebouncer creates a trailing-edge debouncer. A non-positive interval delivers synchronously.
func NewDebouncer[T any](interval time.Duration, fire func(T)) *Debouncer[T] {
	return &Debouncer[T]{interval: interval, fire: fire}
}

// Push records a value and restarts the quiet window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.interval <= 0 {
		d.mu.Unlock()
		d.fire(v)
		return
	}
	d.pending = v
	d.armed = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.deliver(gen) })
	d.mu.Unlock()
}

func (d *Debouncer[T]) deliver(gen uint64) {
	d.mu.Lock()
	// a later Push superseded this timer
	if d.stopped || !d.armed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.armed = false
	d.mu.Unlock()
	d.fire(v)
}

// Flush delivers the pending value immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || !d.armed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.pending
	d.armed = false
	d.gen++
	d.mu.Unlock()
	d.fire(v)
}

// Cancel drops the pending value without stopping the debouncer.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Stop drops any pending value and ignores further pushes.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
