package systems

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer collapses bursts of values into the last one, released once no
// new value has arrived for the delay. It is polled from the owning loop
// and never calls back on another goroutine.
type Debouncer[T any] struct {
	clock clockwork.Clock
	delay time.Duration
	timer clockwork.Timer
	armed bool
	value T
}

// NewDebouncer creates a debouncer on clock.
func NewDebouncer[T any](clock clockwork.Clock, delay time.Duration) *Debouncer[T] {
	return &Debouncer[T]{clock: clock, delay: delay}
}

// Push records v and restarts the quiet period.
func (d *Debouncer[T]) Push(v T) {
	d.value = v
	d.armed = true
	if d.timer == nil {
		d.timer = d.clock.NewTimer(d.delay)
		return
	}
	if !d.timer.Stop() {
		// Drain a fire that was never polled
		select {
		case <-d.timer.Chan():
		default:
		}
	}
	d.timer.Reset(d.delay)
}

// Poll returns the settled value once the quiet period has elapsed.
func (d *Debouncer[T]) Poll() (T, bool) {
	var zero T
	if !d.armed {
		return zero, false
	}
	select {
	case <-d.timer.Chan():
		d.armed = false
		v := d.value
		d.value = zero
		return v, true
	default:
		return zero, false
	}
}

// Pending reports whether a value is waiting for its quiet period.
func (d *Debouncer[T]) Pending() bool {
	return d.armed
}

// Stop discards any waiting value.
func (d *Debouncer[T]) Stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	var zero T
	d.value = zero
}
