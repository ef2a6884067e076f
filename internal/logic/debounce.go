package logic

import "time"

// DefaultDebounce is the minimum spacing between two accepted presses.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer turns raw button samples into accepted presses.
//
// It is level based: a button held low is accepted again every window.
type Debouncer struct {
	window time.Duration
	last   time.Time
	seen   bool
}

// NewDebouncer creates a Debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Poll returns true if the sample is an accepted press.
// The input has a pull-up, so pressed reads Low.
func (d *Debouncer) Poll(level Level, now time.Time) bool {
	if level != Low {
		return false
	}
	if d.seen && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	d.seen = true
	return true
}

// LastAccepted returns the time of the last accepted press.
func (d *Debouncer) LastAccepted() (time.Time, bool) {
	return d.last, d.seen
}
