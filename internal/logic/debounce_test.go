package logic

import (
	"testing"
	"time"
)

func TestDebouncerFirstPressAccepted(t *testing.T) {
	d := NewDebouncer(200 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !d.Poll(Low, now) {
		t.Error("expected first press to be accepted")
	}
	last, ok := d.LastAccepted()
	if !ok || !last.Equal(now) {
		t.Errorf("expected last accepted %v, got %v (ok=%v)", now, last, ok)
	}
}

func TestDebouncerReleasedIgnored(t *testing.T) {
	d := NewDebouncer(200 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if d.Poll(High, now.Add(time.Duration(i)*time.Second)) {
			t.Errorf("iteration %d: released level should never be accepted", i)
		}
	}
	if _, ok := d.LastAccepted(); ok {
		t.Error("expected no accepted press")
	}
}

func TestDebouncerWindow(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"bounce", 5 * time.Millisecond, 1},
		{"just inside window", 199 * time.Millisecond, 1},
		{"exactly window", 200 * time.Millisecond, 2},
		{"well apart", 1 * time.Second, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(200 * time.Millisecond)
			now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

			got := 0
			if d.Poll(Low, now) {
				got++
			}
			if d.Poll(Low, now.Add(tt.gap)) {
				got++
			}
			if got != tt.want {
				t.Errorf("expected %d accepted presses, got %d", tt.want, got)
			}
		})
	}
}

func TestDebouncerRejectedPressDoesNotExtendWindow(t *testing.T) {
	d := NewDebouncer(200 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	d.Poll(Low, now)
	if d.Poll(Low, now.Add(150*time.Millisecond)) {
		t.Fatal("press inside window should be rejected")
	}
	// Measured from the accepted press, not the rejected one.
	if !d.Poll(Low, now.Add(200*time.Millisecond)) {
		t.Error("press 200ms after the accepted one should be accepted")
	}
}

// A held button is re-accepted every window. This is level-based debounce.
func TestDebouncerHeldButtonRepeats(t *testing.T) {
	d := NewDebouncer(200 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	accepted := 0
	// Held low for one second, sampled every 5ms.
	for ms := 0; ms < 1000; ms += 5 {
		if d.Poll(Low, now.Add(time.Duration(ms)*time.Millisecond)) {
			accepted++
		}
	}
	// Accepted at 0, 200, 400, 600, 800.
	if accepted != 5 {
		t.Errorf("expected 5 accepted presses while held, got %d", accepted)
	}
}

func TestDebouncerAcceptedPressesSpacedByWindow(t *testing.T) {
	window := 200 * time.Millisecond
	d := NewDebouncer(window)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Irregular bouncy samples.
	offsets := []int{0, 3, 7, 40, 90, 199, 201, 230, 260, 399, 400, 401, 650, 651, 849, 850}
	var accepted []time.Time
	for _, ms := range offsets {
		ts := now.Add(time.Duration(ms) * time.Millisecond)
		if d.Poll(Low, ts) {
			accepted = append(accepted, ts)
		}
	}

	for i := 1; i < len(accepted); i++ {
		if gap := accepted[i].Sub(accepted[i-1]); gap < window {
			t.Errorf("presses %d and %d only %v apart", i-1, i, gap)
		}
	}
	if len(accepted) != 5 {
		t.Errorf("expected 5 accepted presses (0, 201, 401, 650, 850), got %d", len(accepted))
	}
}
