package logic

import (
	"fmt"
	"time"
)

// Sequencer modes.
const (
	ModeCrossing = "crossing"
	ModeTraffic  = "traffic"
)

// DefaultPeriod is the free-running traffic light period.
const DefaultPeriod = 3000 * time.Millisecond

// Signal is a traffic light phase.
type Signal int

const (
	SignalRed Signal = iota
	SignalYellow
	SignalGreen
)

func (s Signal) String() string {
	switch s {
	case SignalRed:
		return "RED"
	case SignalYellow:
		return "YELLOW"
	case SignalGreen:
		return "GREEN"
	}
	return fmt.Sprintf("SIGNAL(%d)", int(s))
}

// Lights returns the outputs for the signal. There is no yellow lamp: yellow
// is red and green lit together, and the second output stays off.
func (s Signal) Lights() Lights {
	switch s {
	case SignalRed:
		return Lights{First: true}
	case SignalYellow:
		return Lights{First: true, Third: true}
	case SignalGreen:
		return Lights{Third: true}
	}
	return Lights{}
}

// TrafficLight is the free-running sequencer. Every tick lights the current
// signal and advances to the next one; it never stops.
type TrafficLight struct {
	period time.Duration
	signal Signal
	lights Lights
	counts Counts
}

// NewTrafficLight creates a TrafficLight that starts at red.
func NewTrafficLight(period time.Duration) *TrafficLight {
	return &TrafficLight{period: period}
}

// Boot switches every output off and arms the repeating tick.
// The first signal is lit on the first tick, one period after boot.
func (t *TrafficLight) Boot(now time.Time) Step {
	t.lights = Lights{}
	return Step{
		Lights: &Lights{},
		Arm:    &Schedule{Delay: t.period, Repeat: true, Alarm: Alarm{Reason: ReasonTick}},
	}
}

// Poll ignores the button; the traffic light has none.
func (t *TrafficLight) Poll(level Level, now time.Time) Step {
	return Step{}
}

// Fire handles a tick.
func (t *TrafficLight) Fire(alarm Alarm, now time.Time) (Step, error) {
	if alarm.Reason != ReasonTick {
		return Step{}, fmt.Errorf("%w: reason %s on traffic light", ErrInvalidPhaseTransition, alarm.Reason)
	}
	return t.Advance(now), nil
}

// Advance lights the current signal and moves to the next.
func (t *TrafficLight) Advance(now time.Time) Step {
	lit := t.signal
	t.lights = lit.Lights()
	t.signal = (t.signal + 1) % 3
	t.counts.Ticks++

	l := t.lights
	return Step{
		Lights: &l,
		Events: []Event{{
			Timestamp: now,
			Type:      EventPhase,
			Phase:     lit.String(),
			Active:    true,
			Lights:    l,
		}},
	}
}

// Signal returns the signal the next tick will light.
func (t *TrafficLight) Signal() Signal {
	return t.signal
}

// State returns the current state. Phase names the signal the next tick will light.
func (t *TrafficLight) State() State {
	return State{
		Mode:   ModeTraffic,
		Phase:  t.signal.String(),
		Active: true,
		Lights: t.lights,
	}
}

// Counts returns a copy of the activity counters.
func (t *TrafficLight) Counts() Counts {
	return t.counts
}
