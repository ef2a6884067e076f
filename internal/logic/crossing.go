package logic

import (
	"fmt"
	"time"
)

const (
	// DefaultStep is the time each crossing phase stays lit.
	DefaultStep = 3000 * time.Millisecond
	// DefaultRestartDelay is the gap between the end of a sequence and a queued restart.
	DefaultRestartDelay = 10 * time.Millisecond
)

// Phase is a step of the crossing sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFirst
	PhaseSecond
	PhaseThird
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseFirst:
		return "FIRST"
	case PhaseSecond:
		return "SECOND"
	case PhaseThird:
		return "THIRD"
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

// Crossing is the button-triggered sequencer: a press while idle runs
// First -> Second -> Third -> Idle on chained one-shot alarms. A press while a
// sequence is running queues a single restart.
type Crossing struct {
	step         time.Duration
	restartDelay time.Duration
	debounce     *Debouncer

	phase   Phase
	active  bool
	pending bool
	lights  Lights

	// armed is the token of the one outstanding alarm, 0 if none.
	armed     uint64
	lastToken uint64

	counts Counts
}

// NewCrossing creates an idle Crossing.
func NewCrossing(step, restartDelay, debounce time.Duration) *Crossing {
	return &Crossing{
		step:         step,
		restartDelay: restartDelay,
		debounce:     NewDebouncer(debounce),
	}
}

// Boot switches every output off. Nothing is armed until the first press.
func (c *Crossing) Boot(now time.Time) Step {
	c.lights = Lights{}
	return Step{Lights: &Lights{}}
}

// Poll runs the debounce filter and dispatches an accepted press.
func (c *Crossing) Poll(level Level, now time.Time) Step {
	if !c.debounce.Poll(level, now) {
		return Step{}
	}
	c.counts.Presses++
	st := c.Press(now)
	st.Events = append([]Event{c.event(now, EventPress)}, st.Events...)
	return st
}

// Press handles an already debounced press.
func (c *Crossing) Press(now time.Time) Step {
	if !c.active {
		c.counts.Starts++
		return c.start(now, EventStart)
	}
	if c.pending {
		return Step{}
	}
	c.pending = true
	c.counts.RestartsQueued++
	return Step{Events: []Event{c.event(now, EventRestartQueued)}}
}

// Fire applies one transition. Alarms whose token is not the armed one are
// reported with ErrStaleAlarm and change nothing.
func (c *Crossing) Fire(alarm Alarm, now time.Time) (Step, error) {
	if alarm.Token == 0 || alarm.Token != c.armed {
		c.counts.StaleAlarms++
		return Step{Events: []Event{c.event(now, EventStale)}},
			fmt.Errorf("%w: %s token %d, armed %d", ErrStaleAlarm, alarm.Reason, alarm.Token, c.armed)
	}
	c.armed = 0

	switch alarm.Reason {
	case ReasonRestart:
		c.counts.Restarts++
		return c.start(now, EventRestart), nil
	case ReasonStep:
	default:
		return Step{}, fmt.Errorf("%w: reason %s in phase %s", ErrInvalidPhaseTransition, alarm.Reason, c.phase)
	}

	switch c.phase {
	case PhaseFirst:
		return c.enter(now, PhaseSecond, Lights{Second: true}), nil
	case PhaseSecond:
		return c.enter(now, PhaseThird, Lights{Third: true}), nil
	case PhaseThird:
		c.phase = PhaseIdle
		c.active = false
		c.lights = Lights{}
		c.counts.Completed++
		st := Step{
			Lights: &Lights{},
			Events: []Event{c.event(now, EventEnd)},
		}
		if c.pending {
			c.pending = false
			st.Arm = c.arm(c.restartDelay, ReasonRestart)
		}
		return st, nil
	}
	return Step{}, fmt.Errorf("%w: step alarm in phase %s", ErrInvalidPhaseTransition, c.phase)
}

func (c *Crossing) start(now time.Time, typ EventType) Step {
	c.active = true
	c.pending = false
	c.phase = PhaseFirst
	c.lights = Lights{First: true}
	l := c.lights
	return Step{
		Lights: &l,
		Arm:    c.arm(c.step, ReasonStep),
		Events: []Event{c.event(now, typ)},
	}
}

func (c *Crossing) enter(now time.Time, p Phase, l Lights) Step {
	c.phase = p
	c.lights = l
	return Step{
		Lights: &l,
		Arm:    c.arm(c.step, ReasonStep),
		Events: []Event{c.event(now, EventPhase)},
	}
}

// arm replaces the outstanding alarm; a previously armed token becomes stale.
func (c *Crossing) arm(d time.Duration, r Reason) *Schedule {
	c.lastToken++
	c.armed = c.lastToken
	return &Schedule{Delay: d, Alarm: Alarm{Reason: r, Token: c.armed}}
}

func (c *Crossing) event(now time.Time, typ EventType) Event {
	return Event{
		Timestamp:      now,
		Type:           typ,
		Phase:          c.phase.String(),
		Active:         c.active,
		RestartPending: c.pending,
		Lights:         c.lights,
	}
}

// Phase returns the current phase.
func (c *Crossing) Phase() Phase {
	return c.phase
}

// State returns the current state.
func (c *Crossing) State() State {
	return State{
		Mode:           ModeCrossing,
		Phase:          c.phase.String(),
		Active:         c.active,
		RestartPending: c.pending,
		Lights:         c.lights,
	}
}

// Counts returns a copy of the activity counters.
func (c *Crossing) Counts() Counts {
	return c.counts
}
