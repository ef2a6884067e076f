// Package logic contains the pure sequencing logic for the LED sequencer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

var (
	// ErrScheduleFailure means the timing subsystem refused to arm an alarm.
	ErrScheduleFailure = errors.New("schedule failure")

	// ErrInvalidPhaseTransition means an alarm fired in a phase that has no
	// outgoing transition. It indicates corrupted state.
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")

	// ErrStaleAlarm means an alarm fired whose token is no longer the armed one.
	ErrStaleAlarm = errors.New("stale alarm")
)

// Level is a raw digital pin level.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

// Reason tells the sequencer why an alarm fired.
type Reason int

const (
	ReasonStep      Reason = iota + 1 // chained transition
	ReasonRestart                     // queued restart
	ReasonTick                        // free-running period
	ReasonHeartbeat                   // owned by the run loop
	ReasonStatus                      // owned by the run loop
)

func (r Reason) String() string {
	switch r {
	case ReasonStep:
		return "STEP"
	case ReasonRestart:
		return "RESTART"
	case ReasonTick:
		return "TICK"
	case ReasonHeartbeat:
		return "HEARTBEAT"
	case ReasonStatus:
		return "STATUS"
	}
	return "UNKNOWN"
}

// Alarm is the payload carried by a scheduled fire.
type Alarm struct {
	Reason Reason
	// Token identifies the arming. Zero means untracked (loop-owned alarms).
	Token uint64
}

// Schedule asks the caller to arm an alarm.
type Schedule struct {
	Delay time.Duration
	// Repeat re-arms the alarm every Delay until the process ends.
	Repeat bool
	Alarm  Alarm
}

// Lights is the desired level of the three outputs.
type Lights struct {
	First  bool
	Second bool
	Third  bool
}

// Off reports whether every output is off.
func (l Lights) Off() bool {
	return !l.First && !l.Second && !l.Third
}

// EventType represents a sequencer event.
type EventType string

const (
	EventPress         EventType = "PRESS"
	EventStart         EventType = "SEQUENCE_START"
	EventPhase         EventType = "PHASE"
	EventEnd           EventType = "SEQUENCE_END"
	EventRestartQueued EventType = "RESTART_QUEUED"
	EventRestart       EventType = "RESTART"
	EventStale         EventType = "STALE_ALARM"
)

// Event represents a sequencer transition to be published.
type Event struct {
	Timestamp      time.Time
	Type           EventType
	Phase          string
	Active         bool
	RestartPending bool
	Lights         Lights
}

// State is a read-only view of a sequencer.
type State struct {
	Mode           string
	Phase          string
	Active         bool
	RestartPending bool
	Lights         Lights
}

// Counts tracks sequencer activity since startup.
type Counts struct {
	Presses        int
	Starts         int
	RestartsQueued int
	Restarts       int
	Completed      int
	Ticks          int
	StaleAlarms    int
}

// Step is the effect of feeding one input to a sequencer. The caller applies
// Lights (if non-nil), arms Arm (if non-nil), then handles Events in order.
type Step struct {
	Lights *Lights
	Arm    *Schedule
	Events []Event
}

// Sequencer is implemented by Crossing and TrafficLight.
type Sequencer interface {
	// Boot returns the outputs and alarms for process start.
	Boot(now time.Time) Step
	// Poll feeds one button sample.
	Poll(level Level, now time.Time) Step
	// Fire handles an alarm armed from a previous Step.
	Fire(alarm Alarm, now time.Time) (Step, error)
	State() State
	Counts() Counts
}
