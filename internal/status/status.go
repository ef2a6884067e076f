// Package status provides a thread-safe status tracker for the led-sequencer daemon.
// It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Mode        string
	PollMs      int64
	DebounceMs  int64
	StepMs      int64
	RestartMs   int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Counts        logic.Counts
	PendingAlarms int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.State{Mode: cfg.Mode},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the sequencer state, counters and number of armed alarms.
// Called from runLoop after every step.
func (t *Tracker) Update(state logic.State, counts logic.Counts, pendingAlarms int) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counts = counts
	t.snap.PendingAlarms = pendingAlarms
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
