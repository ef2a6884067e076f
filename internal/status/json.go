package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string     `json:"event,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Mode           string     `json:"mode"`
	Phase          string     `json:"phase"`
	Active         bool       `json:"active"`
	RestartPending bool       `json:"restart_pending"`
	Lights         LightsJSON `json:"lights"`
	PendingAlarms  int        `json:"pending_alarms"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	StartTime      string     `json:"start_time"`
	Timestamp      string     `json:"timestamp"`
	MQTT           MQTTStatus `json:"mqtt"`
	Counts         CountsJSON `json:"counts"`
	Config         ConfigJSON `json:"config"`
}

// LightsJSON reports each output as "ON" or "OFF".
type LightsJSON struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Third  string `json:"third"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the activity counters.
type CountsJSON struct {
	Presses        int `json:"presses"`
	Starts         int `json:"starts"`
	RestartsQueued int `json:"restarts_queued"`
	Restarts       int `json:"restarts"`
	Completed      int `json:"completed"`
	Ticks          int `json:"ticks"`
	StaleAlarms    int `json:"stale_alarms"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode        string `json:"mode"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	StepMs      int64  `json:"step_ms"`
	RestartMs   int64  `json:"restart_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	phase := snap.State.Phase
	if phase == "" {
		phase = "UNKNOWN"
	}
	c := snap.Counts

	return StatusInner{
		Mode:           snap.Config.Mode,
		Phase:          phase,
		Active:         snap.State.Active,
		RestartPending: snap.State.RestartPending,
		Lights: LightsJSON{
			First:  onOff(snap.State.Lights.First),
			Second: onOff(snap.State.Lights.Second),
			Third:  onOff(snap.State.Lights.Third),
		},
		PendingAlarms: snap.PendingAlarms,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:        c.Presses,
			Starts:         c.Starts,
			RestartsQueued: c.RestartsQueued,
			Restarts:       c.Restarts,
			Completed:      c.Completed,
			Ticks:          c.Ticks,
			StaleAlarms:    c.StaleAlarms,
		},
		Config: ConfigJSON{
			Mode:        snap.Config.Mode,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			StepMs:      snap.Config.StepMs,
			RestartMs:   snap.Config.RestartMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
