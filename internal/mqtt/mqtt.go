// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// Topic is the MQTT topic for sequencer events.
const Topic = "lights/sequencer/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "lights/sequencer/system"

// DefaultClientID identifies the daemon to the broker.
const DefaultClientID = "led-sequencer"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sequencer event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sequencer SequencerPayload `json:"sequencer"`
}

// SequencerPayload contains the sequencer event details.
type SequencerPayload struct {
	Timestamp      string        `json:"timestamp"`
	Event          string        `json:"event"`
	Phase          string        `json:"phase"`
	Active         bool          `json:"active"`
	RestartPending bool          `json:"restart_pending"`
	Lights         LightsPayload `json:"lights"`
}

// LightsPayload reports each output as "ON" or "OFF".
type LightsPayload struct {
	First  string `json:"first"`
	Second string `json:"second"`
	Third  string `json:"third"`
}

// NewLightsPayload converts output levels to their wire form.
func NewLightsPayload(l logic.Lights) LightsPayload {
	return LightsPayload{
		First:  onOff(l.First),
		Second: onOff(l.Second),
		Third:  onOff(l.Third),
	}
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// FormatPayload creates the JSON payload for a sequencer event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Sequencer: SequencerPayload{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:          string(event.Type),
			Phase:          event.Phase,
			Active:         event.Active,
			RestartPending: event.RestartPending,
			Lights:         NewLightsPayload(event.Lights),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is a Publisher used when MQTT is disabled.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
