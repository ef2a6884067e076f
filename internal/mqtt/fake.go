package mqtt

import (
	"sync"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// FakePublisher records what would have been sent to the broker.
// Payloads are formatted exactly as Spool formats them.
type FakePublisher struct {
	Events   []logic.Event
	Payloads [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// PublishError and PublishSystemError, when set, fail the matching call
	// without recording anything.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool // returned by IsConnected
}

// NewFakePublisher creates an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// EventTypes returns the recorded event types in publish order.
func (f *FakePublisher) EventTypes() []logic.EventType {
	out := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		out[i] = e.Type
	}
	return out
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset returns the fake to its zero state.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}

// SentMessage is one message delivered through a FakeTransport.
type SentMessage struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeTransport is a Transport that records what a Spool sends. Unlike
// FakePublisher it is safe for concurrent use, since the Spool sends from its
// own goroutine.
type FakeTransport struct {
	mu         sync.Mutex
	connected  bool
	gate       chan struct{}
	failNext   error
	dropOnFail bool
	attempts   int
	sent       []SentMessage
}

// NewFakeTransport creates a transport in the given connection state.
func NewFakeTransport(connected bool) *FakeTransport {
	return &FakeTransport{connected: connected}
}

func (f *FakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected changes the connection state.
func (f *FakeTransport) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

// Hold makes Send block until Release, like a broker that stops acking.
func (f *FakeTransport) Hold() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

// Release unblocks any held Send.
func (f *FakeTransport) Release() {
	f.mu.Lock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
	f.mu.Unlock()
}

// FailNext makes the next Send return err. If disconnect is set the
// transport also reports itself disconnected afterwards.
func (f *FakeTransport) FailNext(err error, disconnect bool) {
	f.mu.Lock()
	f.failNext = err
	f.dropOnFail = disconnect
	f.mu.Unlock()
}

func (f *FakeTransport) Send(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	gate := f.gate
	f.attempts++
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		if f.dropOnFail {
			f.connected = false
		}
		return err
	}
	f.sent = append(f.sent, SentMessage{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

// Attempts returns how many times Send has been called.
func (f *FakeTransport) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Sent returns a copy of the delivered messages in send order.
func (f *FakeTransport) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}
