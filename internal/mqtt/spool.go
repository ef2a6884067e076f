package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// closeFlushTimeout bounds how long Close waits for queued messages.
const closeFlushTimeout = 2 * time.Second

// Transport delivers serialized messages to a broker. Send may block.
type Transport interface {
	Send(topic string, qos byte, retained bool, payload []byte) error
	Connected() bool
}

// Spool is a Publisher that never waits on the network. Publish and
// PublishSystem format the message and append it to an outbox; a single
// sender goroutine delivers the outbox in order whenever the transport is
// connected.
type Spool struct {
	transport Transport

	mu     sync.Mutex
	outbox *outbox

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpool starts the sender goroutine. At most limit messages are held.
func NewSpool(t Transport, limit int) *Spool {
	s := &Spool{
		transport: t,
		outbox:    newOutbox(limit),
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Publish queues a sequencer event. QoS 0, not retained.
func (s *Spool) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	s.enqueue(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem queues a lifecycle event with QoS 1.
func (s *Spool) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	s.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (s *Spool) enqueue(m bufferedMsg) {
	s.mu.Lock()
	s.outbox.add(m)
	s.mu.Unlock()
	s.Kick()
}

// Kick wakes the sender, e.g. after the transport connects.
func (s *Spool) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Buffered returns the number of messages not yet sent.
func (s *Spool) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outbox.len()
}

// Close stops the sender after a bounded attempt to flush the outbox.
func (s *Spool) Close() error {
	s.once.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-time.After(closeFlushTimeout):
		log.Printf("mqtt: gave up flushing after %s", closeFlushTimeout)
	}
	if n := s.Buffered(); n > 0 {
		log.Printf("mqtt: closing with %d buffered messages unsent", n)
	}
	return nil
}

func (s *Spool) run() {
	defer close(s.done)
	for {
		select {
		case <-s.kick:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

// flush sends until the outbox is empty or the transport drops. A message
// that fails while disconnected is put back for the next connection; one that
// fails while connected is logged and dropped.
func (s *Spool) flush() {
	for s.transport.Connected() {
		s.mu.Lock()
		m, ok := s.outbox.pop()
		s.mu.Unlock()
		if !ok {
			return
		}

		err := s.transport.Send(m.topic, m.qos, m.retained, m.payload)
		if err == nil {
			continue
		}
		if !s.transport.Connected() {
			s.mu.Lock()
			s.outbox.requeue(m)
			s.mu.Unlock()
			return
		}
		log.Printf("mqtt: %v", err)
	}
}
