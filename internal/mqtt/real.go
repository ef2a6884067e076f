package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// outboxLimit bounds the messages held while the broker is unreachable.
const outboxLimit = 256

// RealPublisher publishes to an actual MQTT broker. Messages go through a
// Spool, so callers never wait on the network; whatever is queued while the
// broker is unreachable is sent, oldest first, once it reconnects.
type RealPublisher struct {
	*Spool
	client paho.Client

	mu        sync.Mutex
	connected bool // set after the first successful connection
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned and
// keeps retrying in the background; events are buffered until it connects.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.Spool = NewSpool(pahoTransport{p.client}, outboxLimit)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		p.Spool.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect wakes the sender so anything queued while offline goes out. On
// reconnects it also announces itself, behind the older messages.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if n := p.Buffered(); n > 0 {
		log.Printf("mqtt: connected, sending %d buffered messages", n)
	}
	if reconnect {
		err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			log.Printf("mqtt: publish reconnected event: %v", err)
		}
	}
	p.Kick()
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close flushes what it can and disconnects from the broker.
func (p *RealPublisher) Close() error {
	err := p.Spool.Close()
	p.client.Disconnect(1000) // 1 second timeout
	return err
}

// pahoTransport sends through a paho client.
type pahoTransport struct {
	client paho.Client
}

func (t pahoTransport) Connected() bool {
	return t.client.IsConnectionOpen()
}

func (t pahoTransport) Send(topic string, qos byte, retained bool, payload []byte) error {
	token := t.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
