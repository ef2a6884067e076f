package mqtt

import "log"

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages waiting to be sent, oldest first. A retained message
// replaces any earlier retained message on its topic, because the broker would
// keep only the last one. Once limit is reached the oldest message is dropped.
// Not safe for concurrent use; Spool guards it with its mutex.
type outbox struct {
	limit   int
	msgs    []bufferedMsg
	dropped int // since the outbox was last empty
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit}
}

func (o *outbox) add(m bufferedMsg) {
	if m.retained {
		for i, old := range o.msgs {
			if old.retained && old.topic == m.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}
	if len(o.msgs) >= o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", o.limit)
		}
		o.msgs = o.msgs[1:]
		o.dropped++
	}
	o.msgs = append(o.msgs, m)
}

// pop removes and returns the oldest message.
func (o *outbox) pop() (bufferedMsg, bool) {
	if len(o.msgs) == 0 {
		return bufferedMsg{}, false
	}
	m := o.msgs[0]
	o.msgs = o.msgs[1:]
	if len(o.msgs) == 0 {
		o.msgs = nil
		if o.dropped > 0 {
			log.Printf("mqtt: outbox drained, %d older messages were dropped", o.dropped)
			o.dropped = 0
		}
	}
	return m, true
}

// requeue puts back a message that could not be sent so it goes out first.
// It is discarded if a newer retained message for its topic is already queued
// or if the outbox is full.
func (o *outbox) requeue(m bufferedMsg) {
	if m.retained {
		for _, newer := range o.msgs {
			if newer.retained && newer.topic == m.topic {
				return
			}
		}
	}
	if len(o.msgs) >= o.limit {
		o.dropped++
		return
	}
	o.msgs = append([]bufferedMsg{m}, o.msgs...)
}

func (o *outbox) len() int {
	return len(o.msgs)
}
