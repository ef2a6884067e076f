package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/metrics"
	"github.com/sweeney/led-sequencer/internal/mqtt"
	"github.com/sweeney/led-sequencer/internal/status"
	"github.com/sweeney/led-sequencer/internal/timer"
)

// daemon is everything the run loop owns. Only button, tracker, met and
// mqttStatus may be nil.
type daemon struct {
	seq         logic.Sequencer
	button      gpio.Button // nil in traffic mode
	lights      gpio.Lights
	pub         mqtt.Publisher // must not wait on the network; see mqtt.Spool
	mqttStatus  mqtt.ConnectionStatus
	tracker     *status.Tracker
	met         *metrics.Metrics
	heartbeat   time.Duration // 0 disables
	statusEvery time.Duration // 0 disables

	queue *timer.Queue
}

// runLoop boots the sequencer at start and then serves, on one goroutine,
// button samples (tick), alarm deadlines (wake) and shutdown signals (sig).
// Tick and wake values are used as the current time. A nil wake leaves alarms
// to be collected on the next tick.
func runLoop(d *daemon, start time.Time, tick <-chan time.Time, wake func(time.Time) <-chan time.Time, sig <-chan os.Signal) error {
	d.queue = timer.NewQueue(timer.DefaultCapacity)

	if err := d.apply(d.seq.Boot(start), start); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if d.heartbeat > 0 {
		if err := d.queue.Arm(start, logic.Schedule{Delay: d.heartbeat, Repeat: true, Alarm: logic.Alarm{Reason: logic.ReasonHeartbeat}}); err != nil {
			return fmt.Errorf("arm heartbeat: %w", err)
		}
	}
	if d.statusEvery > 0 {
		if err := d.queue.Arm(start, logic.Schedule{Delay: d.statusEvery, Repeat: true, Alarm: logic.Alarm{Reason: logic.ReasonStatus}}); err != nil {
			return fmt.Errorf("arm status: %w", err)
		}
	}
	d.refresh()
	d.publishSystem("STARTUP", "", start)

	var (
		alarm    <-chan time.Time
		wakeTime time.Time
	)
	for {
		if next, ok := d.queue.Next(); ok && wake != nil {
			if alarm == nil || !next.Equal(wakeTime) {
				alarm, wakeTime = wake(next), next
			}
		} else {
			alarm = nil
		}

		select {
		case s := <-sig:
			d.shutdown(s)
			return nil

		case now := <-tick:
			if err := d.fireDue(now); err != nil {
				return err
			}
			if err := d.poll(now); err != nil {
				return err
			}
			d.refresh()

		case now := <-alarm:
			alarm = nil
			if err := d.fireDue(now); err != nil {
				return err
			}
			d.refresh()
		}
	}
}

// fireDue fires every alarm due at or before now, including alarms armed by
// those fires that are themselves already due.
func (d *daemon) fireDue(now time.Time) error {
	for {
		fired := d.queue.Due(now)
		if len(fired) == 0 {
			return nil
		}
		for _, f := range fired {
			if err := d.fire(f); err != nil {
				return err
			}
		}
	}
}

func (d *daemon) fire(f timer.Fired) error {
	switch f.Alarm.Reason {
	case logic.ReasonHeartbeat:
		d.refresh()
		d.publishSystem("HEARTBEAT", "", f.At)
		return nil
	case logic.ReasonStatus:
		s := d.seq.State()
		log.Printf("status: mode=%s phase=%s active=%v restart_pending=%v pending_alarms=%d",
			s.Mode, s.Phase, s.Active, s.RestartPending, d.queue.Len())
		return nil
	}

	step, err := d.seq.Fire(f.Alarm, f.At)
	if errors.Is(err, logic.ErrStaleAlarm) {
		log.Printf("ignoring alarm: %v", err)
	} else if err != nil {
		return fmt.Errorf("fire %s alarm: %w", f.Alarm.Reason, err)
	}
	return d.apply(step, f.At)
}

func (d *daemon) poll(now time.Time) error {
	if d.button == nil {
		return nil
	}
	level, err := d.button.Level()
	if err != nil {
		log.Printf("gpio read error: %v", err)
		return nil
	}
	return d.apply(d.seq.Poll(level, now), now)
}

// apply writes the outputs, arms the next alarm, then reports the events.
func (d *daemon) apply(st logic.Step, now time.Time) error {
	if st.Lights != nil {
		if err := d.lights.Set(*st.Lights); err != nil {
			log.Printf("gpio write error: %v", err)
		}
	}
	if st.Arm != nil {
		if err := d.queue.Arm(now, *st.Arm); err != nil {
			return err
		}
	}
	for _, e := range st.Events {
		log.Printf("event: %s phase=%s active=%v restart_pending=%v", e.Type, e.Phase, e.Active, e.RestartPending)
		if d.met != nil {
			d.met.Observe(e)
		}
		if err := d.pub.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
	return nil
}

// refresh pushes the sequencer state to the status page and metrics.
func (d *daemon) refresh() {
	state, counts, pending := d.seq.State(), d.seq.Counts(), d.queue.Len()
	if d.tracker != nil {
		d.tracker.Update(state, counts, pending)
		if d.mqttStatus != nil {
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		}
	}
	if d.met != nil {
		d.met.SetState(state, pending)
	}
}

func (d *daemon) publishSystem(name, reason string, ts time.Time) {
	event := mqtt.SystemEvent{
		Timestamp: ts,
		Event:     name,
		Reason:    reason,
		Retained:  name != "HEARTBEAT",
	}
	if d.tracker != nil {
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), name, reason)
	}
	if err := d.pub.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", name, err)
		return
	}
	log.Printf("published %s event", name)
}

func (d *daemon) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	if err := d.lights.Set(logic.Lights{}); err != nil {
		log.Printf("gpio write error: %v", err)
	}
	d.refresh()

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	d.publishSystem("SHUTDOWN", signalName, time.Now())
}
