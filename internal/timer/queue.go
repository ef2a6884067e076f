// Package timer provides the alarm queue that drives the sequencers.
// The queue holds no goroutines or OS timers: the run loop asks it for the
// next deadline, waits, and collects whatever is due. Time is always passed in.
package timer

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// DefaultCapacity bounds the number of alarms pending at once.
const DefaultCapacity = 16

// Fired is an alarm that came due.
type Fired struct {
	At    time.Time
	Alarm logic.Alarm
}

type entry struct {
	due    time.Time
	seq    uint64
	period time.Duration // 0 = one-shot
	alarm  logic.Alarm
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is a fixed-capacity set of pending alarms ordered by due time.
// Alarms due at the same instant fire in the order they were armed.
// Not safe for concurrent use; it belongs to the run loop.
type Queue struct {
	h        entryHeap
	capacity int
	seq      uint64
}

// NewQueue creates a Queue that refuses to hold more than capacity alarms.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Arm schedules s relative to now. It fails with logic.ErrScheduleFailure
// when the queue is full or the schedule is unusable.
func (q *Queue) Arm(now time.Time, s logic.Schedule) error {
	if s.Delay < 0 || (s.Repeat && s.Delay == 0) {
		return fmt.Errorf("%w: bad delay %v for %s", logic.ErrScheduleFailure, s.Delay, s.Alarm.Reason)
	}
	if len(q.h) >= q.capacity {
		return fmt.Errorf("%w: %d alarms pending, capacity %d", logic.ErrScheduleFailure, len(q.h), q.capacity)
	}
	e := entry{due: now.Add(s.Delay), seq: q.seq, alarm: s.Alarm}
	if s.Repeat {
		e.period = s.Delay
	}
	q.seq++
	heap.Push(&q.h, e)
	return nil
}

// Next returns the earliest deadline, if any alarm is pending.
func (q *Queue) Next() (time.Time, bool) {
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0].due, true
}

// Due removes and returns every alarm due at or before now, earliest first.
// Repeating alarms are re-armed at their due time plus period, so a late
// collection does not drift the schedule; missed periods fire back to back.
func (q *Queue) Due(now time.Time) []Fired {
	var out []Fired
	for len(q.h) > 0 && !q.h[0].due.After(now) {
		e := heap.Pop(&q.h).(entry)
		out = append(out, Fired{At: e.due, Alarm: e.alarm})
		if e.period > 0 {
			e.due = e.due.Add(e.period)
			e.seq = q.seq
			q.seq++
			heap.Push(&q.h, e)
		}
	}
	return out
}

// Len returns the number of pending alarms.
func (q *Queue) Len() int {
	return len(q.h)
}
