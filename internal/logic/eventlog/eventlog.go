package eventlog

import (
	"sync/atomic"
	"time"
)

// MaxEvents bounds the number of buffered muon timestamps. Once full,
// further triggers are dropped until the log is drained or cleared.
const MaxEvents = 1000

// Alarm is the visual indicator switched from the trigger path. Set
// must be a plain pin write, never blocking.
type Alarm interface {
	Set(on bool) error
}

// Log is the bounded, timestamp-tagged record of detection events.
//
// The hardware trigger only sets the pending flag; the slice is owned
// by the main loop and touched exclusively from Service, Drain and
// Clear. The flag is deliberately a flag and not a counter: triggers
// arriving between two service points coalesce into a single recorded
// event, exactly like the deployed firmware.
type Log struct {
	pending atomic.Bool
	alarm   Alarm
	events  []int64
}

func New(alarm Alarm) *Log {
	return &Log{
		alarm:  alarm,
		events: make([]int64, 0, MaxEvents),
	}
}

// OnTrigger marks an unconsumed hardware trigger. Safe to call from
// the trigger goroutine: one atomic store plus one pin write, no
// allocation, no access to the event slice.
func (l *Log) OnTrigger() {
	l.pending.Store(true)
	_ = l.alarm.Set(true)
}

// Service is called once per main-loop iteration. If a trigger is
// pending it records now (Unix seconds) when capacity remains and
// switches the alarm off; the pending flag is always consumed.
func (l *Log) Service(now time.Time) {
	if !l.pending.Swap(false) {
		return
	}
	if len(l.events) < MaxEvents {
		l.events = append(l.events, now.Unix())
		_ = l.alarm.Set(false)
	}
}

// Count returns the number of buffered events.
func (l *Log) Count() int {
	return len(l.events)
}

// Drain returns all buffered timestamps and resets the log.
func (l *Log) Drain() []int64 {
	out := l.events
	l.events = make([]int64, 0, MaxEvents)
	return out
}

// Clear resets the log and switches the alarm off.
func (l *Log) Clear() {
	l.events = l.events[:0]
	_ = l.alarm.Set(false)
}
