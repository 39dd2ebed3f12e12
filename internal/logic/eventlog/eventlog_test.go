package eventlog

import (
	"testing"
	"time"
)

// recordingAlarm records the sequence of alarm states.
type recordingAlarm struct {
	states []bool
}

func (a *recordingAlarm) Set(on bool) error {
	a.states = append(a.states, on)
	return nil
}

func (a *recordingAlarm) last() (bool, bool) {
	if len(a.states) == 0 {
		return false, false
	}
	return a.states[len(a.states)-1], true
}

func TestLog_TriggerThenService(t *testing.T) {
	al := &recordingAlarm{}
	l := New(al)

	l.OnTrigger()
	if on, ok := al.last(); !ok || !on {
		t.Error("trigger should switch the alarm on")
	}

	now := time.Unix(1756200000, 0)
	l.Service(now)

	if got := l.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
	if on, _ := al.last(); on {
		t.Error("servicing a recorded trigger should switch the alarm off")
	}

	events := l.Drain()
	if len(events) != 1 || events[0] != now.Unix() {
		t.Errorf("Drain = %v, want [%d]", events, now.Unix())
	}
}

func TestLog_TriggersCoalesce(t *testing.T) {
	l := New(&recordingAlarm{})

	// Two triggers before any service point collapse into one event.
	l.OnTrigger()
	l.OnTrigger()
	l.Service(time.Unix(100, 0))

	if got := l.Count(); got != 1 {
		t.Errorf("Count = %d, want 1 (coalesced)", got)
	}

	// The pending flag was consumed: another service records nothing.
	l.Service(time.Unix(101, 0))
	if got := l.Count(); got != 1 {
		t.Errorf("Count after idle service = %d, want 1", got)
	}
}

func TestLog_ServiceWithoutPendingIsNoop(t *testing.T) {
	al := &recordingAlarm{}
	l := New(al)

	l.Service(time.Unix(100, 0))

	if got := l.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if len(al.states) != 0 {
		t.Errorf("alarm touched %d times on an idle service", len(al.states))
	}
}

func TestLog_CapacitySaturation(t *testing.T) {
	l := New(&recordingAlarm{})

	for i := 0; i < MaxEvents+50; i++ {
		l.OnTrigger()
		l.Service(time.Unix(int64(i), 0))
	}

	if got := l.Count(); got != MaxEvents {
		t.Fatalf("Count = %d, want %d", got, MaxEvents)
	}

	// A full log drops triggers silently until drained.
	events := l.Drain()
	if len(events) != MaxEvents {
		t.Fatalf("Drain returned %d events, want %d", len(events), MaxEvents)
	}
	if events[0] != 0 || events[MaxEvents-1] != MaxEvents-1 {
		t.Error("drained events out of arrival order")
	}

	l.OnTrigger()
	l.Service(time.Unix(9999, 0))
	if got := l.Count(); got != 1 {
		t.Errorf("Count after drain = %d, want 1", got)
	}
}

func TestLog_DrainResets(t *testing.T) {
	l := New(&recordingAlarm{})
	l.OnTrigger()
	l.Service(time.Unix(42, 0))

	n := l.Count()
	events := l.Drain()
	if len(events) != n {
		t.Errorf("Drain returned %d events, Count reported %d", len(events), n)
	}
	if got := l.Count(); got != 0 {
		t.Errorf("Count after Drain = %d, want 0", got)
	}
}

func TestLog_Clear(t *testing.T) {
	al := &recordingAlarm{}
	l := New(al)

	l.OnTrigger()
	l.Service(time.Unix(42, 0))
	l.OnTrigger() // pending again, alarm on

	l.Clear()
	if got := l.Count(); got != 0 {
		t.Errorf("Count after Clear = %d, want 0", got)
	}
	if on, _ := al.last(); on {
		t.Error("Clear should switch the alarm off")
	}
}
