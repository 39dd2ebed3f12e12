package stepper

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls []gpioCall
}

type gpioCall struct {
	op    string // "setup", "write"
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) WatchPin(pin int) error { return nil }

func (d *recordingDriver) EdgeDetected(pin int) (bool, error) { return false, nil }

func (d *recordingDriver) Close() error { return nil }

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func newTestStepper() (*Stepper, *recordingDriver) {
	drv := &recordingDriver{}
	s := NewStepper(drv, Config{
		StepPin:   17,
		DirPin:    27,
		EnablePin: 5,
		StepDelay: 1 * time.Microsecond,
	}, zerolog.Nop())
	drv.calls = nil // reset after init
	return s, drv
}

func TestStepper_MoveByForward(t *testing.T) {
	s, drv := newTestStepper()

	if err := s.MoveBy(10); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}

	// First call should set direction HIGH (forward)
	writes := drv.writeCalls()
	if len(writes) == 0 {
		t.Fatal("expected GPIO write calls")
	}
	if writes[0].pin != 27 || writes[0].level != gpio.High {
		t.Errorf("first write should set dir pin HIGH, got pin=%d level=%v", writes[0].pin, writes[0].level)
	}

	// Count step pulses (HIGH+LOW pairs on step pin)
	stepPulses := 0
	for _, c := range writes {
		if c.pin == 17 && c.level == gpio.High {
			stepPulses++
		}
	}
	if stepPulses != 10 {
		t.Errorf("expected 10 step pulses, got %d", stepPulses)
	}

	if got := s.CurrentPosition(); got != 10 {
		t.Errorf("position = %d, want 10", got)
	}
}

func TestStepper_MoveByBackward(t *testing.T) {
	s, drv := newTestStepper()

	if err := s.MoveBy(-5); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}

	writes := drv.writeCalls()
	if len(writes) == 0 {
		t.Fatal("expected GPIO write calls")
	}
	// Direction should be LOW (backward)
	if writes[0].pin != 27 || writes[0].level != gpio.Low {
		t.Errorf("first write should set dir pin LOW, got pin=%d level=%v", writes[0].pin, writes[0].level)
	}

	if got := s.CurrentPosition(); got != -5 {
		t.Errorf("position = %d, want -5", got)
	}
}

func TestStepper_MoveByZeroIsNoop(t *testing.T) {
	s, drv := newTestStepper()

	if err := s.MoveBy(0); err != nil {
		t.Fatalf("MoveBy(0): %v", err)
	}
	if len(drv.writeCalls()) != 0 {
		t.Error("MoveBy(0) should not touch GPIO")
	}
}

func TestStepper_RunToPosition(t *testing.T) {
	s, _ := newTestStepper()

	if err := s.RunToPosition(100); err != nil {
		t.Fatalf("RunToPosition: %v", err)
	}
	if got := s.CurrentPosition(); got != 100 {
		t.Errorf("position = %d, want 100", got)
	}

	// Absolute moves are idempotent once at the target.
	if err := s.RunToPosition(100); err != nil {
		t.Fatalf("RunToPosition: %v", err)
	}
	if got := s.CurrentPosition(); got != 100 {
		t.Errorf("position = %d, want 100", got)
	}

	if err := s.RunToPosition(-40); err != nil {
		t.Fatalf("RunToPosition: %v", err)
	}
	if got := s.CurrentPosition(); got != -40 {
		t.Errorf("position = %d, want -40", got)
	}
}

func TestStepper_SetCurrentPosition(t *testing.T) {
	s, drv := newTestStepper()

	if err := s.MoveBy(42); err != nil {
		t.Fatalf("MoveBy: %v", err)
	}
	drv.calls = nil

	s.SetCurrentPosition(0)
	if got := s.CurrentPosition(); got != 0 {
		t.Errorf("position = %d, want 0", got)
	}
	if len(drv.writeCalls()) != 0 {
		t.Error("SetCurrentPosition must not move the motor")
	}
}

func TestStepper_EnableDisable(t *testing.T) {
	s, drv := newTestStepper()

	if err := s.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if err := s.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	writes := drv.writeCalls()
	if len(writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(writes))
	}
	if writes[0].pin != 5 || writes[0].level != gpio.High {
		t.Errorf("Disable should drive ENABLE HIGH, got pin=%d level=%v", writes[0].pin, writes[0].level)
	}
	if writes[1].pin != 5 || writes[1].level != gpio.Low {
		t.Errorf("Enable should drive ENABLE LOW, got pin=%d level=%v", writes[1].pin, writes[1].level)
	}
}
