package stepper

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/hw/gpio"
)

// Config holds the hardware configuration for a stepper motor.
type Config struct {
	StepPin   int
	DirPin    int
	EnablePin int           // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	StepDelay time.Duration // delay per half-cycle of STEP pulse. Total step = 2*StepDelay.
}

// Stepper drives one axis motor through an A4988 and tracks its signed
// step position. Position zero is wherever the counter was last reset,
// normally the homed reference found during calibration.
type Stepper struct {
	gpio  gpio.Driver
	cfg   Config
	delay time.Duration // delay between STEP pulse half-cycles
	pos   int
	log   zerolog.Logger
}

// NewStepper creates a new stepper motor controller.
// cfg.StepDelay: if 0, defaults to 1ms.
func NewStepper(g gpio.Driver, cfg Config, log zerolog.Logger) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 1 * time.Millisecond
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		delay: delay,
		log:   log,
	}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.Low) // enable by default
	}

	return s
}

// MoveBy moves the motor by a number of steps (positive or negative)
// relative to the current position.
func (s *Stepper) MoveBy(steps int) error {
	if steps == 0 {
		return nil
	}

	var dirLevel gpio.Level
	delta := 1
	count := steps
	if steps > 0 {
		dirLevel = gpio.High
	} else {
		dirLevel = gpio.Low
		delta = -1
		count = -steps
	}

	s.log.Trace().Int("steps", steps).Int("pin", s.cfg.StepPin).Msg("stepper move")

	if err := s.gpio.WritePin(s.cfg.DirPin, dirLevel); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		if err := s.stepPulse(); err != nil {
			return err
		}
		s.pos += delta
	}
	return nil
}

// RunToPosition moves the motor to an absolute step position and blocks
// until the move completes.
func (s *Stepper) RunToPosition(target int) error {
	return s.MoveBy(target - s.pos)
}

// CurrentPosition returns the signed step counter.
func (s *Stepper) CurrentPosition() int {
	return s.pos
}

// SetCurrentPosition overwrites the step counter without moving the
// motor. Used to zero the axis after homing.
func (s *Stepper) SetCurrentPosition(pos int) {
	s.pos = pos
}

// Stop releases the STEP line. The driver is synchronous, so there is
// never an in-flight move to abort; this just leaves the pin in a safe
// state.
func (s *Stepper) Stop() error {
	return s.gpio.WritePin(s.cfg.StepPin, gpio.Low)
}

func (s *Stepper) stepPulse() error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	time.Sleep(s.delay)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(s.delay)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). Motors hold position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). Motors freewheel,
// no holding torque.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
