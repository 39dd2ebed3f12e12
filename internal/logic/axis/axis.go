package axis

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// StepsPerTurn is the step-count granularity of one full 360° rotation
// (200 steps/rev at 1/16 microstepping through a 1:4 belt reduction).
const StepsPerTurn = 12800

const (
	// sweepSteps bounds each homing sweep to two-ninths of a turn. A
	// stuck or disconnected switch must never drive the motor
	// indefinitely.
	sweepSteps = StepsPerTurn * 2 / 9

	// overshootSteps pushes 10° past the first switch engagement so the
	// axis comes to rest well inside the engaged region.
	overshootSteps = StepsPerTurn / 36
)

// ErrEndSwitch reports a homing run where the end-switch never behaved
// as expected within the motion budget.
var ErrEndSwitch = errors.New("end switch did not respond within motion budget")

// ID names one of the two rotary axes.
type ID int

const (
	// A is the polar (phi) axis: full circle, direct drive with
	// reversed rotational sense.
	A ID = iota
	// B is the azimuthal (theta) axis: half-circle domain through a 2:1
	// transmission, phase-shifted by a quarter turn.
	B
)

func (id ID) String() string {
	switch id {
	case A:
		return "A"
	case B:
		return "B"
	}
	return fmt.Sprintf("axis(%d)", int(id))
}

// Motion is the minimal per-axis motor capability the controller
// needs. Satisfied by *stepper.Stepper; tests inject a simulator.
type Motion interface {
	MoveBy(steps int) error
	RunToPosition(target int) error
	CurrentPosition() int
	SetCurrentPosition(pos int)
	Stop() error
}

// EndSwitch reports whether the axis sits on its mechanical reference.
type EndSwitch interface {
	Engaged() (bool, error)
}

// Controller owns one axis's calibration state and converts requested
// angles into step targets. It is only ever called from the main loop,
// so it carries no locking.
type Controller struct {
	id         ID
	motor      Motion
	sw         EndSwitch
	homeDir    int // rotation sense that drives toward switch engagement
	calibrated bool
	log        zerolog.Logger
}

func NewController(id ID, motor Motion, sw EndSwitch, homeDir int, log zerolog.Logger) *Controller {
	if homeDir >= 0 {
		homeDir = 1
	} else {
		homeDir = -1
	}
	return &Controller{
		id:      id,
		motor:   motor,
		sw:      sw,
		homeDir: homeDir,
		log:     log.With().Stringer("axis", id).Logger(),
	}
}

// Calibrated reports whether a homing run has succeeded since startup.
func (c *Controller) Calibrated() bool {
	return c.calibrated
}

// ReadEndSwitch returns the current end-switch state.
func (c *Controller) ReadEndSwitch() (bool, error) {
	return c.sw.Engaged()
}

// Calibrate runs the homing sequence: back off the switch if it is
// already engaged, sweep until it first engages, push a further 10°
// into the engaged region, then zero the step counter there. Each
// phase is bounded to two-ninths of a turn; exhausting a budget fails
// the run with ErrEndSwitch and leaves the axis uncalibrated.
func (c *Controller) Calibrate() error {
	c.calibrated = false

	if err := c.releaseSweep(); err != nil {
		return err
	}
	mark, err := c.engageSweep()
	if err != nil {
		return err
	}
	if err := c.overshoot(mark); err != nil {
		return err
	}

	if err := c.motor.Stop(); err != nil {
		return fmt.Errorf("stop after homing: %w", err)
	}
	engaged, err := c.sw.Engaged()
	if err != nil {
		return fmt.Errorf("read end switch: %w", err)
	}
	if !engaged {
		c.log.Error().Msg("switch released during overshoot, homing failed")
		return ErrEndSwitch
	}

	c.motor.SetCurrentPosition(0)
	c.calibrated = true
	c.log.Info().Msg("axis homed, step counter zeroed")
	return nil
}

// releaseSweep rotates away from the switch until it releases. A
// switch that stays engaged for the whole sweep is stuck or miswired.
func (c *Controller) releaseSweep() error {
	engaged, err := c.sw.Engaged()
	if err != nil {
		return fmt.Errorf("read end switch: %w", err)
	}

	for moved := 0; engaged; moved++ {
		if moved >= sweepSteps {
			_ = c.motor.Stop()
			c.log.Error().Msg("switch stayed engaged for the whole release sweep")
			return ErrEndSwitch
		}
		if err := c.motor.MoveBy(-c.homeDir); err != nil {
			return fmt.Errorf("release sweep: %w", err)
		}
		if engaged, err = c.sw.Engaged(); err != nil {
			return fmt.Errorf("read end switch: %w", err)
		}
	}
	return nil
}

// engageSweep rotates toward the switch and returns the step position
// at the instant of first engagement.
func (c *Controller) engageSweep() (int, error) {
	engaged, err := c.sw.Engaged()
	if err != nil {
		return 0, fmt.Errorf("read end switch: %w", err)
	}

	for moved := 0; !engaged; moved++ {
		if moved >= sweepSteps {
			_ = c.motor.Stop()
			c.log.Error().Msg("switch never engaged during homing sweep")
			return 0, ErrEndSwitch
		}
		if err := c.motor.MoveBy(c.homeDir); err != nil {
			return 0, fmt.Errorf("engage sweep: %w", err)
		}
		if engaged, err = c.sw.Engaged(); err != nil {
			return 0, fmt.Errorf("read end switch: %w", err)
		}
	}
	return c.motor.CurrentPosition(), nil
}

// overshoot continues in the engaging direction until the position has
// advanced 10° past the recorded engagement point.
func (c *Controller) overshoot(mark int) error {
	for moved := 0; abs(c.motor.CurrentPosition()-mark) < overshootSteps; moved++ {
		if moved >= sweepSteps {
			_ = c.motor.Stop()
			return ErrEndSwitch
		}
		if err := c.motor.MoveBy(c.homeDir); err != nil {
			return fmt.Errorf("overshoot: %w", err)
		}
	}
	return nil
}

// MoveTo issues a single blocking move to the given angle, expressed
// in step units of a full turn (0..StepsPerTurn-1). Range validation
// happens at the command layer; MoveTo only folds the angle into the
// axis's mechanical domain.
//
// Axis A maps the angle directly with reversed rotational sense. Axis
// B runs through a 2:1 transmission, so its addressable domain folds
// to a half turn, phase-shifted by a quarter turn.
func (c *Controller) MoveTo(angleUnits int) error {
	var target int
	switch c.id {
	case A:
		target = -(angleUnits % StepsPerTurn)
	case B:
		target = angleUnits%(StepsPerTurn/2) - StepsPerTurn/4
	}

	c.log.Debug().Int("angle_units", angleUnits).Int("target", target).Msg("moving axis")
	return c.motor.RunToPosition(target)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
