// Package client talks to the telescope controller from the operator
// host. Every call opens a fresh connection: the controller serves
// exactly one command per connection.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/logic/axis"
)

// DefaultAddr is where the deployed controller listens.
const DefaultAddr = "192.168.99.99:1033"

// DefaultTimeout bounds one command/response exchange. Calibration
// runs take tens of seconds, so this is generous.
const DefaultTimeout = 60 * time.Second

var (
	// ErrNotCalibrated is returned by moves requested before a
	// successful calibration.
	ErrNotCalibrated = errors.New("telescope must be calibrated before moving it")
	// ErrCalibration is returned when the controller reports a homing
	// failure (-3).
	ErrCalibration = errors.New("calibration failed: end switch not found")
)

// Position is a pointing of the telescope frame: theta is the
// azimuthal angle (0-90° usable), phi the polar angle (0-360°).
type Position struct {
	Theta float64
	Phi   float64
}

// Telescope is a stateful client for one controller. It tracks the
// calibration state and last commanded pointing host-side; the
// controller itself only knows step counts.
type Telescope struct {
	addr       string
	timeout    time.Duration
	settle     time.Duration
	calibrated bool
	pos        Position
	hasPos     bool
	log        zerolog.Logger
}

func New(addr string, timeout time.Duration, log zerolog.Logger) *Telescope {
	if addr == "" {
		addr = DefaultAddr
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Telescope{
		addr:    addr,
		timeout: timeout,
		settle:  time.Second,
		log:     log,
	}
}

// Send performs one command/response exchange: dial, write the command
// terminated by CRLF in a single segment, read until the controller
// closes the connection.
func (t *Telescope) Send(ctx context.Context, cmd string) (string, error) {
	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return "", fmt.Errorf("connect to controller: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(t.timeout))

	if _, err := conn.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("send command %q: %w", cmd, err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read response to %q: %w", cmd, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Help returns the controller's version and opcode table.
func (t *Telescope) Help(ctx context.Context) (string, error) {
	return t.Send(ctx, "?")
}

// ClearBuffer clears the controller's trigger buffer and alarm.
func (t *Telescope) ClearBuffer(ctx context.Context) error {
	resp, err := t.Send(ctx, "x")
	if err != nil {
		return err
	}
	if resp != "0" {
		return fmt.Errorf("clearing buffer failed: response %q", resp)
	}
	t.log.Info().Msg("trigger buffer cleared")
	return nil
}

// EventCount returns the number of triggers in the controller's buffer.
func (t *Telescope) EventCount(ctx context.Context) (int, error) {
	resp, err := t.Send(ctx, "n")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("unexpected event count response %q: %w", resp, err)
	}
	return n, nil
}

// ReadBuffer drains the trigger buffer and returns the Unix timestamps.
func (t *Telescope) ReadBuffer(ctx context.Context) ([]int64, error) {
	resp, err := t.Send(ctx, "h")
	if err != nil {
		return nil, err
	}

	// Discard the first line (number of triggers).
	lines := strings.Split(resp, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	timestamps := make([]int64, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		ts, err := strconv.ParseInt(ln, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected timestamp line %q: %w", ln, err)
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

// ReadAnalog returns the four 14-bit analog samples.
func (t *Telescope) ReadAnalog(ctx context.Context) ([4]int, error) {
	var out [4]int
	resp, err := t.Send(ctx, "a")
	if err != nil {
		return out, err
	}
	parts := strings.Split(resp, ",")
	if len(parts) != len(out) {
		return out, fmt.Errorf("unexpected analog response %q", resp)
	}
	for i, p := range parts {
		if out[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return out, fmt.Errorf("unexpected analog response %q: %w", resp, err)
		}
	}
	return out, nil
}

// ReadSwitches returns both end-switch states.
func (t *Telescope) ReadSwitches(ctx context.Context) ([2]bool, error) {
	var out [2]bool
	resp, err := t.Send(ctx, "e")
	if err != nil {
		return out, err
	}
	parts := strings.Split(resp, ",")
	if len(parts) != len(out) {
		return out, fmt.Errorf("unexpected switch response %q", resp)
	}
	for i, p := range parts {
		out[i] = strings.TrimSpace(p) == "1"
	}
	return out, nil
}

// Calibrate homes both axes. After success the frame points to
// theta=90, phi=0 by construction of the end-switch positions.
func (t *Telescope) Calibrate(ctx context.Context) error {
	if t.calibrated {
		t.log.Warn().Msg("telescope has already been calibrated before")
		return nil
	}

	for ax := 0; ax <= 1; ax++ {
		resp, err := t.Send(ctx, fmt.Sprintf("c%d", ax))
		if err != nil {
			return err
		}
		switch resp {
		case "0":
			t.log.Info().Int("axis", ax).Msg("axis calibrated")
		case "-3":
			t.log.Error().Int("axis", ax).Msg("end switch not found")
			return fmt.Errorf("axis %d: %w", ax, ErrCalibration)
		default:
			return fmt.Errorf("unexpected response while calibrating axis %d: %q", ax, resp)
		}

		// Let the frame settle before homing the second axis.
		select {
		case <-time.After(t.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.calibrated = true
	t.pos = Position{Theta: 90, Phi: 0}
	t.hasPos = true
	return nil
}

// MoveTo points the frame at theta (azimuthal, folded mod 180°) and
// phi (polar, folded mod 360°). Axes already in position are skipped.
func (t *Telescope) MoveTo(ctx context.Context, theta, phi float64) error {
	if !t.calibrated {
		return ErrNotCalibrated
	}
	if theta < 0 || phi < 0 {
		return fmt.Errorf("both theta and phi have to be non-negative (got %.2f, %.2f)", theta, phi)
	}

	phi = math.Mod(phi, 360)
	theta = math.Mod(theta, 180)

	if t.hasPos && math.Abs(phi-t.pos.Phi) < 1e-10 {
		t.log.Info().Float64("phi", phi).Msg("already at phi")
	} else {
		if err := t.moveAxis(ctx, 0, phi); err != nil {
			return err
		}
	}

	if t.hasPos && math.Abs(theta-t.pos.Theta) < 1e-10 {
		t.log.Info().Float64("theta", theta).Msg("already at theta")
	} else {
		if err := t.moveAxis(ctx, 1, theta); err != nil {
			return err
		}
	}

	t.pos = Position{Theta: theta, Phi: phi}
	t.hasPos = true
	return nil
}

func (t *Telescope) moveAxis(ctx context.Context, ax int, angleDeg float64) error {
	steps := int(math.Round(float64(axis.StepsPerTurn) / 360.0 * angleDeg))
	t.log.Info().Int("axis", ax).Float64("deg", angleDeg).Int("steps", steps).Msg("moving")

	resp, err := t.Send(ctx, fmt.Sprintf("m%d,%d", ax, steps))
	if err != nil {
		return err
	}
	if resp != "0" {
		return fmt.Errorf("moving axis %d to %.2f° failed: response %q", ax, angleDeg, resp)
	}
	return nil
}

// ResetPosition returns to the starting pointing, from which a new
// calibration can be attempted, and drops the calibration state.
func (t *Telescope) ResetPosition(ctx context.Context) error {
	if err := t.MoveTo(ctx, 60, 40); err != nil {
		return err
	}
	t.calibrated = false
	return nil
}

// Date returns the controller's clock reading.
func (t *Telescope) Date(ctx context.Context) (time.Time, error) {
	resp, err := t.Send(ctx, "r")
	if err != nil {
		return time.Time{}, err
	}
	parts := strings.Split(resp, ",")
	if len(parts) != 6 {
		return time.Time{}, fmt.Errorf("unexpected clock response %q", resp)
	}
	vals := make([]int, 6)
	for i, p := range parts {
		if vals[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return time.Time{}, fmt.Errorf("unexpected clock response %q: %w", resp, err)
		}
	}
	return time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, time.Local), nil
}

// SetDate sets the controller's clock.
func (t *Telescope) SetDate(ctx context.Context, to time.Time) error {
	cmd := fmt.Sprintf("s%d,%d,%d,%d,%d,%d",
		to.Year(), int(to.Month()), to.Day(), to.Hour(), to.Minute(), to.Second())
	resp, err := t.Send(ctx, cmd)
	if err != nil {
		return err
	}
	if resp != "0" {
		return fmt.Errorf("changing controller date failed: response %q", resp)
	}
	t.log.Info().Time("to", to).Msg("controller date set")
	return nil
}

// AssumeCalibrated marks the telescope as calibrated without running a
// homing sequence. For one-shot tooling where the frame was calibrated
// in an earlier session; the controller itself does not gate moves.
func (t *Telescope) AssumeCalibrated() {
	t.calibrated = true
}

// IsCalibrated reports whether a calibration run has succeeded.
func (t *Telescope) IsCalibrated() bool {
	return t.calibrated
}

// Position returns the last commanded pointing; ok is false before the
// first calibration.
func (t *Telescope) Position() (Position, bool) {
	return t.pos, t.hasPos
}
