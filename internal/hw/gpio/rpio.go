package gpio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
	log  zerolog.Logger
}

// NewRPiDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiDriver(log zerolog.Logger) (*RPiDriver, error) {
	log.Info().Msg("initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
		log:  log,
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	r.log.Trace().Int("pin", pin).Int("mode", int(mode)).Msg("gpio setup")

	p := rpio.Pin(pin)
	r.pins[pin] = p

	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	r.log.Trace().Int("pin", pin).Bool("level", bool(level)).Msg("gpio write")

	p, ok := r.pins[pin]
	if !ok {
		// Pin not setup yet, setup as output
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	p, ok := r.pins[pin]
	if !ok {
		// Pin not setup yet, setup as input
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
		p = r.pins[pin]
	}

	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (r *RPiDriver) WatchPin(pin int) error {
	r.log.Trace().Int("pin", pin).Msg("gpio watch")

	if _, ok := r.pins[pin]; !ok {
		if err := r.SetupPin(pin, Input); err != nil {
			return err
		}
	}
	r.pins[pin].Detect(rpio.RiseEdge)
	return nil
}

func (r *RPiDriver) EdgeDetected(pin int) (bool, error) {
	p, ok := r.pins[pin]
	if !ok {
		return false, fmt.Errorf("pin %d is not watched", pin)
	}
	return p.EdgeDetected(), nil
}

func (r *RPiDriver) Close() error {
	r.log.Trace().Msg("gpio close (real driver)")

	// Reset all pins to input (safe state)
	for _, p := range r.pins {
		p.Detect(rpio.NoEdge)
		p.Input()
	}

	return rpio.Close()
}
