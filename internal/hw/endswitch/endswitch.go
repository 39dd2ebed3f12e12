package endswitch

import (
	"github.com/openmuon/mumasp/internal/hw/gpio"
)

// Switch reads a mechanical end-switch wired to a GPIO input.
// ActiveLow matches the usual pull-up wiring: the line is pulled HIGH
// and the switch shorts it to ground when engaged.
type Switch struct {
	gpio      gpio.Driver
	pin       int
	activeLow bool
}

func New(g gpio.Driver, pin int, activeLow bool) *Switch {
	_ = g.SetupPin(pin, gpio.Input)
	return &Switch{
		gpio:      g,
		pin:       pin,
		activeLow: activeLow,
	}
}

// Engaged returns true while the axis sits on its mechanical reference.
func (s *Switch) Engaged() (bool, error) {
	level, err := s.gpio.ReadPin(s.pin)
	if err != nil {
		return false, err
	}
	if s.activeLow {
		return level == gpio.Low, nil
	}
	return level == gpio.High, nil
}
