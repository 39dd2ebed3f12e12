package alarm

import (
	"github.com/openmuon/mumasp/internal/hw/gpio"
)

// LED drives the visual alarm indicator. Set is a single pin write so
// it stays safe to call from the trigger path.
type LED struct {
	gpio gpio.Driver
	pin  int
}

func New(g gpio.Driver, pin int) *LED {
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)
	return &LED{gpio: g, pin: pin}
}

func (l *LED) Set(on bool) error {
	if on {
		return l.gpio.WritePin(l.pin, gpio.High)
	}
	return l.gpio.WritePin(l.pin, gpio.Low)
}
