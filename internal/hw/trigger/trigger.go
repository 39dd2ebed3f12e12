package trigger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/hw/gpio"
)

// Watcher polls a GPIO input for rising edges from the coincidence
// discriminator and invokes a callback per detected edge. It runs in
// its own goroutine and is the only code outside the main loop; the
// callback must be O(1) and non-blocking (it sets the event log's
// pending flag and switches the alarm LED on).
type Watcher struct {
	gpio     gpio.Driver
	pin      int
	interval time.Duration
	onEdge   func()
	log      zerolog.Logger
}

// New arms edge detection on pin and prepares a watcher. interval is
// the poll period; if 0, defaults to 1ms.
func New(g gpio.Driver, pin int, interval time.Duration, onEdge func(), log zerolog.Logger) (*Watcher, error) {
	if err := g.SetupPin(pin, gpio.Input); err != nil {
		return nil, err
	}
	if err := g.WatchPin(pin); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Watcher{
		gpio:     g,
		pin:      pin,
		interval: interval,
		onEdge:   onEdge,
		log:      log,
	}, nil
}

// Run polls for edges until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hit, err := w.gpio.EdgeDetected(w.pin)
			if err != nil {
				w.log.Error().Err(err).Int("pin", w.pin).Msg("trigger poll failed")
				continue
			}
			if hit {
				w.onEdge()
			}
		}
	}
}
