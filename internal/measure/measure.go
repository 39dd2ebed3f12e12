// Package measure runs muon counting campaigns against a telescope
// controller: single measurements at a fixed pointing and scans over a
// list of pointings.
package measure

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmuon/mumasp/internal/client"
)

// Controller is the slice of the telescope client a measurement needs.
type Controller interface {
	ClearBuffer(ctx context.Context) error
	EventCount(ctx context.Context) (int, error)
	ReadBuffer(ctx context.Context) ([]int64, error)
	MoveTo(ctx context.Context, theta, phi float64) error
}

// Options tunes one measurement run.
type Options struct {
	MaxDuration   time.Duration // stop after this long (default 1h)
	MaxTriggers   int           // stop after this many triggers (default 10000)
	ReadInterval  time.Duration // poll period for the buffer level (default 10s)
	ReadThreshold int           // drain the buffer once it holds this many (default 100)
}

func (o *Options) applyDefaults() {
	if o.MaxDuration <= 0 {
		o.MaxDuration = time.Hour
	}
	if o.MaxTriggers <= 0 {
		o.MaxTriggers = 10000
	}
	if o.ReadInterval <= 0 {
		o.ReadInterval = 10 * time.Second
	}
	if o.ReadThreshold <= 0 {
		o.ReadThreshold = 100
	}
}

// Result is one finished measurement.
type Result struct {
	Start      time.Time
	Elapsed    time.Duration
	Timestamps []int64
}

// Measure counts triggers at the current pointing. The controller's
// buffer is cleared first, then polled every ReadInterval and drained
// whenever it holds at least ReadThreshold events, until MaxDuration
// elapses or MaxTriggers have been collected. The buffer is drained a
// final time before returning.
func Measure(ctx context.Context, c Controller, opts Options, log zerolog.Logger) (Result, error) {
	opts.applyDefaults()

	if err := c.ClearBuffer(ctx); err != nil {
		return Result{}, err
	}

	start := time.Now()
	var triggers []int64

	for time.Since(start) < opts.MaxDuration {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(opts.ReadInterval):
		}

		inBuffer, err := c.EventCount(ctx)
		if err != nil {
			return Result{}, err
		}

		if inBuffer >= opts.ReadThreshold {
			batch, err := c.ReadBuffer(ctx)
			if err != nil {
				return Result{}, err
			}
			triggers = append(triggers, batch...)
			inBuffer = 0
			log.Debug().Int("total", len(triggers)).Msg("drained trigger buffer")
		}

		if len(triggers)+inBuffer >= opts.MaxTriggers {
			break
		}
	}
	elapsed := time.Since(start)

	batch, err := c.ReadBuffer(ctx)
	if err != nil {
		return Result{}, err
	}
	triggers = append(triggers, batch...)

	log.Info().Int("triggers", len(triggers)).Dur("elapsed", elapsed).Msg("measurement finished")
	return Result{Start: start, Elapsed: elapsed, Timestamps: triggers}, nil
}

// Raster builds the position grid for a raster scan: every phi at
// every theta.
func Raster(thetas, phis []float64) []client.Position {
	out := make([]client.Position, 0, len(thetas)*len(phis))
	for _, theta := range thetas {
		for _, phi := range phis {
			out = append(out, client.Position{Theta: theta, Phi: phi})
		}
	}
	return out
}
