package clock

import (
	"sync"
	"time"
)

// Clock is the controller's wall-clock source. The deployed instrument
// has no network time, so operators set the clock over the command
// channel before a run.
type Clock interface {
	Now() time.Time
	Set(t time.Time) error
}

// Adjusted keeps an offset on top of the host clock so Set can move
// wall time without touching the OS. The offset is lost on restart,
// matching the unbuffered RTC behavior (no persistence).
type Adjusted struct {
	mu     sync.Mutex
	offset time.Duration
}

func NewAdjusted() *Adjusted {
	return &Adjusted{}
}

func (c *Adjusted) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *Adjusted) Set(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = t.Sub(time.Now())
	return nil
}

// Manual is a fixed clock for tests.
type Manual struct {
	Current time.Time
}

func (c *Manual) Now() time.Time {
	return c.Current
}

func (c *Manual) Set(t time.Time) error {
	c.Current = t
	return nil
}

// Advance moves the manual clock forward.
func (c *Manual) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
