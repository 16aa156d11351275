// Package driver runs the single-threaded poll loop. Each tick runs to
// completion before the next one fires, and the tick handler may change the
// poll rate, which takes effect from the following tick.
package driver

import (
	"context"
	"sync"
	"time"
)

// DefaultRate is used when no positive rate was configured.
const DefaultRate = 10.0

// Driver calls Tick at the current poll rate until its context is done.
type Driver struct {
	// Tick is invoked once per poll. It must not block for long.
	Tick func()

	// NewTicker creates a ticker channel and its stop function.
	// If nil, time.NewTicker is used.
	NewTicker func(d time.Duration) (tick <-chan time.Time, stop func())

	mu   sync.Mutex
	rate float64
}

// New returns a driver polling at rate Hz.
func New(rate float64, tick func()) *Driver {
	return &Driver{Tick: tick, rate: rate}
}

// SetPollRate requests a new rate in Hz. Non-positive rates are ignored.
func (d *Driver) SetPollRate(hz float64) {
	if hz <= 0 {
		return
	}
	d.mu.Lock()
	d.rate = hz
	d.mu.Unlock()
}

// PollRate returns the current rate in Hz.
func (d *Driver) PollRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// Interval converts a rate in Hz to a tick period.
func Interval(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

// Run ticks once immediately, then at the poll rate, until ctx is cancelled.
// The ticker is re-armed whenever a tick changed the rate.
func (d *Driver) Run(ctx context.Context) error {
	newTicker := d.NewTicker
	if newTicker == nil {
		newTicker = defaultNewTicker
	}

	d.Tick()

	rate := d.PollRate()
	if rate <= 0 {
		rate = DefaultRate
		d.SetPollRate(rate)
	}
	ch, stop := newTicker(Interval(rate))
	defer func() { stop() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			d.Tick()
			if r := d.PollRate(); r != rate {
				stop()
				rate = r
				ch, stop = newTicker(Interval(rate))
			}
		}
	}
}

func defaultNewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
