package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTickInterval is the frame interval used when none is configured.
const DefaultTickInterval = 50 * time.Millisecond

// TickFunc receives the cursor and clock state after each tick. It runs
// on the driver goroutine: keep it short, hand heavy work elsewhere.
type TickFunc func(cursor time.Time, state State)

// Driver is the animation loop around a Clock.
//
// Exactly one tick is outstanding at a time: ticks run sequentially on
// the single Run goroutine, and each tick observes any pause, seek, or
// reset issued since the previous one because those calls and Advance
// serialize on the clock's lock. Stopping the driver (Stop or context
// cancellation) guarantees no further ticks fire, so no callback can
// mutate state after teardown.
type Driver struct {
	clock    *Clock
	interval time.Duration
	onTick   TickFunc

	stopOnce sync.Once
	stop     chan struct{}
}

// NewDriver creates a driver ticking at the given interval. A zero or
// negative interval falls back to DefaultTickInterval.
func NewDriver(clock *Clock, interval time.Duration, onTick TickFunc) *Driver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Driver{
		clock:    clock,
		interval: interval,
		onTick:   onTick,
		stop:     make(chan struct{}),
	}
}

// Run blocks, advancing the clock by measured wall-clock deltas until the
// context is cancelled or Stop is called. Must be called from exactly one
// goroutine.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("playback driver stopping: context cancelled")
			return

		case <-d.stop:
			slog.Debug("playback driver stopping: stop requested")
			return

		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			cursor, state := d.clock.Advance(delta)
			if d.onTick != nil {
				d.onTick(cursor, state)
			}
		}
	}
}

// Stop ends the loop. Safe to call more than once and from any goroutine;
// after Stop returns the loop exits before its next tick.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}
