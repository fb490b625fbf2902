package playback

import (
	"sync"
	"time"

	"github.com/rhesis-ai/traceplay/internal/markov"
)

// State is the playback clock's lifecycle state.
type State int

const (
	// StateIdle means the cursor sits at the range start, not playing.
	StateIdle State = iota

	// StatePlaying means ticks advance the cursor.
	StatePlaying

	// StatePaused means the cursor is frozen where it was left.
	StatePaused

	// StateEnded means the cursor reached the range end.
	StateEnded
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// DefaultReferenceDuration is how long a full trace takes to replay at 1×.
const DefaultReferenceDuration = 10 * time.Second

// DefaultSpeeds is the discrete speed set CycleSpeed rotates through.
var DefaultSpeeds = []float64{1, 2, 4}

// Clock owns the playback cursor for one trace.
//
// The cursor is the only mutable value in the playback pipeline. All
// methods serialize on an internal lock, so a driver goroutine and
// external control calls (pause, seek, speed) can share one Clock; a
// control call landing between ticks is always observed by the next tick.
type Clock struct {
	mu       sync.Mutex
	rng      markov.TimeRange
	state    State
	cursor   time.Time
	refDur   time.Duration
	speeds   []float64
	speedIdx int
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithReferenceDuration overrides how long a full trace takes at 1×.
func WithReferenceDuration(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d > 0 {
			c.refDur = d
		}
	}
}

// WithSpeeds overrides the discrete speed set. The slice is copied; only
// positive multipliers are kept.
func WithSpeeds(speeds []float64) ClockOption {
	return func(c *Clock) {
		var filtered []float64
		for _, s := range speeds {
			if s > 0 {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			c.speeds = filtered
		}
	}
}

// NewClock creates an idle clock with the cursor at the range start.
func NewClock(rng markov.TimeRange, opts ...ClockOption) *Clock {
	c := &Clock{
		rng:    rng,
		state:  StateIdle,
		cursor: rng.Start,
		refDur: DefaultReferenceDuration,
		speeds: DefaultSpeeds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play starts or resumes playback. Playing from the ended state restarts
// from the range start: resuming at the end would be a no-op.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying:
		// already playing
	case StateEnded:
		c.cursor = c.rng.Start
		c.state = StatePlaying
	default:
		c.state = StatePlaying
	}
}

// Pause freezes the cursor where it is. Pausing a non-playing clock is a
// no-op.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		c.state = StatePaused
	}
}

// Seek moves the cursor to t, clamped to the trace range, and pauses.
// Scrubbing always yields a deterministic paused state, even while
// playing, so the projector never races the animation loop.
func (c *Clock) Seek(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cursor = c.rng.Clamp(t)
	c.state = StatePaused
}

// Reset returns the clock to idle with the cursor at the range start.
// Called whenever the input span tree is replaced.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cursor = c.rng.Start
	c.state = StateIdle
}

// CycleSpeed rotates to the next speed in the configured set and returns
// the new multiplier.
func (c *Clock) CycleSpeed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.speedIdx = (c.speedIdx + 1) % len(c.speeds)
	return c.speeds[c.speedIdx]
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speeds[c.speedIdx]
}

// State returns the current lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the current virtual playback time.
func (c *Clock) Cursor() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Range returns the trace time range the cursor is bounded to.
func (c *Clock) Range() markov.TimeRange {
	return c.rng
}

// Advance moves the cursor forward by one tick's worth of virtual time
// for the given wall-clock delta. Only a playing clock advances; paused,
// idle, and ended clocks report their cursor unchanged.
//
// Reaching or exceeding the range end clamps the cursor and transitions
// to ended. A degenerate (zero-duration) trace ends on its first tick.
func (c *Clock) Advance(delta time.Duration) (cursor time.Time, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return c.cursor, c.state
	}

	traceDur := c.rng.Duration()
	if traceDur <= 0 {
		c.cursor = c.rng.End
		c.state = StateEnded
		return c.cursor, c.state
	}

	speed := c.speeds[c.speedIdx]
	base := float64(c.refDur) / speed
	advance := time.Duration(float64(traceDur) / base * float64(delta))

	c.cursor = c.cursor.Add(advance)
	if !c.cursor.Before(c.rng.End) {
		c.cursor = c.rng.End
		c.state = StateEnded
	}
	return c.cursor, c.state
}
