// Package playback drives the deterministic, scrubable reveal of an
// extracted agent graph over the trace's wall-clock duration.
//
// # Clock
//
// The Clock is an explicit state machine (idle, playing, paused, ended)
// around a single mutable value: the virtual time cursor, bounded to the
// trace's time range. It deliberately has no scheduler of its own:
// Advance takes a wall-clock delta so a frame loop, a server session, or
// a test harness with synthetic deltas can all drive the same machine.
//
// While playing, each delta advances the cursor by
//
//	Δcursor = (traceDuration / (referenceDuration/speed)) * Δrealtime
//
// so a full trace replays in referenceDuration/speed of real time
// regardless of how long the trace actually ran.
//
// # Projection
//
// The Projector answers "what has happened so far" for a cursor value:
// the visible state set, the visible edge occurrences (repeated
// occurrences are revealed one index at a time), and the single active
// transition to highlight. It indexes the extraction's timed logs once
// and then serves projections by binary search, so calling Project on
// every tick is cheap and side-effect free.
//
// # Driver
//
// The Driver is the animation loop: one goroutine, one outstanding tick,
// teardown guaranteed by context cancellation or Stop. Commands issued
// between ticks (pause, seek, reset) take effect before the next tick
// because they and the tick serialize on the clock's lock.
package playback
