package engine

import (
	"sync"
	"time"
)

// Clock supplies event and block timestamps.
//
// The core requires logical, monotonic time per process: two calls to
// Now never return the same or a decreasing instant. Calendar
// semantics (month, date) still matter because the season and
// daily-ceiling rules bucket by them.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock: wall time forced strictly
// monotonic. If the wall clock stalls or steps backward, the returned
// instant is bumped one nanosecond past the previous one.
//
// Thread-safety: safe for concurrent use.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
}

// NewSystemClock creates a strictly monotonic wall clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the next strictly increasing instant.
func (c *SystemClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}

// ManualClock returns predetermined instants for deterministic tests
// and scenario replay: a fixed start advanced by a fixed step on every
// call.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ManualClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewManualClock creates a clock starting at start, advancing by step
// per Now call. A zero step still advances one nanosecond to preserve
// strict monotonicity.
func NewManualClock(start time.Time, step time.Duration) *ManualClock {
	if step <= 0 {
		step = time.Nanosecond
	}
	return &ManualClock{current: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Advance moves the clock forward by d without emitting an instant.
// Used by tests to cross calendar-day boundaries.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
