package game

import "time"

// DefaultMaxDelta caps a frame delta at one 60 fps frame so a stalled loop
// cannot recover a whole spray in one step.
const DefaultMaxDelta = 0.016

// FrameClock measures wall time between frames.
type FrameClock struct {
	last     time.Time
	maxDelta float64
}

// NewFrameClock creates a clock. A non-positive maxDelta uses DefaultMaxDelta.
func NewFrameClock(maxDelta float64) *FrameClock {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDelta
	}
	return &FrameClock{maxDelta: maxDelta}
}

// Tick returns the seconds elapsed since the previous tick, clamped to
// [0, maxDelta]. The first tick returns 0.
func (c *FrameClock) Tick(now time.Time) float64 {
	if c.last.IsZero() {
		c.last = now
		return 0
	}
	dt := now.Sub(c.last).Seconds()
	c.last = now

	if dt < 0 {
		return 0
	}
	if dt > c.maxDelta {
		return c.maxDelta
	}
	return dt
}
