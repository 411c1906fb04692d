package testutil

import "sync/atomic"

// DeterministicClock hands out origin_server_ts values in a fixed
// arithmetic sequence, so timestamp order follows the order in which
// fixture events are built. Safe for concurrent use.
type DeterministicClock struct {
	last atomic.Int64
	step int64
}

// NewDeterministicClock returns a clock whose first timestamp is 1 and
// which advances by 1.
func NewDeterministicClock() *DeterministicClock {
	return NewClockAt(0, 1)
}

// NewClockAt returns a clock whose first timestamp is start+step.
// Use a millisecond epoch as start for fixtures that print timestamps.
func NewClockAt(start, step int64) *DeterministicClock {
	if step <= 0 {
		step = 1
	}
	c := &DeterministicClock{step: step}
	c.last.Store(start)
	return c
}

// Next advances the clock and returns the new timestamp.
func (c *DeterministicClock) Next() int64 {
	return c.last.Add(c.step)
}

// Last returns the most recent timestamp, or the start if Next was never
// called.
func (c *DeterministicClock) Last() int64 {
	return c.last.Load()
}
