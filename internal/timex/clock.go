package timex

import (
	"sync"
	"time"
)

// Clock hands out millisecond timestamps.
type Clock interface {
	Now() int64
}

// nowFn is replaced in tests.
var nowFn = func() int64 { return time.Now().UnixMilli() }

// MonotonicClock never returns the same value twice and never goes back,
// even if the wall clock does. Field clocks and journal timestamps rely on it.
type MonotonicClock struct {
	mu   sync.Mutex
	last int64
}

// NewMonotonicClock returns a clock whose first reading is greater than floor.
func NewMonotonicClock(floor int64) *MonotonicClock {
	return &MonotonicClock{last: floor}
}

func (c *MonotonicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := nowFn()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// Observe moves the floor forward so later readings exceed ts.
func (c *MonotonicClock) Observe(ts int64) {
	c.mu.Lock()
	if ts > c.last {
		c.last = ts
	}
	c.mu.Unlock()
}

// ManualClock is a deterministic clock: each Now returns the current value
// and then advances it by Step (default 1).
type ManualClock struct {
	mu   sync.Mutex
	t    int64
	Step int64
}

func NewManualClock(start int64) *ManualClock {
	return &ManualClock{t: start, Step: 1}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.t
	c.t += c.Step
	return v
}

// Set moves the clock to t.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// NowMillis is the wall clock in milliseconds, used by drivers for remote clocks.
func NowMillis() int64 {
	return nowFn()
}
