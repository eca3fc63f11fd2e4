package clock

import (
	"sync"
	"time"
)

// FakeClock is a pinned Clock for tests. It is safe to share across the
// orchestrator's brand workers.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// NewSteppingClock returns a FakeClock that moves forward by step after every
// Now call, so consecutive reads (run start, run finish) differ.
func NewSteppingClock(t time.Time, step time.Duration) *FakeClock {
	return &FakeClock{now: t.UTC(), step: step}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set pins the clock, e.g. to replay a run against an earlier reference date.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}
