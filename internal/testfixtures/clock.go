package testfixtures

import (
	"sync"
	"time"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// Clock is a settable time source shared by services under test.
type Clock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the instant the clock currently reads.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// NowFunc adapts the clock to the now func() time.Time parameters taken by
// the application services. A nil clock falls back to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetLocal moves the clock to a wall time, e.g. SetLocal("2030-03-05", "09:55", tokyo).
func (c *Clock) SetLocal(date, clock string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	day, _, err := scheduler.LocalDay(date, loc)
	if err != nil {
		return err
	}
	hour, minute, err := scheduler.ParseClock(clock)
	if err != nil {
		return err
	}
	c.Set(time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc))
	return nil
}

// Advance moves the clock by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
