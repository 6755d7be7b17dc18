package scheduler

import (
	"fmt"
	"time"
)

// BusinessHours bounds the wall clock times at which sessions may run, measured
// in the business timezone. The zero value allows any time.
type BusinessHours struct {
	opensHour, opensMinute   int
	closesHour, closesMinute int
	location                 *time.Location
	enabled                  bool
}

// NewBusinessHours parses "HH:MM" opening and closing times.
func NewBusinessHours(opens, closes string, loc *time.Location) (BusinessHours, error) {
	oh, om, err := ParseClock(opens)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("opens at: %w", err)
	}
	ch, cm, err := ParseClock(closes)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("closes at: %w", err)
	}
	if ch*60+cm <= oh*60+om {
		return BusinessHours{}, fmt.Errorf("business hours: %w", ErrInvalidRange)
	}
	if loc == nil {
		loc = time.UTC
	}
	return BusinessHours{
		opensHour:    oh,
		opensMinute:  om,
		closesHour:   ch,
		closesMinute: cm,
		location:     loc,
		enabled:      true,
	}, nil
}

// IsZero reports whether no restriction is configured.
func (b BusinessHours) IsZero() bool { return !b.enabled }

// Location returns the business timezone.
func (b BusinessHours) Location() *time.Location {
	if b.location == nil {
		return time.UTC
	}
	return b.location
}

// ContainsInstant reports whether t falls within opening hours on its own date
// in the business timezone. Both bounds are inclusive.
func (b BusinessHours) ContainsInstant(t time.Time) bool {
	if !b.enabled {
		return true
	}
	local := t.In(b.Location())
	y, m, d := local.Date()
	opens := time.Date(y, m, d, b.opensHour, b.opensMinute, 0, 0, b.Location())
	closes := time.Date(y, m, d, b.closesHour, b.closesMinute, 0, 0, b.Location())
	return !local.Before(opens) && !local.After(closes)
}

// Allows reports whether both ends of r fall within opening hours.
func (b BusinessHours) Allows(r TimeRange) bool {
	if !b.enabled {
		return true
	}
	return b.ContainsInstant(r.Start()) && b.ContainsInstant(r.End())
}

func (b BusinessHours) String() string {
	if !b.enabled {
		return "unrestricted"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d %s", b.opensHour, b.opensMinute, b.closesHour, b.closesMinute, b.Location())
}
