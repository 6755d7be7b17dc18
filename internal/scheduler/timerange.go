package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for wall clock times.
	ClockLayout = "15:04"
)

var (
	// ErrInvalidRange is returned when a range does not start strictly before it ends.
	ErrInvalidRange = errors.New("scheduler: start must be before end")
	// ErrSpansMidnight is returned when start and end fall on different local dates.
	ErrSpansMidnight = errors.New("scheduler: start and end must fall on the same local date")
	// ErrInvalidDate is returned when a date string does not match DateLayout.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidClock is returned when a time string does not match ClockLayout.
	ErrInvalidClock = errors.New("scheduler: invalid time of day")
)

// TimeRange is a half-open interval [start, end) between two absolute instants.
// The zero value is an empty range that overlaps nothing.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange validates start < end and that both instants share a calendar
// date when expressed in loc. When loc is nil the location of start is used.
func NewTimeRange(start, end time.Time, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = start.Location()
	}
	if !start.Before(end) {
		return TimeRange{}, ErrInvalidRange
	}
	if !sameDate(start.In(loc), end.In(loc)) {
		return TimeRange{}, ErrSpansMidnight
	}
	return TimeRange{start: start.UTC(), end: end.UTC()}, nil
}

// ParseLocalRange builds a range from a local date and two wall clock times
// interpreted in loc.
func ParseLocalRange(date, startClock, endClock string, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	startHour, startMinute, err := ParseClock(startClock)
	if err != nil {
		return TimeRange{}, err
	}
	endHour, endMinute, err := ParseClock(endClock)
	if err != nil {
		return TimeRange{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMinute, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, endMinute, 0, 0, loc)
	return NewTimeRange(start, end, loc)
}

// ParseClock parses an "HH:MM" wall clock value.
func ParseClock(value string) (hour, minute int, err error) {
	parsed, perr := time.Parse(ClockLayout, strings.TrimSpace(value))
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// LocalDay returns the absolute bounds of the calendar date in loc.
func LocalDay(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return day, day.AddDate(0, 0, 1), nil
}

// Start returns the inclusive start instant in UTC.
func (r TimeRange) Start() time.Time { return r.start }

// End returns the exclusive end instant in UTC.
func (r TimeRange) End() time.Time { return r.end }

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration { return r.end.Sub(r.start) }

// IsZero reports whether the range is the zero value.
func (r TimeRange) IsZero() bool { return r.start.IsZero() && r.end.IsZero() }

// Equal reports whether both ranges cover the same instants.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}

// Overlaps reports whether the two half-open ranges share any instant.
// Touching endpoints do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	if r.IsZero() || other.IsZero() {
		return false
	}
	return r.start.Before(other.end) && other.start.Before(r.end)
}

// OverlapsWindow is Overlaps against raw bounds that need not satisfy the
// same-date rule, such as a full local day.
func (r TimeRange) OverlapsWindow(start, end time.Time) bool {
	if r.IsZero() {
		return false
	}
	return r.start.Before(end) && start.Before(r.end)
}

// Contains reports whether t falls within [start, end).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && t.Before(r.end)
}

// ConvertTo projects the range into loc, returning the local date of the start
// and the start and end wall clock times.
func (r TimeRange) ConvertTo(loc *time.Location) (date, start, end string) {
	if loc == nil {
		loc = time.UTC
	}
	localStart := r.start.In(loc)
	localEnd := r.end.In(loc)
	return localStart.Format(DateLayout), localStart.Format(ClockLayout), localEnd.Format(ClockLayout)
}

// String renders the range in RFC 3339 for logs.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
