package application

import (
	"time"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// ProjectSession renders s for a viewer in loc. linkPath is the redirect path
// of the attached link, if any.
func ProjectSession(s scheduler.Session, linkPath string, loc *time.Location, now time.Time) SessionView {
	date, start, end := s.Range().ConvertTo(loc)
	return SessionView{
		ID:              s.ID,
		Title:           s.Title,
		Date:            date,
		TimePeriod:      [2]string{start, end},
		LinkPath:        linkPath,
		IsApproved:      s.IsApproved(),
		Status:          s.Status(now),
		DurationMinutes: int(s.Range().Duration() / time.Minute),
	}
}

// ProjectBlackout renders b for a viewer in loc.
func ProjectBlackout(b scheduler.Blackout, loc *time.Location) BlackoutView {
	if loc == nil {
		loc = time.UTC
	}
	date, start, end := b.Range().ConvertTo(loc)
	return BlackoutView{
		ID:         b.ID,
		Date:       date,
		TimePeriod: [2]string{start, end},
		Timezone:   loc.String(),
	}
}

// clipToDay renders the part of r that falls inside [dayStart, dayEnd) as wall
// clock times in loc. A range running past the end of the day ends at "24:00".
func clipToDay(r scheduler.TimeRange, dayStart, dayEnd time.Time, loc *time.Location) TimePeriodView {
	start := r.Start()
	if start.Before(dayStart) {
		start = dayStart
	}
	end := r.End()
	endLabel := ""
	if !end.Before(dayEnd) {
		endLabel = "24:00"
	} else {
		endLabel = end.In(loc).Format(scheduler.ClockLayout)
	}
	return TimePeriodView{start.In(loc).Format(scheduler.ClockLayout), endLabel}
}
