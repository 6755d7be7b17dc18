package application

import (
	"context"
	"fmt"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// AvailabilityIndex answers whether a range is free of booked sessions and
// blackout periods. The store narrows candidates by window; the exact
// half-open overlap test is always re-applied in memory.
type AvailabilityIndex struct {
	reader BookingReader
}

// NewAvailabilityIndex builds an index over reader, which is usually the
// transaction the subsequent write will run in.
func NewAvailabilityIndex(reader BookingReader) *AvailabilityIndex {
	return &AvailabilityIndex{reader: reader}
}

// FindOverlappingSessions returns the non-cancelled sessions overlapping r.
func (a *AvailabilityIndex) FindOverlappingSessions(ctx context.Context, r scheduler.TimeRange, excludeIDs ...string) ([]scheduler.Session, error) {
	if a == nil || a.reader == nil {
		return nil, fmt.Errorf("availability index not configured")
	}
	candidates, err := a.reader.ListSessions(ctx, SessionQuery{
		Overlapping:      &TimeWindow{Start: r.Start(), End: r.End()},
		ExcludeCancelled: true,
		ExcludeIDs:       excludeIDs,
	})
	if err != nil {
		return nil, err
	}
	return scheduler.OverlappingSessions(candidates, r, scheduler.IDSet(excludeIDs...)), nil
}

// FindOverlappingBlackouts returns the blackout periods overlapping r.
func (a *AvailabilityIndex) FindOverlappingBlackouts(ctx context.Context, r scheduler.TimeRange, excludeIDs ...string) ([]scheduler.Blackout, error) {
	if a == nil || a.reader == nil {
		return nil, fmt.Errorf("availability index not configured")
	}
	candidates, err := a.reader.ListBlackouts(ctx, BlackoutQuery{
		Overlapping: &TimeWindow{Start: r.Start(), End: r.End()},
		ExcludeIDs:  excludeIDs,
	})
	if err != nil {
		return nil, err
	}
	return scheduler.OverlappingBlackouts(candidates, r, scheduler.IDSet(excludeIDs...)), nil
}

// Conflicts lists everything blocking r. Sessions named in excludeSessionIDs
// are skipped so a session can be moved within its own range.
func (a *AvailabilityIndex) Conflicts(ctx context.Context, r scheduler.TimeRange, excludeSessionIDs ...string) ([]scheduler.Conflict, error) {
	sessions, err := a.FindOverlappingSessions(ctx, r, excludeSessionIDs...)
	if err != nil {
		return nil, err
	}
	blackouts, err := a.FindOverlappingBlackouts(ctx, r)
	if err != nil {
		return nil, err
	}
	return scheduler.DetectConflicts(r, sessions, blackouts, scheduler.IDSet(excludeSessionIDs...)), nil
}

// IsAvailable reports whether r can be booked.
func (a *AvailabilityIndex) IsAvailable(ctx context.Context, r scheduler.TimeRange, excludeSessionIDs ...string) (bool, error) {
	conflicts, err := a.Conflicts(ctx, r, excludeSessionIDs...)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// slotUnavailableError describes the first conflict without exposing other
// users' session ids.
func slotUnavailableError(conflicts []scheduler.Conflict) error {
	if len(conflicts) == 0 {
		return ErrSlotUnavailable
	}
	first := conflicts[0]
	switch first.Type {
	case scheduler.ConflictTypeBlackout:
		return fmt.Errorf("%w: overlaps a blackout period %s", ErrSlotUnavailable, first.Range)
	default:
		return fmt.Errorf("%w: overlaps a booked session %s", ErrSlotUnavailable, first.Range)
	}
}
