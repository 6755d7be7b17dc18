package scheduler

import "time"

// Blackout is an administrator-declared range during which nothing may be booked.
type Blackout struct {
	ID        string
	Location  *time.Location
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	timeRange TimeRange
}

// NewBlackout creates a blackout period over r.
func NewBlackout(id string, r TimeRange, loc *time.Location, createdBy string, now time.Time) (Blackout, error) {
	if r.IsZero() {
		return Blackout{}, ErrRangeRequired
	}
	if loc == nil {
		loc = time.UTC
	}
	return Blackout{
		ID:        id,
		Location:  loc,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		timeRange: r,
	}, nil
}

// RestoreBlackout rebuilds a stored blackout period.
func RestoreBlackout(id string, r TimeRange, loc *time.Location, createdBy string, createdAt, updatedAt time.Time, version int64) (Blackout, error) {
	b, err := NewBlackout(id, r, loc, createdBy, createdAt)
	if err != nil {
		return Blackout{}, err
	}
	b.UpdatedAt = updatedAt
	b.Version = version
	return b, nil
}

func (b Blackout) Range() TimeRange { return b.timeRange }

// Reschedule moves the blackout. Overlap with other blackouts is checked by the caller.
func (b *Blackout) Reschedule(r TimeRange, loc *time.Location, now time.Time) error {
	if r.IsZero() {
		return ErrRangeRequired
	}
	if loc != nil {
		b.Location = loc
	}
	b.timeRange = r
	b.UpdatedAt = now
	return nil
}
