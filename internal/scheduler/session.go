package scheduler

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle status of a session as observed at a point in time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusHeld      Status = "held"
	StatusCancelled Status = "cancelled"
	// StatusMissed is derived: an approved session whose end passed without being held.
	StatusMissed Status = "missed"
)

var (
	ErrTitleRequired    = errors.New("scheduler: title is required")
	ErrRangeRequired    = errors.New("scheduler: time range is required")
	ErrOwnerRequired    = errors.New("scheduler: owner is required")
	ErrStartInPast      = errors.New("scheduler: start is in the past")
	ErrSessionHeld      = errors.New("scheduler: session has already been held")
	ErrSessionCancelled = errors.New("scheduler: session has been cancelled")
	ErrLinkRequired     = errors.New("scheduler: a link must be attached before the session can be held")
	ErrSessionNotEnded  = errors.New("scheduler: session cannot be held before it ends")
	ErrHeldAndCancelled = errors.New("scheduler: session cannot be both held and cancelled")
)

// Session is a booked meeting slot. Its held and cancelled flags are only
// changed through the transition methods so the two are never set together.
type Session struct {
	ID            string
	Title         string
	OwnerID       string
	Location      *time.Location
	LinkID        string
	RescheduledAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64

	timeRange TimeRange
	hasHeld   bool
	cancelled bool
}

// NewSessionParams carries the inputs for a fresh booking.
type NewSessionParams struct {
	ID       string
	Title    string
	OwnerID  string
	Range    TimeRange
	Location *time.Location
	Now      time.Time
}

// NewSession creates a pending session without a link.
func NewSession(params NewSessionParams) (Session, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return Session{}, ErrTitleRequired
	}
	if params.OwnerID == "" {
		return Session{}, ErrOwnerRequired
	}
	if params.Range.IsZero() {
		return Session{}, ErrRangeRequired
	}
	if params.Range.Start().Before(params.Now) {
		return Session{}, ErrStartInPast
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return Session{
		ID:        params.ID,
		Title:     title,
		OwnerID:   params.OwnerID,
		Location:  loc,
		CreatedAt: params.Now,
		UpdatedAt: params.Now,
		Version:   1,
		timeRange: params.Range,
	}, nil
}

// SessionSnapshot is the flat form of a session used to rehydrate stored rows.
type SessionSnapshot struct {
	ID            string
	Title         string
	OwnerID       string
	Range         TimeRange
	Location      *time.Location
	LinkID        string
	HasHeld       bool
	Cancelled     bool
	RescheduledAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

// RestoreSession rebuilds a session from storage, rejecting impossible states.
func RestoreSession(snap SessionSnapshot) (Session, error) {
	if snap.HasHeld && snap.Cancelled {
		return Session{}, ErrHeldAndCancelled
	}
	if snap.Range.IsZero() {
		return Session{}, ErrRangeRequired
	}
	if snap.HasHeld && snap.LinkID == "" {
		return Session{}, ErrLinkRequired
	}
	loc := snap.Location
	if loc == nil {
		loc = time.UTC
	}
	return Session{
		ID:            snap.ID,
		Title:         snap.Title,
		OwnerID:       snap.OwnerID,
		Location:      loc,
		LinkID:        snap.LinkID,
		RescheduledAt: snap.RescheduledAt,
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
		Version:       snap.Version,
		timeRange:     snap.Range,
		hasHeld:       snap.HasHeld,
		cancelled:     snap.Cancelled,
	}, nil
}

// Snapshot flattens the session for storage.
func (s Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:            s.ID,
		Title:         s.Title,
		OwnerID:       s.OwnerID,
		Range:         s.timeRange,
		Location:      s.Location,
		LinkID:        s.LinkID,
		HasHeld:       s.hasHeld,
		Cancelled:     s.cancelled,
		RescheduledAt: s.RescheduledAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       s.Version,
	}
}

func (s Session) Range() TimeRange { return s.timeRange }
func (s Session) HasHeld() bool    { return s.hasHeld }
func (s Session) Cancelled() bool  { return s.cancelled }
func (s Session) HasLink() bool    { return s.LinkID != "" }

// IsPending reports whether the session is neither held nor cancelled.
func (s Session) IsPending() bool { return !s.hasHeld && !s.cancelled }

// IsApproved reports whether the session is pending with a link attached.
func (s Session) IsApproved() bool { return s.IsPending() && s.HasLink() }

// IsFinal reports whether the session reached a terminal state.
func (s Session) IsFinal() bool { return s.hasHeld || s.cancelled }

// IsMissed reports whether an approved session ended without being held.
func (s Session) IsMissed(now time.Time) bool {
	return s.IsApproved() && !s.timeRange.End().After(now)
}

// Status derives the lifecycle status at now.
func (s Session) Status(now time.Time) Status {
	switch {
	case s.hasHeld:
		return StatusHeld
	case s.cancelled:
		return StatusCancelled
	case s.IsMissed(now):
		return StatusMissed
	case s.IsApproved():
		return StatusApproved
	default:
		return StatusPending
	}
}

// Rename changes the title.
func (s *Session) Rename(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if title == s.Title {
		return nil
	}
	s.Title = title
	s.UpdatedAt = now
	return nil
}

// AttachLink attaches or replaces the meeting link, which approves the session.
func (s *Session) AttachLink(linkID string, now time.Time) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if linkID == "" {
		return ErrLinkRequired
	}
	if linkID == s.LinkID {
		return nil
	}
	s.LinkID = linkID
	s.UpdatedAt = now
	return nil
}

// DetachLink removes the meeting link, returning the session to plain pending.
func (s *Session) DetachLink(now time.Time) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if s.LinkID == "" {
		return nil
	}
	s.LinkID = ""
	s.UpdatedAt = now
	return nil
}

// Reschedule moves the session to a new range. Availability is checked by the caller.
func (s *Session) Reschedule(r TimeRange, loc *time.Location, now time.Time) error {
	if s.hasHeld {
		return ErrSessionHeld
	}
	if r.IsZero() {
		return ErrRangeRequired
	}
	if r.Start().Before(now) {
		return ErrStartInPast
	}
	if loc != nil {
		s.Location = loc
	}
	if r.Equal(s.timeRange) {
		return nil
	}
	s.timeRange = r
	rescheduled := now
	s.RescheduledAt = &rescheduled
	s.UpdatedAt = now
	return nil
}

// MarkHeld records that the session took place.
func (s *Session) MarkHeld(now time.Time) error {
	if s.hasHeld {
		return nil
	}
	if s.cancelled {
		return ErrSessionCancelled
	}
	if !s.HasLink() {
		return ErrLinkRequired
	}
	if now.Before(s.timeRange.End()) {
		return ErrSessionNotEnded
	}
	s.hasHeld = true
	s.UpdatedAt = now
	return nil
}

// Cancel soft-deletes the session. Held and cancelled are terminal, so there
// is no way back once either flag is set.
func (s *Session) Cancel(now time.Time) error {
	if s.cancelled {
		return nil
	}
	if s.hasHeld {
		return ErrSessionHeld
	}
	s.cancelled = true
	s.UpdatedAt = now
	return nil
}

func (s Session) ensureOpen() error {
	if s.hasHeld {
		return ErrSessionHeld
	}
	if s.cancelled {
		return ErrSessionCancelled
	}
	return nil
}
