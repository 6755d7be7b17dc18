package application

import (
	"time"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// Requester is the authenticated user on whose behalf a service call runs.
// Every calendar view is projected into the requester's timezone.
type Requester struct {
	ID       string
	IsAdmin  bool
	Timezone *time.Location
}

// Location returns the requester's timezone, defaulting to UTC.
func (r Requester) Location() *time.Location {
	if r.Timezone == nil {
		return time.UTC
	}
	return r.Timezone
}

// CreateSessionParams carries a booking request expressed in local wall time.
type CreateSessionParams struct {
	Requester Requester
	Title     string
	Date      string
	StartTime string
	EndTime   string
	// Timezone is an IANA name; empty means the requester's timezone.
	Timezone string
}

// UpdateSessionParams carries a partial edit. Nil fields are left unchanged.
type UpdateSessionParams struct {
	Requester Requester
	SessionID string
	Title     *string
	Date      *string
	StartTime *string
	EndTime   *string
	Timezone  *string
	// Link is the meeting URL. An empty string detaches the current link.
	Link      *string
	HasHeld   *bool
	Cancelled *bool
}

// SessionView is a session projected into a viewer's timezone.
type SessionView struct {
	ID              string
	Title           string
	Date            string
	TimePeriod      [2]string
	LinkPath        string
	IsApproved      bool
	Status          scheduler.Status
	DurationMinutes int
}

// BookingsByStatus partitions a user's sessions on one date, keyed by title.
type BookingsByStatus struct {
	Pending   map[string]SessionView
	Missed    map[string]SessionView
	Held      map[string]SessionView
	Cancelled map[string]SessionView
}

func newBookingsByStatus() BookingsByStatus {
	return BookingsByStatus{
		Pending:   make(map[string]SessionView),
		Missed:    make(map[string]SessionView),
		Held:      make(map[string]SessionView),
		Cancelled: make(map[string]SessionView),
	}
}

// put files view under its status and title. It reports the view it
// replaced when another session on the date already holds the title.
func (b BookingsByStatus) put(view SessionView) (replaced SessionView, collided bool) {
	bucket := b.Pending
	switch view.Status {
	case scheduler.StatusHeld:
		bucket = b.Held
	case scheduler.StatusCancelled:
		bucket = b.Cancelled
	case scheduler.StatusMissed:
		bucket = b.Missed
	}
	replaced, collided = bucket[view.Title]
	bucket[view.Title] = view
	return replaced, collided
}

// TimePeriodView is a wall clock "HH:MM" pair on the viewed date.
type TimePeriodView [2]string

// CalendarView is the payload behind the calendar page for one date.
type CalendarView struct {
	Date             string
	UnavailableTimes []TimePeriodView
	Bookings         BookingsByStatus
}

// BlackoutParams describes a blackout in local wall time.
type BlackoutParams struct {
	Requester Requester
	Date      string
	StartTime string
	EndTime   string
	Timezone  string
}

// UpdateBlackoutParams moves an existing blackout.
type UpdateBlackoutParams struct {
	BlackoutParams
	BlackoutID string
}

// BlackoutView is a blackout projected into a viewer's timezone.
type BlackoutView struct {
	ID         string
	Date       string
	TimePeriod [2]string
	Timezone   string
}

// ConflictWarning reports a booked session that a new blackout now covers.
// The blackout is saved regardless.
type ConflictWarning struct {
	SessionID string
	Start     time.Time
	End       time.Time
}

// BlackoutResult returns the stored blackout with any session warnings.
type BlackoutResult struct {
	Blackout scheduler.Blackout
	Warnings []ConflictWarning
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	Timezone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
	Disabled     bool
}

// AuthSession represents a login token issued to a user.
type AuthSession struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User      User
	Session   AuthSession
	Requester Requester
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session AuthSession
}
