package persistence

import (
	"context"
	"time"
)

// UserRepository exposes the account lookups needed for authentication.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthSessionRepository stores login token state.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	UpdateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) (int64, error)
}

// Window is a half-open [Start, End) interval used to select overlapping rows.
type Window struct {
	Start time.Time
	End   time.Time
}

// SessionFilter narrows session queries. Zero fields do not filter.
type SessionFilter struct {
	OwnerID string
	// Overlapping selects rows with start_at < End and end_at > Start.
	Overlapping *Window
	// StartsWithin selects rows whose start_at falls in [Start, End).
	StartsWithin     *Window
	ExcludeCancelled bool
	ExcludeIDs       []string
}

// SessionRepository stores booked sessions.
type SessionRepository interface {
	InsertSession(ctx context.Context, session Session) error
	// UpdateSession writes session if the stored version equals expectedVersion,
	// returning ErrVersionConflict otherwise.
	UpdateSession(ctx context.Context, session Session, expectedVersion int64) error
	GetSession(ctx context.Context, id string) (Session, error)
	GetSessionByLinkID(ctx context.Context, linkID string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}

// BlackoutFilter narrows blackout queries.
type BlackoutFilter struct {
	Overlapping *Window
	ExcludeIDs  []string
}

// BlackoutRepository stores blackout periods.
type BlackoutRepository interface {
	InsertBlackout(ctx context.Context, blackout Blackout) error
	UpdateBlackout(ctx context.Context, blackout Blackout, expectedVersion int64) error
	DeleteBlackout(ctx context.Context, id string) error
	GetBlackout(ctx context.Context, id string) (Blackout, error)
	ListBlackouts(ctx context.Context, filter BlackoutFilter) ([]Blackout, error)
}

// LinkRepository stores wrapped meeting URLs.
type LinkRepository interface {
	InsertLink(ctx context.Context, link Link) error
	UpdateLink(ctx context.Context, link Link) error
	GetLink(ctx context.Context, id string) (Link, error)
	GetLinkByIdentifier(ctx context.Context, identifier string) (Link, error)
}

// BookingRepositories groups the repositories that take part in a booking.
type BookingRepositories interface {
	SessionRepository
	BlackoutRepository
	LinkRepository
}

// BookingStore runs booking reads and writes, optionally inside one transaction.
// Writes issued through the repositories passed to fn commit together or not at all,
// and concurrent WithinTx calls never observe each other's uncommitted rows.
type BookingStore interface {
	BookingRepositories
	WithinTx(ctx context.Context, fn func(repos BookingRepositories) error) error
}
