package application

import (
	"context"
	"time"

	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// TimeWindow is a half-open [Start, End) interval used to select records.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// SessionQuery narrows session lookups. Zero fields do not filter.
type SessionQuery struct {
	OwnerID string
	// Overlapping selects sessions whose range shares an instant with the window.
	Overlapping *TimeWindow
	// StartsWithin selects sessions whose start falls in the window.
	StartsWithin     *TimeWindow
	ExcludeCancelled bool
	ExcludeIDs       []string
}

// BlackoutQuery narrows blackout lookups.
type BlackoutQuery struct {
	Overlapping *TimeWindow
	ExcludeIDs  []string
}

// BookingReader exposes the lookups shared by the booking and blackout services.
type BookingReader interface {
	GetSession(ctx context.Context, id string) (scheduler.Session, error)
	GetSessionByLinkID(ctx context.Context, linkID string) (scheduler.Session, error)
	ListSessions(ctx context.Context, query SessionQuery) ([]scheduler.Session, error)
	GetBlackout(ctx context.Context, id string) (scheduler.Blackout, error)
	ListBlackouts(ctx context.Context, query BlackoutQuery) ([]scheduler.Blackout, error)
	GetLink(ctx context.Context, id string) (links.Link, error)
	GetLinkByIdentifier(ctx context.Context, identifier string) (links.Link, error)
}

// BookingTx is the read and write surface available inside one transaction.
type BookingTx interface {
	BookingReader
	InsertSession(ctx context.Context, session scheduler.Session) error
	// UpdateSession writes session if the stored version still equals expectedVersion.
	UpdateSession(ctx context.Context, session scheduler.Session, expectedVersion int64) error
	InsertBlackout(ctx context.Context, blackout scheduler.Blackout) error
	UpdateBlackout(ctx context.Context, blackout scheduler.Blackout, expectedVersion int64) error
	DeleteBlackout(ctx context.Context, id string) error
	InsertLink(ctx context.Context, link links.Link) error
	UpdateLink(ctx context.Context, link links.Link) error
}

// BookingStore runs reads directly and groups writes into transactions so an
// availability check and the write that depends on it commit together.
type BookingStore interface {
	BookingTx
	WithinTx(ctx context.Context, fn func(tx BookingTx) error) error
}
