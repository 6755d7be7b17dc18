// Package adapters converts between the storage models and the domain types
// the application services work with.
package adapters

import (
	"context"
	"errors"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// BookingStore exposes a persistence.BookingStore as an application.BookingStore.
type BookingStore struct {
	bookingTx
	store persistence.BookingStore
}

var _ application.BookingStore = (*BookingStore)(nil)

// NewBookingStore wraps store. Both the SQLite and Postgres stores satisfy it.
func NewBookingStore(store persistence.BookingStore) *BookingStore {
	return &BookingStore{bookingTx: bookingTx{repos: store}, store: store}
}

// WithinTx runs fn inside one storage transaction.
func (s *BookingStore) WithinTx(ctx context.Context, fn func(tx application.BookingTx) error) error {
	if fn == nil {
		return errors.New("adapters: transaction func is nil")
	}
	return s.store.WithinTx(ctx, func(repos persistence.BookingRepositories) error {
		return fn(&bookingTx{repos: repos})
	})
}

type bookingTx struct {
	repos persistence.BookingRepositories
}

func (t *bookingTx) GetSession(ctx context.Context, id string) (scheduler.Session, error) {
	model, err := t.repos.GetSession(ctx, id)
	if err != nil {
		return scheduler.Session{}, err
	}
	return toDomainSession(model)
}

func (t *bookingTx) GetSessionByLinkID(ctx context.Context, linkID string) (scheduler.Session, error) {
	model, err := t.repos.GetSessionByLinkID(ctx, linkID)
	if err != nil {
		return scheduler.Session{}, err
	}
	return toDomainSession(model)
}

func (t *bookingTx) ListSessions(ctx context.Context, query application.SessionQuery) ([]scheduler.Session, error) {
	models, err := t.repos.ListSessions(ctx, toSessionFilter(query))
	if err != nil {
		return nil, err
	}
	return toDomainSessions(models)
}

func (t *bookingTx) GetBlackout(ctx context.Context, id string) (scheduler.Blackout, error) {
	model, err := t.repos.GetBlackout(ctx, id)
	if err != nil {
		return scheduler.Blackout{}, err
	}
	return toDomainBlackout(model)
}

func (t *bookingTx) ListBlackouts(ctx context.Context, query application.BlackoutQuery) ([]scheduler.Blackout, error) {
	models, err := t.repos.ListBlackouts(ctx, toBlackoutFilter(query))
	if err != nil {
		return nil, err
	}
	return toDomainBlackouts(models)
}

func (t *bookingTx) GetLink(ctx context.Context, id string) (links.Link, error) {
	model, err := t.repos.GetLink(ctx, id)
	if err != nil {
		return links.Link{}, err
	}
	return toDomainLink(model), nil
}

func (t *bookingTx) GetLinkByIdentifier(ctx context.Context, identifier string) (links.Link, error) {
	model, err := t.repos.GetLinkByIdentifier(ctx, identifier)
	if err != nil {
		return links.Link{}, err
	}
	return toDomainLink(model), nil
}

func (t *bookingTx) InsertSession(ctx context.Context, session scheduler.Session) error {
	return t.repos.InsertSession(ctx, toPersistenceSession(session))
}

func (t *bookingTx) UpdateSession(ctx context.Context, session scheduler.Session, expectedVersion int64) error {
	return t.repos.UpdateSession(ctx, toPersistenceSession(session), expectedVersion)
}

func (t *bookingTx) InsertBlackout(ctx context.Context, blackout scheduler.Blackout) error {
	return t.repos.InsertBlackout(ctx, toPersistenceBlackout(blackout))
}

func (t *bookingTx) UpdateBlackout(ctx context.Context, blackout scheduler.Blackout, expectedVersion int64) error {
	return t.repos.UpdateBlackout(ctx, toPersistenceBlackout(blackout), expectedVersion)
}

func (t *bookingTx) DeleteBlackout(ctx context.Context, id string) error {
	return t.repos.DeleteBlackout(ctx, id)
}

func (t *bookingTx) InsertLink(ctx context.Context, link links.Link) error {
	return t.repos.InsertLink(ctx, toPersistenceLink(link))
}

func (t *bookingTx) UpdateLink(ctx context.Context, link links.Link) error {
	return t.repos.UpdateLink(ctx, toPersistenceLink(link))
}
