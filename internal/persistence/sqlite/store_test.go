package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-calendar/internal/persistence"
)

var base = time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "calendar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))

	for _, user := range []persistence.User{
		{ID: "alice", Email: "alice@example.com", DisplayName: "Alice", PasswordHash: "hash", Timezone: "Europe/Berlin", CreatedAt: base, UpdatedAt: base},
		{ID: "admin", Email: "admin@example.com", DisplayName: "Admin", PasswordHash: "hash", IsAdmin: true, CreatedAt: base, UpdatedAt: base},
	} {
		require.NoError(t, store.CreateUser(context.Background(), user))
	}
	return store
}

func sessionAt(id string, start time.Time, d time.Duration) persistence.Session {
	return persistence.Session{
		ID:        id,
		Title:     "Session " + id,
		OwnerID:   "alice",
		StartAt:   start,
		EndAt:     start.Add(d),
		Timezone:  "UTC",
		Version:   1,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func blackoutAt(id string, start time.Time, d time.Duration) persistence.Blackout {
	return persistence.Blackout{
		ID:        id,
		StartAt:   start,
		EndAt:     start.Add(d),
		Timezone:  "UTC",
		CreatedBy: "admin",
		Version:   1,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func TestMigrateIsIdempotentAndReversible(t *testing.T) {
	store := newTestStore(t)

	version, err := MigrateUp(store.Pool().DB())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, MigrateDown(store.Pool().DB()))
	_, err = MigrateUp(store.Pool().DB())
	require.NoError(t, err)

	_, err = store.GetUser(context.Background(), "alice")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	user, err := store.GetUserByEmail(ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.ID)
	assert.Equal(t, "Europe/Berlin", user.Timezone)
	assert.False(t, user.IsAdmin)
	assert.True(t, user.CreatedAt.Equal(base))

	admin, err := store.GetUser(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "UTC", admin.Timezone)

	err = store.CreateUser(ctx, persistence.User{ID: "other", Email: "Alice@Example.com", PasswordHash: "x", CreatedAt: base, UpdatedAt: base})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestAuthSessionRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.CreateAuthSession(ctx, persistence.AuthSession{
		ID:        "auth-1",
		UserID:    "alice",
		Token:     " token-1 ",
		ExpiresAt: base.Add(time.Hour),
		CreatedAt: base,
		UpdatedAt: base,
	})
	require.NoError(t, err)
	assert.Equal(t, "token-1", created.Token)

	fetched, err := store.GetAuthSession(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", fetched.UserID)
	assert.Nil(t, fetched.RevokedAt)

	fetched.ExpiresAt = base.Add(2 * time.Hour)
	fetched.UpdatedAt = base.Add(time.Minute)
	updated, err := store.UpdateAuthSession(ctx, fetched)
	require.NoError(t, err)
	assert.True(t, updated.ExpiresAt.Equal(base.Add(2*time.Hour)))

	revoked, err := store.RevokeAuthSession(ctx, "token-1", base.Add(10*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)
	assert.True(t, revoked.RevokedAt.Equal(base.Add(10*time.Minute)))

	again, err := store.RevokeAuthSession(ctx, "token-1", base.Add(20*time.Minute))
	require.NoError(t, err)
	assert.True(t, again.RevokedAt.Equal(base.Add(10*time.Minute)))

	_, err = store.RevokeAuthSession(ctx, "unknown", base)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.CreateAuthSession(ctx, persistence.AuthSession{ID: "auth-2", UserID: "alice", Token: "token-2", ExpiresAt: base, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)

	deleted, err := store.DeleteExpiredAuthSessions(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.GetAuthSession(ctx, "token-2")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	_, err = store.GetAuthSession(ctx, "token-1")
	assert.NoError(t, err)
}

func TestSessionRepository_RoundTripAndFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertLink(ctx, persistence.Link{
		ID: "link-1", Identifier: "abc-def-ghi-jkl", URL: "https://meet.example.com/1",
		CreatedBy: "alice", CreatedAt: base, UpdatedAt: base,
	}))

	first := sessionAt("s1", base, time.Hour)
	linkID := "link-1"
	first.LinkID = &linkID
	require.NoError(t, store.InsertSession(ctx, first))
	require.NoError(t, store.InsertSession(ctx, sessionAt("s2", base.Add(2*time.Hour), 30*time.Minute)))
	require.NoError(t, store.InsertSession(ctx, sessionAt("s3", base.Add(24*time.Hour), time.Hour)))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.LinkID)
	assert.Equal(t, "link-1", *got.LinkID)
	assert.True(t, got.StartAt.Equal(base))
	assert.Equal(t, int64(1), got.Version)

	byLink, err := store.GetSessionByLinkID(ctx, "link-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byLink.ID)

	sameDay, err := store.ListSessions(ctx, persistence.SessionFilter{
		OwnerID:      "alice",
		StartsWithin: &persistence.Window{Start: base.Add(-9 * time.Hour), End: base.Add(15 * time.Hour)},
	})
	require.NoError(t, err)
	require.Len(t, sameDay, 2)
	assert.Equal(t, "s1", sameDay[0].ID)
	assert.Equal(t, "s2", sameDay[1].ID)

	overlapping, err := store.ListSessions(ctx, persistence.SessionFilter{
		Overlapping: &persistence.Window{Start: base.Add(30 * time.Minute), End: base.Add(2 * time.Hour)},
		ExcludeIDs:  []string{"s3"},
	})
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, "s1", overlapping[0].ID)

	touching, err := store.ListSessions(ctx, persistence.SessionFilter{
		Overlapping: &persistence.Window{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	})
	require.NoError(t, err)
	assert.Empty(t, touching)
}

func TestSessionRepository_OverlapBackstop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertSession(ctx, sessionAt("s1", base, time.Hour)))

	err := store.InsertSession(ctx, sessionAt("s2", base.Add(30*time.Minute), time.Hour))
	assert.ErrorIs(t, err, persistence.ErrOverlap)

	// Touching ranges do not overlap.
	require.NoError(t, store.InsertSession(ctx, sessionAt("s3", base.Add(time.Hour), time.Hour)))

	cancelled := sessionAt("s4", base.Add(30*time.Minute), time.Hour)
	cancelled.Cancelled = true
	require.NoError(t, store.InsertSession(ctx, cancelled))

	// The overlap guard also covers updates that make a cancelled row live.
	cancelled.Cancelled = false
	cancelled.Version = 2
	err = store.UpdateSession(ctx, cancelled, 1)
	assert.ErrorIs(t, err, persistence.ErrOverlap)

	require.NoError(t, store.InsertBlackout(ctx, blackoutAt("b1", base.Add(4*time.Hour), time.Hour)))
	err = store.InsertSession(ctx, sessionAt("s5", base.Add(4*time.Hour+30*time.Minute), time.Hour))
	assert.ErrorIs(t, err, persistence.ErrOverlap)

	bad := sessionAt("s6", base.Add(10*time.Hour), time.Hour)
	bad.EndAt = bad.StartAt
	assert.ErrorIs(t, store.InsertSession(ctx, bad), persistence.ErrConstraintViolation)
}

func TestSessionRepository_RenameUnderLaterBlackout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session := sessionAt("s1", base, time.Hour)
	require.NoError(t, store.InsertSession(ctx, session))
	require.NoError(t, store.InsertBlackout(ctx, blackoutAt("b1", base, 2*time.Hour)))

	session.Title = "Renamed"
	session.Version = 2
	require.NoError(t, store.UpdateSession(ctx, session, 1))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestSessionRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session := sessionAt("s1", base, time.Hour)
	require.NoError(t, store.InsertSession(ctx, session))

	session.Title = "First writer"
	session.Version = 2
	require.NoError(t, store.UpdateSession(ctx, session, 1))

	session.Title = "Second writer"
	session.Version = 2
	assert.ErrorIs(t, store.UpdateSession(ctx, session, 1), persistence.ErrVersionConflict)

	missing := sessionAt("nope", base, time.Hour)
	assert.ErrorIs(t, store.UpdateSession(ctx, missing, 1), persistence.ErrNotFound)
}

func TestBlackoutRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InsertBlackout(ctx, blackoutAt("b1", base, time.Hour)))
	assert.ErrorIs(t, store.InsertBlackout(ctx, blackoutAt("b2", base.Add(30*time.Minute), time.Hour)), persistence.ErrOverlap)
	require.NoError(t, store.InsertBlackout(ctx, blackoutAt("b3", base.Add(time.Hour), time.Hour)))

	moved := blackoutAt("b1", base.Add(-2*time.Hour), time.Hour)
	moved.Version = 2
	require.NoError(t, store.UpdateBlackout(ctx, moved, 1))
	assert.ErrorIs(t, store.UpdateBlackout(ctx, moved, 1), persistence.ErrVersionConflict)

	list, err := store.ListBlackouts(ctx, persistence.BlackoutFilter{
		Overlapping: &persistence.Window{Start: base.Add(-3 * time.Hour), End: base.Add(3 * time.Hour)},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b1", list[0].ID)
	assert.Equal(t, int64(2), list[0].Version)

	require.NoError(t, store.DeleteBlackout(ctx, "b1"))
	assert.ErrorIs(t, store.DeleteBlackout(ctx, "b1"), persistence.ErrNotFound)
	_, err = store.GetBlackout(ctx, "b1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestLinkRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	link := persistence.Link{ID: "l1", Identifier: "aaa-bbb-ccc-ddd", URL: "https://meet.example.com/a", CreatedBy: "alice", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.InsertLink(ctx, link))

	dup := link
	dup.ID = "l2"
	assert.ErrorIs(t, store.InsertLink(ctx, dup), persistence.ErrDuplicate)

	link.URL = "https://meet.example.com/b"
	link.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, store.UpdateLink(ctx, link))

	got, err := store.GetLinkByIdentifier(ctx, "aaa-bbb-ccc-ddd")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/b", got.URL)

	orphan := persistence.Link{ID: "l3", Identifier: "zzz-bbb-ccc-ddd", URL: "https://x.example.com", CreatedBy: "ghost", CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, store.InsertLink(ctx, orphan), persistence.ErrForeignKeyViolation)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(repos persistence.BookingRepositories) error {
		if err := repos.InsertSession(ctx, sessionAt("s1", base, time.Hour)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestWithinTx_ConcurrentBookingsOfOneSlot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	errTaken := errors.New("slot taken")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.WithinTx(ctx, func(repos persistence.BookingRepositories) error {
				existing, err := repos.ListSessions(ctx, persistence.SessionFilter{
					Overlapping:      &persistence.Window{Start: base, End: base.Add(time.Hour)},
					ExcludeCancelled: true,
				})
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return errTaken
				}
				return repos.InsertSession(ctx, sessionAt(fmt.Sprintf("s%d", i), base, time.Hour))
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, errTaken) || errors.Is(err, persistence.ErrOverlap), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	sessions, err := store.ListSessions(ctx, persistence.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
