package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/meeting-calendar/internal/adapters"
	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence/sqlite"
)

// fastHashParams keeps argon2id cheap enough to hash a password per fixture.
var fastHashParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// SQLiteHarness is a migrated database in the test's temp dir together with
// the adapters the services consume.
type SQLiteHarness struct {
	Store        *sqlite.Store
	Bookings     *adapters.BookingStore
	Credentials  *adapters.CredentialStore
	AuthSessions *adapters.AuthSessionStore
}

// NewSQLiteHarness opens and migrates a fresh database. It is closed when the
// test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	store, err := sqlite.Open(filepath.Join(tb.TempDir(), "calendar.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() {
		if err := store.Close(); err != nil {
			tb.Errorf("close sqlite: %v", err)
		}
	})
	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}

	return &SQLiteHarness{
		Store:        store,
		Bookings:     adapters.NewBookingStore(store),
		Credentials:  adapters.NewCredentialStore(store),
		AuthSessions: adapters.NewAuthSessionStore(store),
	}
}

// SeedUser stores user, hashing its plain password when no hash is set, and
// returns the fixture as written.
func (h *SQLiteHarness) SeedUser(tb testing.TB, user UserFixture) UserFixture {
	tb.Helper()

	if user.PasswordHash == "" {
		hash, err := application.CreatePasswordHash(user.Password, fastHashParams)
		if err != nil {
			tb.Fatalf("hash password for %s: %v", user.ID, err)
		}
		user.PasswordHash = hash
	}
	if err := h.Store.CreateUser(context.Background(), user.Persistence()); err != nil {
		tb.Fatalf("seed user %s: %v", user.ID, err)
	}
	return user
}

// SeedSession inserts a session row directly, bypassing booking validation.
// The owner and any referenced link must already exist.
func (h *SQLiteHarness) SeedSession(tb testing.TB, session SessionFixture) SessionFixture {
	tb.Helper()
	if err := h.Store.InsertSession(context.Background(), session.Persistence()); err != nil {
		tb.Fatalf("seed session %s: %v", session.ID, err)
	}
	return session
}

// SeedBlackout inserts a blackout row directly.
func (h *SQLiteHarness) SeedBlackout(tb testing.TB, blackout BlackoutFixture) BlackoutFixture {
	tb.Helper()
	if err := h.Store.InsertBlackout(context.Background(), blackout.Persistence()); err != nil {
		tb.Fatalf("seed blackout %s: %v", blackout.ID, err)
	}
	return blackout
}

// SeedLink inserts a link row directly.
func (h *SQLiteHarness) SeedLink(tb testing.TB, link LinkFixture) LinkFixture {
	tb.Helper()
	if err := h.Store.InsertLink(context.Background(), link.Persistence()); err != nil {
		tb.Fatalf("seed link %s: %v", link.ID, err)
	}
	return link
}
