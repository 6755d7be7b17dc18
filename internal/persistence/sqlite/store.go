// Package sqlite implements the calendar's persistence contracts on SQLite.
//
// Overlap is guarded twice: the booking service checks availability inside an
// immediate transaction, and triggers in the schema reject any overlapping
// write that slips past it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meeting-calendar/internal/persistence"
)

// timeLayout is fixed width so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Store implements persistence.BookingStore, persistence.UserRepository and
// persistence.AuthSessionRepository on a single SQLite database.
type Store struct {
	*bookingRepositories
	*UserRepository
	*AuthSessionRepository

	pool  *ConnectionPool
	retry *RetryHelper
}

var (
	_ persistence.BookingStore          = (*Store)(nil)
	_ persistence.UserRepository        = (*Store)(nil)
	_ persistence.AuthSessionRepository = (*Store)(nil)
)

// Open opens the database at dsn. Call Migrate before first use.
func Open(dsn string) (*Store, error) {
	pool, err := OpenPool(dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore wraps an open connection pool.
func NewStore(pool *ConnectionPool) *Store {
	mapper := NewErrorMapper()
	return &Store{
		bookingRepositories:   &bookingRepositories{q: pool.db, mapper: mapper},
		UserRepository:        NewUserRepository(pool),
		AuthSessionRepository: NewAuthSessionRepository(pool),
		pool:                  pool,
		retry:                 NewRetryHelper(DefaultRetryConfig()),
	}
}

// Migrate brings the schema up to date.
func (s *Store) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := MigrateUp(s.pool.db)
	return err
}

// Pool exposes the connection pool for tooling and tests.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the underlying connections.
func (s *Store) Close() error {
	return s.pool.Close()
}

// WithinTx runs fn inside an immediate transaction. A transaction that could
// not take the write lock is retried from the start.
func (s *Store) WithinTx(ctx context.Context, fn func(repos persistence.BookingRepositories) error) error {
	if fn == nil {
		return fmt.Errorf("sqlite: transaction func is nil")
	}
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(&bookingRepositories{q: tx, mapper: s.pool.mapper})
		})
	})
}

// bookingRepositories binds the session, blackout and link queries to either
// the pool or a single transaction.
type bookingRepositories struct {
	q      querier
	mapper *ErrorMapper
}

var _ persistence.BookingRepositories = (*bookingRepositories)(nil)

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
