// Package postgres implements the calendar's persistence contracts on
// PostgreSQL. Overlap is enforced by exclusion constraints on tstzrange.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/meeting-calendar/internal/persistence"
)

const maxTxAttempts = 3

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements persistence.BookingStore, persistence.UserRepository and
// persistence.AuthSessionRepository on a pgx connection pool.
type Store struct {
	*bookingRepositories
	pool *pgxpool.Pool
}

var (
	_ persistence.BookingStore          = (*Store)(nil)
	_ persistence.UserRepository        = (*Store)(nil)
	_ persistence.AuthSessionRepository = (*Store)(nil)
)

// Open connects to the database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewStore(pool), nil
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		bookingRepositories: &bookingRepositories{q: pool},
		pool:                pool,
	}
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// WithinTx runs fn in a serializable transaction, retrying from the start when
// the database reports a serialization failure.
func (s *Store) WithinTx(ctx context.Context, fn func(repos persistence.BookingRepositories) error) error {
	if fn == nil {
		return errors.New("postgres: transaction func is nil")
	}

	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(&bookingRepositories{q: tx})
		})
		err = mapError(err)
		if !errors.Is(err, persistence.ErrBusy) {
			return err
		}
	}
	return err
}

// bookingRepositories binds queries to the pool or a transaction.
type bookingRepositories struct {
	q querier
}

// mapError maps driver errors onto the persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	for _, sentinel := range []error{
		persistence.ErrNotFound, persistence.ErrDuplicate, persistence.ErrConstraintViolation,
		persistence.ErrForeignKeyViolation, persistence.ErrOverlap, persistence.ErrVersionConflict,
		persistence.ErrBusy,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23P01":
		return fmt.Errorf("%w: %s", persistence.ErrOverlap, pgErr.Message)
	case "23505":
		return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.ConstraintName)
	case "23503":
		return fmt.Errorf("%w: %s", persistence.ErrForeignKeyViolation, pgErr.ConstraintName)
	case "23514", "23502":
		return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.Message)
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", persistence.ErrBusy, pgErr.Message)
	}
	return err
}

func expectOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
