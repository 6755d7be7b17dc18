package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/meeting-calendar/internal/persistence"
)

const userColumns = `id, email, display_name, password_hash, is_admin, timezone, disabled, created_at, updated_at`

// CreateUser inserts a new account. Emails are unique regardless of case.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || user.PasswordHash == "" || email == "" {
		return persistence.ErrConstraintViolation
	}
	timezone := strings.TrimSpace(user.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, email, strings.TrimSpace(user.DisplayName), user.PasswordHash, user.IsAdmin, timezone,
		user.Disabled, utc(user.CreatedAt), utc(user.UpdatedAt))
	return mapError(err)
}

// GetUser retrieves an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByEmail retrieves an account by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, normalized))
}

func scanUser(row pgx.Row) (persistence.User, error) {
	var u persistence.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsAdmin, &u.Timezone, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	u.CreatedAt, u.UpdatedAt = u.CreatedAt.UTC(), u.UpdatedAt.UTC()
	return u, nil
}

const authSessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateAuthSession stores a new login token.
func (s *Store) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO auth_sessions (`+authSessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+authSessionColumns,
		session.ID, session.UserID, session.Token, strings.TrimSpace(session.Fingerprint),
		utc(session.ExpiresAt), utcPtr(session.RevokedAt), utc(session.CreatedAt), utc(session.UpdatedAt))
	return scanAuthSession(row)
}

// GetAuthSession retrieves a login session by token.
func (s *Store) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	return scanAuthSession(s.pool.QueryRow(ctx, `SELECT `+authSessionColumns+` FROM auth_sessions WHERE token = $1`, trimmed))
}

// UpdateAuthSession rewrites the mutable fields of a login session.
func (s *Store) UpdateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.Token == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE auth_sessions
		SET token = $1, fingerprint = $2, expires_at = $3, revoked_at = $4, updated_at = $5
		WHERE id = $6
		RETURNING `+authSessionColumns,
		session.Token, strings.TrimSpace(session.Fingerprint), utc(session.ExpiresAt),
		utcPtr(session.RevokedAt), utc(session.UpdatedAt), session.ID)
	return scanAuthSession(row)
}

// RevokeAuthSession stamps the first revocation time on a login session.
func (s *Store) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	stamp := revokedAt.UTC()
	row := s.pool.QueryRow(ctx, `
		UPDATE auth_sessions
		SET revoked_at = COALESCE(revoked_at, $1),
			updated_at = CASE WHEN revoked_at IS NULL THEN $1 ELSE updated_at END
		WHERE token = $2
		RETURNING `+authSessionColumns, stamp, trimmed)
	return scanAuthSession(row)
}

// DeleteExpiredAuthSessions removes sessions that expired on or before reference.
func (s *Store) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at <= $1`, reference.UTC())
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func scanAuthSession(row pgx.Row) (persistence.AuthSession, error) {
	var a persistence.AuthSession
	err := row.Scan(&a.ID, &a.UserID, &a.Token, &a.Fingerprint, &a.ExpiresAt, &a.RevokedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}
	a.ExpiresAt, a.CreatedAt, a.UpdatedAt = a.ExpiresAt.UTC(), a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	a.RevokedAt = utcPtr(a.RevokedAt)
	return a, nil
}
