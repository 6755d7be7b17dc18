package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/persistence"
)

const authSessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// AuthSessionRepository implements persistence.AuthSessionRepository using SQLite
type AuthSessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAuthSessionRepository creates a new SQLite login token repository
func NewAuthSessionRepository(pool *ConnectionPool) *AuthSessionRepository {
	return &AuthSessionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateAuthSession stores a new login token for a user
func (r *AuthSessionRepository) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	normalized, err := normalizeAuthSession(session)
	if err != nil {
		return persistence.AuthSession{}, err
	}
	if normalized.UserID == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (`+authSessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		normalized.ID,
		normalized.UserID,
		normalized.Token,
		normalized.Fingerprint,
		formatTime(normalized.ExpiresAt),
		formatTimePtr(normalized.RevokedAt),
		formatTime(normalized.CreatedAt),
		formatTime(normalized.UpdatedAt),
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}
	return normalized, nil
}

// GetAuthSession retrieves a login session by its token value
func (r *AuthSessionRepository) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	normalizedToken := strings.TrimSpace(token)
	if normalizedToken == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	return r.get(ctx, r.pool.db, normalizedToken)
}

// UpdateAuthSession updates the token, fingerprint and expiry of an existing session
func (r *AuthSessionRepository) UpdateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	normalized, err := normalizeAuthSession(session)
	if err != nil {
		return persistence.AuthSession{}, err
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET token = ?, fingerprint = ?, expires_at = ?, revoked_at = ?, updated_at = ?
		WHERE id = ?
	`,
		normalized.Token,
		normalized.Fingerprint,
		formatTime(normalized.ExpiresAt),
		formatTimePtr(normalized.RevokedAt),
		formatTime(normalized.UpdatedAt),
		normalized.ID,
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}
	if err := expectOneRow(result); err != nil {
		return persistence.AuthSession{}, err
	}
	return r.get(ctx, r.pool.db, normalized.Token)
}

// RevokeAuthSession marks a session as revoked based on its token value
func (r *AuthSessionRepository) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	normalizedToken := strings.TrimSpace(token)
	if normalizedToken == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}

	var revoked persistence.AuthSession
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := r.get(ctx, tx, normalizedToken)
		if err != nil {
			return err
		}
		// Keep the first revocation time.
		if current.RevokedAt != nil {
			revoked = current
			return nil
		}

		stamp := revokedAt.UTC()
		result, err := tx.ExecContext(ctx, `
			UPDATE auth_sessions SET revoked_at = ?, updated_at = ? WHERE id = ?
		`, formatTime(stamp), formatTime(stamp), current.ID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := expectOneRow(result); err != nil {
			return err
		}

		current.RevokedAt = &stamp
		current.UpdatedAt = stamp
		revoked = current
		return nil
	})
	if err != nil {
		return persistence.AuthSession{}, err
	}
	return revoked, nil
}

// DeleteExpiredAuthSessions removes sessions that expired on or before reference.
func (r *AuthSessionRepository) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		DELETE FROM auth_sessions WHERE expires_at <= ?
	`, formatTime(reference))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (r *AuthSessionRepository) get(ctx context.Context, q querier, token string) (persistence.AuthSession, error) {
	var (
		session                         persistence.AuthSession
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := q.QueryRowContext(ctx, `SELECT `+authSessionColumns+` FROM auth_sessions WHERE token = ?`, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.Fingerprint,
		&expiresAt,
		&revokedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if session.RevokedAt, err = parseTimePtr(revokedAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse revoked_at: %w", err)
	}
	return session, nil
}

// normalizeAuthSession normalizes session data for consistent storage
func normalizeAuthSession(session persistence.AuthSession) (persistence.AuthSession, error) {
	if session.ID == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}
	session.Token = strings.TrimSpace(session.Token)
	if session.Token == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}
	session.Fingerprint = strings.TrimSpace(session.Fingerprint)
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		session.RevokedAt = &revoked
	}
	return session, nil
}
