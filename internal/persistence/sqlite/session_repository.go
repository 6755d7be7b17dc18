package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/meeting-calendar/internal/persistence"
)

const sessionColumns = `id, title, owner_id, start_at, end_at, timezone, link_id,
	has_held, cancelled, rescheduled_at, version, created_at, updated_at`

// InsertSession stores a new booked session.
func (r *bookingRepositories) InsertSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.OwnerID == "" || strings.TrimSpace(session.Title) == "" {
		return persistence.ErrConstraintViolation
	}
	if session.Version == 0 {
		session.Version = 1
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.Title,
		session.OwnerID,
		formatTime(session.StartAt),
		formatTime(session.EndAt),
		session.Timezone,
		nullString(session.LinkID),
		session.HasHeld,
		session.Cancelled,
		formatTimePtr(session.RescheduledAt),
		session.Version,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateSession writes every mutable column when the stored version still
// equals expectedVersion. The stored version becomes session.Version.
func (r *bookingRepositories) UpdateSession(ctx context.Context, session persistence.Session, expectedVersion int64) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET title = ?, start_at = ?, end_at = ?, timezone = ?, link_id = ?,
			has_held = ?, cancelled = ?, rescheduled_at = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		session.Title,
		formatTime(session.StartAt),
		formatTime(session.EndAt),
		session.Timezone,
		nullString(session.LinkID),
		session.HasHeld,
		session.Cancelled,
		formatTimePtr(session.RescheduledAt),
		session.Version,
		formatTime(session.UpdatedAt),
		session.ID,
		expectedVersion,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	if err := expectOneRow(result); err != nil {
		// Distinguish a missing row from a stale version.
		if _, getErr := r.GetSession(ctx, session.ID); getErr == nil {
			return persistence.ErrVersionConflict
		}
		return err
	}
	return nil
}

// GetSession retrieves a session by id.
func (r *bookingRepositories) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return r.scanSession(row)
}

// GetSessionByLinkID retrieves the session that carries the given link.
func (r *bookingRepositories) GetSessionByLinkID(ctx context.Context, linkID string) (persistence.Session, error) {
	if linkID == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE link_id = ?`, linkID)
	return r.scanSession(row)
}

// ListSessions returns sessions matching filter ordered by start time.
func (r *bookingRepositories) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if w := filter.Overlapping; w != nil {
		clauses = append(clauses, "start_at < ? AND end_at > ?")
		args = append(args, formatTime(w.End), formatTime(w.Start))
	}
	if w := filter.StartsWithin; w != nil {
		clauses = append(clauses, "start_at >= ? AND start_at < ?")
		args = append(args, formatTime(w.Start), formatTime(w.End))
	}
	if filter.ExcludeCancelled {
		clauses = append(clauses, "cancelled = 0")
	}
	if len(filter.ExcludeIDs) > 0 {
		clauses = append(clauses, "id NOT IN ("+placeholders(len(filter.ExcludeIDs))+")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_at, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *bookingRepositories) scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                          persistence.Session
		startAt, endAt, createdAt, updAt string
		linkID, rescheduledAt            sql.NullString
	)
	err := row.Scan(
		&session.ID,
		&session.Title,
		&session.OwnerID,
		&startAt,
		&endAt,
		&session.Timezone,
		&linkID,
		&session.HasHeld,
		&session.Cancelled,
		&rescheduledAt,
		&session.Version,
		&createdAt,
		&updAt,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if linkID.Valid {
		id := linkID.String
		session.LinkID = &id
	}
	if session.StartAt, err = parseTime(startAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if session.EndAt, err = parseTime(endAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if session.RescheduledAt, err = parseTimePtr(rescheduledAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse rescheduled_at: %w", err)
	}
	return session, nil
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}
