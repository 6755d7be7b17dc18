package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/example/meeting-calendar/internal/persistence"
)

var _ persistence.BookingRepositories = (*bookingRepositories)(nil)

const sessionColumns = `id, title, owner_id, start_at, end_at, timezone, link_id,
	has_held, cancelled, rescheduled_at, version, created_at, updated_at`

func (r *bookingRepositories) InsertSession(ctx context.Context, s persistence.Session) error {
	if s.ID == "" || s.OwnerID == "" || strings.TrimSpace(s.Title) == "" {
		return persistence.ErrConstraintViolation
	}
	if s.Version == 0 {
		s.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, s.ID, s.Title, s.OwnerID, utc(s.StartAt), utc(s.EndAt), s.Timezone, nonEmpty(s.LinkID),
		s.HasHeld, s.Cancelled, utcPtr(s.RescheduledAt), s.Version, utc(s.CreatedAt), utc(s.UpdatedAt))
	return mapError(err)
}

func (r *bookingRepositories) UpdateSession(ctx context.Context, s persistence.Session, expectedVersion int64) error {
	if s.ID == "" {
		return persistence.ErrConstraintViolation
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE sessions
		SET title = $1, start_at = $2, end_at = $3, timezone = $4, link_id = $5,
			has_held = $6, cancelled = $7, rescheduled_at = $8, version = $9, updated_at = $10
		WHERE id = $11 AND version = $12
	`, s.Title, utc(s.StartAt), utc(s.EndAt), s.Timezone, nonEmpty(s.LinkID),
		s.HasHeld, s.Cancelled, utcPtr(s.RescheduledAt), s.Version, utc(s.UpdatedAt), s.ID, expectedVersion)
	if err != nil {
		return mapError(err)
	}
	if err := expectOneRow(tag); err != nil {
		if _, getErr := r.GetSession(ctx, s.ID); getErr == nil {
			return persistence.ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *bookingRepositories) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

func (r *bookingRepositories) GetSessionByLinkID(ctx context.Context, linkID string) (persistence.Session, error) {
	if linkID == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return scanSession(r.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE link_id = $1`, linkID))
}

func (r *bookingRepositories) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	var w where
	if filter.OwnerID != "" {
		w.add("owner_id = ?", filter.OwnerID)
	}
	if o := filter.Overlapping; o != nil {
		w.add("start_at < ?", utc(o.End))
		w.add("end_at > ?", utc(o.Start))
	}
	if s := filter.StartsWithin; s != nil {
		w.add("start_at >= ?", utc(s.Start))
		w.add("start_at < ?", utc(s.End))
	}
	if filter.ExcludeCancelled {
		w.add("NOT cancelled")
	}
	if len(filter.ExcludeIDs) > 0 {
		w.add("NOT (id = ANY(?))", filter.ExcludeIDs)
	}

	rows, err := r.q.Query(ctx, `SELECT `+sessionColumns+` FROM sessions`+w.sql()+` ORDER BY start_at, id`, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, mapError(rows.Err())
}

func scanSession(row pgx.Row) (persistence.Session, error) {
	var s persistence.Session
	err := row.Scan(&s.ID, &s.Title, &s.OwnerID, &s.StartAt, &s.EndAt, &s.Timezone, &s.LinkID,
		&s.HasHeld, &s.Cancelled, &s.RescheduledAt, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	s.StartAt, s.EndAt = s.StartAt.UTC(), s.EndAt.UTC()
	s.CreatedAt, s.UpdatedAt = s.CreatedAt.UTC(), s.UpdatedAt.UTC()
	s.RescheduledAt = utcPtr(s.RescheduledAt)
	return s, nil
}

const blackoutColumns = `id, start_at, end_at, timezone, created_by, version, created_at, updated_at`

func (r *bookingRepositories) InsertBlackout(ctx context.Context, b persistence.Blackout) error {
	if b.ID == "" || b.CreatedBy == "" {
		return persistence.ErrConstraintViolation
	}
	if b.Version == 0 {
		b.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO blackout_periods (`+blackoutColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, utc(b.StartAt), utc(b.EndAt), b.Timezone, b.CreatedBy, b.Version, utc(b.CreatedAt), utc(b.UpdatedAt))
	return mapError(err)
}

func (r *bookingRepositories) UpdateBlackout(ctx context.Context, b persistence.Blackout, expectedVersion int64) error {
	if b.ID == "" {
		return persistence.ErrConstraintViolation
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE blackout_periods
		SET start_at = $1, end_at = $2, timezone = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`, utc(b.StartAt), utc(b.EndAt), b.Timezone, b.Version, utc(b.UpdatedAt), b.ID, expectedVersion)
	if err != nil {
		return mapError(err)
	}
	if err := expectOneRow(tag); err != nil {
		if _, getErr := r.GetBlackout(ctx, b.ID); getErr == nil {
			return persistence.ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *bookingRepositories) DeleteBlackout(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM blackout_periods WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func (r *bookingRepositories) GetBlackout(ctx context.Context, id string) (persistence.Blackout, error) {
	if id == "" {
		return persistence.Blackout{}, persistence.ErrNotFound
	}
	return scanBlackout(r.q.QueryRow(ctx, `SELECT `+blackoutColumns+` FROM blackout_periods WHERE id = $1`, id))
}

func (r *bookingRepositories) ListBlackouts(ctx context.Context, filter persistence.BlackoutFilter) ([]persistence.Blackout, error) {
	var w where
	if o := filter.Overlapping; o != nil {
		w.add("start_at < ?", utc(o.End))
		w.add("end_at > ?", utc(o.Start))
	}
	if len(filter.ExcludeIDs) > 0 {
		w.add("NOT (id = ANY(?))", filter.ExcludeIDs)
	}

	rows, err := r.q.Query(ctx, `SELECT `+blackoutColumns+` FROM blackout_periods`+w.sql()+` ORDER BY start_at, id`, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var blackouts []persistence.Blackout
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		blackouts = append(blackouts, b)
	}
	return blackouts, mapError(rows.Err())
}

func scanBlackout(row pgx.Row) (persistence.Blackout, error) {
	var b persistence.Blackout
	if err := row.Scan(&b.ID, &b.StartAt, &b.EndAt, &b.Timezone, &b.CreatedBy, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return persistence.Blackout{}, mapError(err)
	}
	b.StartAt, b.EndAt = b.StartAt.UTC(), b.EndAt.UTC()
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, nil
}

const linkColumns = `id, identifier, url, created_by, created_at, updated_at`

func (r *bookingRepositories) InsertLink(ctx context.Context, l persistence.Link) error {
	if l.ID == "" || strings.TrimSpace(l.Identifier) == "" || strings.TrimSpace(l.URL) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO links (`+linkColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.Identifier, l.URL, l.CreatedBy, utc(l.CreatedAt), utc(l.UpdatedAt))
	return mapError(err)
}

func (r *bookingRepositories) UpdateLink(ctx context.Context, l persistence.Link) error {
	if l.ID == "" || strings.TrimSpace(l.URL) == "" {
		return persistence.ErrConstraintViolation
	}
	tag, err := r.q.Exec(ctx, `UPDATE links SET url = $1, updated_at = $2 WHERE id = $3`, l.URL, utc(l.UpdatedAt), l.ID)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func (r *bookingRepositories) GetLink(ctx context.Context, id string) (persistence.Link, error) {
	if id == "" {
		return persistence.Link{}, persistence.ErrNotFound
	}
	return scanLink(r.q.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id))
}

func (r *bookingRepositories) GetLinkByIdentifier(ctx context.Context, identifier string) (persistence.Link, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return persistence.Link{}, persistence.ErrNotFound
	}
	return scanLink(r.q.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE identifier = $1`, trimmed))
}

func scanLink(row pgx.Row) (persistence.Link, error) {
	var l persistence.Link
	if err := row.Scan(&l.ID, &l.Identifier, &l.URL, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return persistence.Link{}, mapError(err)
	}
	l.CreatedAt, l.UpdatedAt = l.CreatedAt.UTC(), l.UpdatedAt.UTC()
	return l, nil
}

// where accumulates AND-ed clauses, rewriting each "?" to the next $n.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		clause = strings.Replace(clause, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
