package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/meeting-calendar/internal/persistence"
)

const blackoutColumns = `id, start_at, end_at, timezone, created_by, version, created_at, updated_at`

// InsertBlackout stores a new blackout period.
func (r *bookingRepositories) InsertBlackout(ctx context.Context, blackout persistence.Blackout) error {
	if blackout.ID == "" || blackout.CreatedBy == "" {
		return persistence.ErrConstraintViolation
	}
	if blackout.Version == 0 {
		blackout.Version = 1
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO blackout_periods (`+blackoutColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		blackout.ID,
		formatTime(blackout.StartAt),
		formatTime(blackout.EndAt),
		blackout.Timezone,
		blackout.CreatedBy,
		blackout.Version,
		formatTime(blackout.CreatedAt),
		formatTime(blackout.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateBlackout moves a blackout when the stored version equals expectedVersion.
func (r *bookingRepositories) UpdateBlackout(ctx context.Context, blackout persistence.Blackout, expectedVersion int64) error {
	if blackout.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE blackout_periods
		SET start_at = ?, end_at = ?, timezone = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		formatTime(blackout.StartAt),
		formatTime(blackout.EndAt),
		blackout.Timezone,
		blackout.Version,
		formatTime(blackout.UpdatedAt),
		blackout.ID,
		expectedVersion,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	if err := expectOneRow(result); err != nil {
		if _, getErr := r.GetBlackout(ctx, blackout.ID); getErr == nil {
			return persistence.ErrVersionConflict
		}
		return err
	}
	return nil
}

// DeleteBlackout removes a blackout period.
func (r *bookingRepositories) DeleteBlackout(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.q.ExecContext(ctx, `DELETE FROM blackout_periods WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectOneRow(result)
}

// GetBlackout retrieves a blackout by id.
func (r *bookingRepositories) GetBlackout(ctx context.Context, id string) (persistence.Blackout, error) {
	if id == "" {
		return persistence.Blackout{}, persistence.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx, `SELECT `+blackoutColumns+` FROM blackout_periods WHERE id = ?`, id)
	return r.scanBlackout(row)
}

// ListBlackouts returns blackouts matching filter ordered by start time.
func (r *bookingRepositories) ListBlackouts(ctx context.Context, filter persistence.BlackoutFilter) ([]persistence.Blackout, error) {
	var (
		clauses []string
		args    []any
	)
	if w := filter.Overlapping; w != nil {
		clauses = append(clauses, "start_at < ? AND end_at > ?")
		args = append(args, formatTime(w.End), formatTime(w.Start))
	}
	if len(filter.ExcludeIDs) > 0 {
		clauses = append(clauses, "id NOT IN ("+placeholders(len(filter.ExcludeIDs))+")")
		for _, id := range filter.ExcludeIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + blackoutColumns + ` FROM blackout_periods`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_at, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var blackouts []persistence.Blackout
	for rows.Next() {
		blackout, err := r.scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		blackouts = append(blackouts, blackout)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blackouts, nil
}

func (r *bookingRepositories) scanBlackout(row rowScanner) (persistence.Blackout, error) {
	var (
		blackout                            persistence.Blackout
		startAt, endAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&blackout.ID,
		&startAt,
		&endAt,
		&blackout.Timezone,
		&blackout.CreatedBy,
		&blackout.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Blackout{}, r.mapper.MapError(err)
	}

	if blackout.StartAt, err = parseTime(startAt); err != nil {
		return persistence.Blackout{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if blackout.EndAt, err = parseTime(endAt); err != nil {
		return persistence.Blackout{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if blackout.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Blackout{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if blackout.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Blackout{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return blackout, nil
}
