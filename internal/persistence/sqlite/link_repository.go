package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/meeting-calendar/internal/persistence"
)

const linkColumns = `id, identifier, url, created_by, created_at, updated_at`

// InsertLink stores a wrapped meeting URL. Identifiers are unique.
func (r *bookingRepositories) InsertLink(ctx context.Context, link persistence.Link) error {
	if link.ID == "" || strings.TrimSpace(link.Identifier) == "" || strings.TrimSpace(link.URL) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		link.ID,
		link.Identifier,
		link.URL,
		link.CreatedBy,
		formatTime(link.CreatedAt),
		formatTime(link.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateLink replaces the target URL. The identifier never changes.
func (r *bookingRepositories) UpdateLink(ctx context.Context, link persistence.Link) error {
	if link.ID == "" || strings.TrimSpace(link.URL) == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE links SET url = ?, updated_at = ? WHERE id = ?
	`, link.URL, formatTime(link.UpdatedAt), link.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectOneRow(result)
}

// GetLink retrieves a link by id.
func (r *bookingRepositories) GetLink(ctx context.Context, id string) (persistence.Link, error) {
	if id == "" {
		return persistence.Link{}, persistence.ErrNotFound
	}
	return r.scanLink(r.q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id))
}

// GetLinkByIdentifier retrieves a link by its public identifier.
func (r *bookingRepositories) GetLinkByIdentifier(ctx context.Context, identifier string) (persistence.Link, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return persistence.Link{}, persistence.ErrNotFound
	}
	return r.scanLink(r.q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE identifier = ?`, trimmed))
}

func (r *bookingRepositories) scanLink(row rowScanner) (persistence.Link, error) {
	var (
		link                 persistence.Link
		createdAt, updatedAt string
	)
	if err := row.Scan(&link.ID, &link.Identifier, &link.URL, &link.CreatedBy, &createdAt, &updatedAt); err != nil {
		return persistence.Link{}, r.mapper.MapError(err)
	}
	var err error
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Link{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if link.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Link{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return link, nil
}
