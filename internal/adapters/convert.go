package adapters

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/scheduler"
)

var locations sync.Map

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if cached, ok := locations.Load(name); ok {
		return cached.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	locations.Store(name, loc)
	return loc, nil
}

func locationName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	return loc.String()
}

func toDomainSession(model persistence.Session) (scheduler.Session, error) {
	loc, err := loadLocation(model.Timezone)
	if err != nil {
		return scheduler.Session{}, err
	}
	r, err := scheduler.NewTimeRange(model.StartAt, model.EndAt, loc)
	if err != nil {
		return scheduler.Session{}, fmt.Errorf("session %s: %w", model.ID, err)
	}
	linkID := ""
	if model.LinkID != nil {
		linkID = *model.LinkID
	}
	return scheduler.RestoreSession(scheduler.SessionSnapshot{
		ID:            model.ID,
		Title:         model.Title,
		OwnerID:       model.OwnerID,
		Range:         r,
		Location:      loc,
		LinkID:        linkID,
		HasHeld:       model.HasHeld,
		Cancelled:     model.Cancelled,
		RescheduledAt: cloneTime(model.RescheduledAt),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
		Version:       model.Version,
	})
}

func toPersistenceSession(session scheduler.Session) persistence.Session {
	snap := session.Snapshot()
	var linkID *string
	if snap.LinkID != "" {
		id := snap.LinkID
		linkID = &id
	}
	return persistence.Session{
		ID:            snap.ID,
		Title:         snap.Title,
		OwnerID:       snap.OwnerID,
		StartAt:       snap.Range.Start(),
		EndAt:         snap.Range.End(),
		Timezone:      locationName(snap.Location),
		LinkID:        linkID,
		HasHeld:       snap.HasHeld,
		Cancelled:     snap.Cancelled,
		RescheduledAt: cloneTime(snap.RescheduledAt),
		Version:       snap.Version,
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
	}
}

func toDomainSessions(models []persistence.Session) ([]scheduler.Session, error) {
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]scheduler.Session, 0, len(models))
	for _, model := range models {
		session, err := toDomainSession(model)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func toDomainBlackout(model persistence.Blackout) (scheduler.Blackout, error) {
	loc, err := loadLocation(model.Timezone)
	if err != nil {
		return scheduler.Blackout{}, err
	}
	r, err := scheduler.NewTimeRange(model.StartAt, model.EndAt, loc)
	if err != nil {
		return scheduler.Blackout{}, fmt.Errorf("blackout %s: %w", model.ID, err)
	}
	return scheduler.RestoreBlackout(model.ID, r, loc, model.CreatedBy, model.CreatedAt, model.UpdatedAt, model.Version)
}

func toPersistenceBlackout(blackout scheduler.Blackout) persistence.Blackout {
	r := blackout.Range()
	return persistence.Blackout{
		ID:        blackout.ID,
		StartAt:   r.Start(),
		EndAt:     r.End(),
		Timezone:  locationName(blackout.Location),
		CreatedBy: blackout.CreatedBy,
		Version:   blackout.Version,
		CreatedAt: blackout.CreatedAt,
		UpdatedAt: blackout.UpdatedAt,
	}
}

func toDomainBlackouts(models []persistence.Blackout) ([]scheduler.Blackout, error) {
	if len(models) == 0 {
		return nil, nil
	}
	blackouts := make([]scheduler.Blackout, 0, len(models))
	for _, model := range models {
		blackout, err := toDomainBlackout(model)
		if err != nil {
			return nil, err
		}
		blackouts = append(blackouts, blackout)
	}
	return blackouts, nil
}

func toDomainLink(model persistence.Link) links.Link {
	return links.Link{
		ID:         model.ID,
		Identifier: model.Identifier,
		URL:        model.URL,
		CreatedBy:  model.CreatedBy,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceLink(link links.Link) persistence.Link {
	return persistence.Link{
		ID:         link.ID,
		Identifier: link.Identifier,
		URL:        link.URL,
		CreatedBy:  link.CreatedBy,
		CreatedAt:  link.CreatedAt,
		UpdatedAt:  link.UpdatedAt,
	}
}

func toSessionFilter(query application.SessionQuery) persistence.SessionFilter {
	return persistence.SessionFilter{
		OwnerID:          query.OwnerID,
		Overlapping:      toWindow(query.Overlapping),
		StartsWithin:     toWindow(query.StartsWithin),
		ExcludeCancelled: query.ExcludeCancelled,
		ExcludeIDs:       append([]string(nil), query.ExcludeIDs...),
	}
}

func toBlackoutFilter(query application.BlackoutQuery) persistence.BlackoutFilter {
	return persistence.BlackoutFilter{
		Overlapping: toWindow(query.Overlapping),
		ExcludeIDs:  append([]string(nil), query.ExcludeIDs...),
	}
}

func toWindow(window *application.TimeWindow) *persistence.Window {
	if window == nil {
		return nil
	}
	return &persistence.Window{Start: window.Start, End: window.End}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		Timezone:    model.Timezone,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationAuthSession(model persistence.AuthSession) application.AuthSession {
	return application.AuthSession{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceAuthSession(session application.AuthSession) persistence.AuthSession {
	return persistence.AuthSession{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
