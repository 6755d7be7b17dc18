package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// BookingService orchestrates session booking, editing and calendar queries.
type BookingService struct {
	store       BookingStore
	idGenerator func() string
	now         func() time.Time
	opts        serviceOptions
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(store BookingStore, idGenerator func() string, now func() time.Time, opts ...ServiceOption) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		opts:        buildOptions(opts),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.opts.logger, "BookingService", operation, attrs...)
}

// CreateSession books a new pending session for the requester.
func (s *BookingService) CreateSession(ctx context.Context, params CreateSessionParams) (session scheduler.Session, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	requester := params.Requester
	logger := s.loggerWith(ctx, "CreateSession", "requester_id", requester.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", session.ID,
			"range", session.Range().String(),
		).InfoContext(ctx, "session booked")
	}()

	if err = Authorize(requester, ResourceSession, ActionCreate); err != nil {
		return
	}

	vErr := &ValidationError{}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		vErr.add("title", "title is required")
	}
	loc, ok := resolveLocation(params.Timezone, requester.Location(), vErr)
	var r scheduler.TimeRange
	if ok {
		r, ok = parseLocalRange(params.Date, params.StartTime, params.EndTime, loc, vErr)
	}
	if ok && !s.opts.businessHours.Allows(r) {
		vErr.add("time", "sessions must fall within business hours ("+s.opts.businessHours.String()+")")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	candidate, nerr := scheduler.NewSession(scheduler.NewSessionParams{
		ID:       s.idGenerator(),
		Title:    title,
		OwnerID:  requester.ID,
		Range:    r,
		Location: loc,
		Now:      now,
	})
	if nerr != nil {
		err = sessionFieldError(nerr)
		return
	}

	contested := true
	err = commit(ctx, s.store, &contested, func(tx BookingTx) error {
		conflicts, err := NewAvailabilityIndex(tx).Conflicts(ctx, candidate.Range())
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return slotUnavailableError(conflicts)
		}
		return tx.InsertSession(ctx, candidate)
	})
	if err != nil {
		return
	}

	session = candidate
	publishAll(ctx, s.opts.events, logger, sessionEvent(EventSessionBooked, session, requester.ID, now))
	return
}

// UpdateSession applies a partial edit under the role policy and the session
// state machine.
func (s *BookingService) UpdateSession(ctx context.Context, params UpdateSessionParams) (session scheduler.Session, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	requester := params.Requester
	logger := s.loggerWith(ctx, "UpdateSession",
		"requester_id", requester.ID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", string(session.Status(s.now()))).InfoContext(ctx, "session updated")
	}()

	if strings.TrimSpace(params.SessionID) == "" {
		err = fieldError("session_id", "session id is required")
		return
	}

	var (
		before    scheduler.Session
		now       time.Time
		contested bool
	)
	err = commit(ctx, s.store, &contested, func(tx BookingTx) error {
		now = s.now()
		current, err := tx.GetSession(ctx, params.SessionID)
		if err != nil {
			return err
		}
		if err := authorizeSessionUpdate(requester, current, params); err != nil {
			return err
		}

		update, err := s.planUpdate(ctx, tx, current, params, now)
		if err != nil {
			return err
		}

		contested = update.needsAvailability
		if update.needsAvailability {
			conflicts, err := NewAvailabilityIndex(tx).Conflicts(ctx, update.updated.Range(), current.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return slotUnavailableError(conflicts)
			}
		}

		before, session = current, current
		if update.newLink != nil {
			if err := tx.InsertLink(ctx, *update.newLink); err != nil {
				return err
			}
		}
		if update.changedLink != nil {
			if err := tx.UpdateLink(ctx, *update.changedLink); err != nil {
				return err
			}
		}
		if !update.sessionChanged() {
			return nil
		}

		next := update.updated
		next.Version = current.Version + 1
		next.UpdatedAt = now
		if err := tx.UpdateSession(ctx, next, current.Version); err != nil {
			return err
		}
		session = next
		return nil
	})
	if err != nil {
		return
	}

	publishAll(ctx, s.opts.events, logger, sessionTransitionEvents(before, session, requester.ID, now)...)
	return
}

func authorizeSessionUpdate(requester Requester, current scheduler.Session, params UpdateSessionParams) error {
	if err := Authorize(requester, ResourceSession, ActionUpdate); err != nil {
		return err
	}
	if current.OwnerID != requester.ID {
		if err := Authorize(requester, ResourceSession, ActionEditOthers); err != nil {
			return err
		}
	}
	if current.IsFinal() {
		if err := Authorize(requester, ResourceSession, ActionEditFinalized); err != nil {
			return err
		}
	}
	// Resubmitting the current flag values is not a transition.
	if params.HasHeld != nil && *params.HasHeld != current.HasHeld() {
		if err := Authorize(requester, ResourceSession, ActionMarkHeld); err != nil {
			return err
		}
	}
	if params.Cancelled != nil && *params.Cancelled != current.Cancelled() {
		if err := Authorize(requester, ResourceSession, ActionCancel); err != nil {
			return err
		}
	}
	return nil
}

type sessionUpdate struct {
	original          scheduler.Session
	updated           scheduler.Session
	newLink           *links.Link
	changedLink       *links.Link
	needsAvailability bool
}

func (u sessionUpdate) sessionChanged() bool {
	a, b := u.original, u.updated
	return a.Title != b.Title ||
		!a.Range().Equal(b.Range()) ||
		a.Location.String() != b.Location.String() ||
		a.LinkID != b.LinkID ||
		a.HasHeld() != b.HasHeld() ||
		a.Cancelled() != b.Cancelled()
}

// planUpdate validates every requested change against current before anything
// is written. Held and cancelled sessions never leave their state: clearing a
// set flag is rejected, and a held session cannot be cancelled.
func (s *BookingService) planUpdate(ctx context.Context, tx BookingReader, current scheduler.Session, params UpdateSessionParams, now time.Time) (sessionUpdate, error) {
	u := sessionUpdate{original: current, updated: current}
	updated := &u.updated
	vErr := &ValidationError{}

	if params.Title != nil {
		if err := updated.Rename(*params.Title, now); err != nil {
			vErr.add("title", "title is required")
		}
	}

	if params.HasHeld != nil && !*params.HasHeld && current.HasHeld() {
		vErr.add("has_held", "a held session cannot be reverted")
	}
	if params.Cancelled != nil && !*params.Cancelled && current.Cancelled() {
		vErr.add("cancelled", "a cancelled session cannot be reinstated")
	}

	if params.Date != nil || params.StartTime != nil || params.EndTime != nil || params.Timezone != nil {
		tz := ""
		if params.Timezone != nil {
			tz = *params.Timezone
		}
		if loc, ok := resolveLocation(tz, current.Location, vErr); ok {
			date, startClock, endClock := current.Range().ConvertTo(loc)
			date = valueOr(params.Date, date)
			startClock = valueOr(params.StartTime, startClock)
			endClock = valueOr(params.EndTime, endClock)

			if r, ok := parseLocalRange(date, startClock, endClock, loc, vErr); ok {
				if r.Equal(current.Range()) {
					updated.Location = loc
				} else {
					if !s.opts.businessHours.Allows(r) {
						vErr.add("time", "sessions must fall within business hours ("+s.opts.businessHours.String()+")")
					}
					if err := updated.Reschedule(r, loc, now); err != nil {
						vErr.merge(sessionFieldError(err))
					}
				}
			}
		}
	}

	if params.Link != nil {
		if err := s.planLink(ctx, tx, &u, *params.Link, params.Requester.ID, now, vErr); err != nil {
			return sessionUpdate{}, err
		}
	}

	if params.Cancelled != nil && *params.Cancelled {
		if err := updated.Cancel(now); err != nil {
			vErr.add("cancelled", "a held session cannot be cancelled")
		}
	}
	if params.HasHeld != nil && *params.HasHeld {
		if err := updated.MarkHeld(now); err != nil {
			vErr.merge(sessionFieldError(err))
		}
	}

	if vErr.HasErrors() {
		return sessionUpdate{}, vErr
	}

	u.needsAvailability = !updated.Cancelled() && !updated.Range().Equal(current.Range())
	return u, nil
}

// planLink attaches, replaces or detaches the meeting link. Changing the URL
// of an attached link keeps its identifier so shared paths stay valid.
func (s *BookingService) planLink(ctx context.Context, tx BookingReader, u *sessionUpdate, raw, actorID string, now time.Time, vErr *ValidationError) error {
	updated := &u.updated
	if strings.TrimSpace(raw) == "" {
		if err := updated.DetachLink(now); err != nil {
			vErr.add("link", "the link of a held or cancelled session cannot change")
		}
		return nil
	}

	target, err := links.NormalizeURL(raw)
	if err != nil {
		vErr.add("link", "enter an absolute http or https URL")
		return nil
	}

	if updated.HasLink() {
		existing, err := tx.GetLink(ctx, updated.LinkID)
		if err != nil {
			return err
		}
		if existing.URL == target {
			return nil
		}
		if updated.IsFinal() {
			vErr.add("link", "the link of a held or cancelled session cannot change")
			return nil
		}
		existing.URL = target
		existing.UpdatedAt = now
		u.changedLink = &existing
		return nil
	}

	identifier, err := s.opts.identifiers()
	if err != nil {
		return fmt.Errorf("generate link identifier: %w", err)
	}
	link := links.Link{
		ID:         s.idGenerator(),
		Identifier: identifier,
		URL:        target,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := updated.AttachLink(link.ID, now); err != nil {
		vErr.add("link", "the link of a held or cancelled session cannot change")
		return nil
	}
	u.newLink = &link
	return nil
}

// commit runs fn in one transaction and retries once when another writer won
// a race. When fn was claiming a range, a second loss is reported as the slot
// being taken.
func commit(ctx context.Context, store BookingStore, contested *bool, fn func(tx BookingTx) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = mapRepoError(store.WithinTx(ctx, fn))
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
	}
	if contested != nil && *contested {
		return fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	return err
}

// GetBookingsForUserOnDate partitions the requester's sessions starting on
// date, in the requester's timezone, by derived status. A missed session is
// never also reported as pending.
func (s *BookingService) GetBookingsForUserOnDate(ctx context.Context, requester Requester, date string) (bookings BookingsByStatus, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}
	if err = Authorize(requester, ResourceSession, ActionRead); err != nil {
		return
	}

	loc := requester.Location()
	dayStart, dayEnd, derr := scheduler.LocalDay(date, loc)
	if derr != nil {
		err = fieldError("date", "enter a valid date (YYYY-MM-DD)")
		return
	}

	sessions, lerr := s.store.ListSessions(ctx, SessionQuery{
		OwnerID:      requester.ID,
		StartsWithin: &TimeWindow{Start: dayStart, End: dayEnd},
	})
	if lerr != nil {
		err = mapRepoError(lerr)
		return
	}

	now := s.now()
	bookings = newBookingsByStatus()
	for _, session := range sessions {
		path, perr := s.linkPath(ctx, s.store, session.LinkID)
		if perr != nil {
			err = perr
			return
		}
		view := ProjectSession(session, path, loc, now)
		if hidden, collided := bookings.put(view); collided {
			s.loggerWith(ctx, "GetBookingsForUserOnDate", "requester_id", requester.ID, "date", date).
				DebugContext(ctx, "same-titled booking hidden",
					"title", view.Title,
					"status", string(view.Status),
					"hidden_session_id", hidden.ID,
					"shown_session_id", view.ID,
				)
		}
	}
	return
}

// GetUnavailableTimesForDate lists the blackout and booked ranges touching
// date in timezone, clipped to that day and sorted.
func (s *BookingService) GetUnavailableTimesForDate(ctx context.Context, date, timezone string) ([]TimePeriodView, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	vErr := &ValidationError{}
	loc, ok := resolveLocation(timezone, time.UTC, vErr)
	if !ok {
		return nil, vErr
	}
	return s.unavailableTimes(ctx, date, loc)
}

func (s *BookingService) unavailableTimes(ctx context.Context, date string, loc *time.Location) ([]TimePeriodView, error) {
	dayStart, dayEnd, err := scheduler.LocalDay(date, loc)
	if err != nil {
		return nil, fieldError("date", "enter a valid date (YYYY-MM-DD)")
	}
	window := &TimeWindow{Start: dayStart, End: dayEnd}

	sessions, err := s.store.ListSessions(ctx, SessionQuery{Overlapping: window, ExcludeCancelled: true})
	if err != nil {
		return nil, mapRepoError(err)
	}
	blackouts, err := s.store.ListBlackouts(ctx, BlackoutQuery{Overlapping: window})
	if err != nil {
		return nil, mapRepoError(err)
	}

	periods := make([]TimePeriodView, 0, len(sessions)+len(blackouts))
	for _, b := range blackouts {
		if b.Range().OverlapsWindow(dayStart, dayEnd) {
			periods = append(periods, clipToDay(b.Range(), dayStart, dayEnd, loc))
		}
	}
	for _, session := range sessions {
		if !session.Cancelled() && session.Range().OverlapsWindow(dayStart, dayEnd) {
			periods = append(periods, clipToDay(session.Range(), dayStart, dayEnd, loc))
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		if periods[i][0] != periods[j][0] {
			return periods[i][0] < periods[j][0]
		}
		return periods[i][1] < periods[j][1]
	})
	return periods, nil
}

// CalendarQuery assembles the calendar page for date. The requester's own
// active bookings are removed from the unavailable times because they are
// rendered separately.
func (s *BookingService) CalendarQuery(ctx context.Context, requester Requester, date string) (view CalendarView, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	logger := s.loggerWith(ctx, "CalendarQuery", "requester_id", requester.ID, "date", date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "calendar query failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	bookings, err := s.GetBookingsForUserOnDate(ctx, requester, date)
	if err != nil {
		return
	}
	unavailable, err := s.unavailableTimes(ctx, date, requester.Location())
	if err != nil {
		return
	}

	own := make(map[TimePeriodView]int)
	for _, bucket := range []map[string]SessionView{bookings.Pending, bookings.Missed, bookings.Held} {
		for _, booking := range bucket {
			own[TimePeriodView(booking.TimePeriod)]++
		}
	}
	filtered := make([]TimePeriodView, 0, len(unavailable))
	for _, period := range unavailable {
		if own[period] > 0 {
			own[period]--
			continue
		}
		filtered = append(filtered, period)
	}

	view = CalendarView{Date: date, UnavailableTimes: filtered, Bookings: bookings}
	return
}

// ListTodaysSessions returns the requester's approved sessions starting on
// today's local date, ordered by start. Missed ones carry StatusMissed.
func (s *BookingService) ListTodaysSessions(ctx context.Context, requester Requester) ([]SessionView, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	if err := Authorize(requester, ResourceSession, ActionRead); err != nil {
		return nil, err
	}

	loc := requester.Location()
	now := s.now()
	dayStart, dayEnd, err := scheduler.LocalDay(now.In(loc).Format(scheduler.DateLayout), loc)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, SessionQuery{
		OwnerID:          requester.ID,
		StartsWithin:     &TimeWindow{Start: dayStart, End: dayEnd},
		ExcludeCancelled: true,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		if !session.IsApproved() {
			continue
		}
		path, err := s.linkPath(ctx, s.store, session.LinkID)
		if err != nil {
			return nil, err
		}
		views = append(views, ProjectSession(session, path, loc, now))
	}
	return views, nil
}

// ResolveSessionLink returns the meeting URL behind identifier when its
// session is open for joining at the current time.
func (s *BookingService) ResolveSessionLink(ctx context.Context, identifier string) (target string, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResolveSessionLink", "identifier", identifier)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session link refused", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !links.ValidIdentifier(identifier) {
		err = ErrNotFound
		return
	}
	link, lerr := s.store.GetLinkByIdentifier(ctx, identifier)
	if lerr != nil {
		err = mapRepoError(lerr)
		return
	}
	session, serr := s.store.GetSessionByLinkID(ctx, link.ID)
	if serr != nil {
		err = mapRepoError(serr)
		return
	}

	now := s.now()
	grace := s.opts.linkGrace
	switch {
	case session.Cancelled():
		err = ErrLinkCancelled
	case session.IsMissed(now):
		err = ErrLinkMissed
	case session.HasHeld(), now.After(session.Range().End().Add(grace)):
		err = ErrLinkEnded
	case now.Before(session.Range().Start().Add(-grace)):
		err = ErrLinkNotStarted
	default:
		target = link.URL
	}
	return
}

func (s *BookingService) linkPath(ctx context.Context, reader BookingReader, linkID string) (string, error) {
	if linkID == "" {
		return "", nil
	}
	link, err := reader.GetLink(ctx, linkID)
	if err != nil {
		return "", mapRepoError(err)
	}
	return link.Path(), nil
}

func sessionEvent(eventType EventType, session scheduler.Session, actorID string, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       eventType,
		SessionID:  session.ID,
		OwnerID:    session.OwnerID,
		ActorID:    actorID,
		Start:      session.Range().Start(),
		End:        session.Range().End(),
		OccurredAt: now,
	}
}

func sessionTransitionEvents(before, after scheduler.Session, actorID string, now time.Time) []DomainEvent {
	var events []DomainEvent
	if !before.Range().Equal(after.Range()) {
		events = append(events, sessionEvent(EventSessionRescheduled, after, actorID, now))
	}
	if !before.IsApproved() && after.IsApproved() {
		events = append(events, sessionEvent(EventSessionApproved, after, actorID, now))
	}
	if !before.Cancelled() && after.Cancelled() {
		events = append(events, sessionEvent(EventSessionCancelled, after, actorID, now))
	}
	if !before.HasHeld() && after.HasHeld() {
		events = append(events, sessionEvent(EventSessionHeld, after, actorID, now))
	}
	return events
}

// resolveLocation loads an IANA timezone, falling back when name is empty.
func resolveLocation(name string, fallback *time.Location, vErr *ValidationError) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, true
		}
		return fallback, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		vErr.add("timezone", "unknown timezone")
		return nil, false
	}
	return loc, true
}

// parseLocalRange validates each part separately so errors name the field at fault.
func parseLocalRange(date, startClock, endClock string, loc *time.Location, vErr *ValidationError) (scheduler.TimeRange, bool) {
	ok := true
	if _, _, err := scheduler.LocalDay(date, loc); err != nil {
		vErr.add("date", "enter a valid date (YYYY-MM-DD)")
		ok = false
	}
	if _, _, err := scheduler.ParseClock(startClock); err != nil {
		vErr.add("start_time", "enter a valid time (HH:MM)")
		ok = false
	}
	if _, _, err := scheduler.ParseClock(endClock); err != nil {
		vErr.add("end_time", "enter a valid time (HH:MM)")
		ok = false
	}
	if !ok {
		return scheduler.TimeRange{}, false
	}

	r, err := scheduler.ParseLocalRange(date, startClock, endClock, loc)
	if err != nil {
		vErr.merge(sessionFieldError(err))
		return scheduler.TimeRange{}, false
	}
	return r, true
}

func sessionFieldError(err error) *ValidationError {
	switch {
	case errors.Is(err, scheduler.ErrTitleRequired):
		return fieldError("title", "title is required")
	case errors.Is(err, scheduler.ErrInvalidRange):
		return fieldError("end_time", "end time must be after start time")
	case errors.Is(err, scheduler.ErrSpansMidnight):
		return fieldError("end_time", "start and end must fall on the same day")
	case errors.Is(err, scheduler.ErrStartInPast):
		return fieldError("start_time", "start time must not be in the past")
	case errors.Is(err, scheduler.ErrSessionHeld):
		return fieldError("date", "a held session cannot be rescheduled")
	case errors.Is(err, scheduler.ErrSessionNotEnded):
		return fieldError("has_held", "a session cannot be marked held before it ends")
	case errors.Is(err, scheduler.ErrLinkRequired):
		return fieldError("has_held", "attach a meeting link before marking the session held")
	case errors.Is(err, scheduler.ErrSessionCancelled):
		return fieldError("has_held", "a cancelled session cannot be marked held")
	default:
		return fieldError("session", err.Error())
	}
}

func valueOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
