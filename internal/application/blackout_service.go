package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// BlackoutService manages administrator blackout periods.
type BlackoutService struct {
	store       BookingStore
	idGenerator func() string
	now         func() time.Time
	opts        serviceOptions
}

// NewBlackoutService wires dependencies for blackout management.
func NewBlackoutService(store BookingStore, idGenerator func() string, now func() time.Time, opts ...ServiceOption) *BlackoutService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BlackoutService{
		store:       store,
		idGenerator: idGenerator,
		now:         now,
		opts:        buildOptions(opts),
	}
}

func (s *BlackoutService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.opts.logger, "BlackoutService", operation, attrs...)
}

// CreateBlackout stores a new blackout. Booked sessions it covers are kept
// and reported back as warnings.
func (s *BlackoutService) CreateBlackout(ctx context.Context, params BlackoutParams) (result BlackoutResult, err error) {
	if s == nil {
		err = fmt.Errorf("BlackoutService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	requester := params.Requester
	logger := s.loggerWith(ctx, "CreateBlackout", "requester_id", requester.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "blackout creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"blackout_id", result.Blackout.ID,
			"warnings", len(result.Warnings),
		).InfoContext(ctx, "blackout created")
	}()

	if err = Authorize(requester, ResourceBlackout, ActionCreate); err != nil {
		return
	}

	r, loc, verr := blackoutRange(params)
	if verr != nil {
		err = verr
		return
	}

	now := s.now()
	blackout, berr := scheduler.NewBlackout(s.idGenerator(), r, loc, requester.ID, now)
	if berr != nil {
		err = fieldError("time", berr.Error())
		return
	}

	var warnings []ConflictWarning
	contested := true
	err = commit(ctx, s.store, &contested, func(tx BookingTx) error {
		var err error
		warnings, err = checkBlackoutPlacement(ctx, tx, blackout)
		if err != nil {
			return err
		}
		return tx.InsertBlackout(ctx, blackout)
	})
	if err != nil {
		return
	}

	result = BlackoutResult{Blackout: blackout, Warnings: warnings}
	publishAll(ctx, s.opts.events, logger, blackoutEvent(EventBlackoutCreated, blackout, requester.ID, now))
	return
}

// UpdateBlackout moves an existing blackout, re-validating it against every
// other blackout.
func (s *BlackoutService) UpdateBlackout(ctx context.Context, params UpdateBlackoutParams) (result BlackoutResult, err error) {
	if s == nil {
		err = fmt.Errorf("BlackoutService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	requester := params.Requester
	logger := s.loggerWith(ctx, "UpdateBlackout",
		"requester_id", requester.ID,
		"blackout_id", params.BlackoutID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "blackout update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("warnings", len(result.Warnings)).InfoContext(ctx, "blackout updated")
	}()

	if err = Authorize(requester, ResourceBlackout, ActionUpdate); err != nil {
		return
	}
	if strings.TrimSpace(params.BlackoutID) == "" {
		err = fieldError("blackout_id", "blackout id is required")
		return
	}

	r, loc, verr := blackoutRange(params.BlackoutParams)
	if verr != nil {
		err = verr
		return
	}

	now := s.now()
	contested := true
	err = commit(ctx, s.store, &contested, func(tx BookingTx) error {
		current, err := tx.GetBlackout(ctx, params.BlackoutID)
		if err != nil {
			return err
		}
		next := current
		if err := next.Reschedule(r, loc, now); err != nil {
			return fieldError("time", err.Error())
		}
		next.Version = current.Version + 1

		warnings, err := checkBlackoutPlacement(ctx, tx, next)
		if err != nil {
			return err
		}
		if err := tx.UpdateBlackout(ctx, next, current.Version); err != nil {
			return err
		}
		result = BlackoutResult{Blackout: next, Warnings: warnings}
		return nil
	})
	if err != nil {
		return
	}

	publishAll(ctx, s.opts.events, logger, blackoutEvent(EventBlackoutUpdated, result.Blackout, requester.ID, now))
	return
}

// DeleteBlackout removes a blackout, freeing its range for bookings.
func (s *BlackoutService) DeleteBlackout(ctx context.Context, requester Requester, id string) (err error) {
	if s == nil {
		return fmt.Errorf("BlackoutService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("booking store not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBlackout", "requester_id", requester.ID, "blackout_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "blackout deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "blackout deleted")
	}()

	if err = Authorize(requester, ResourceBlackout, ActionDelete); err != nil {
		return
	}

	var removed scheduler.Blackout
	err = commit(ctx, s.store, nil, func(tx BookingTx) error {
		current, err := tx.GetBlackout(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteBlackout(ctx, id); err != nil {
			return err
		}
		removed = current
		return nil
	})
	if err != nil {
		return
	}

	publishAll(ctx, s.opts.events, logger, blackoutEvent(EventBlackoutDeleted, removed, requester.ID, s.now()))
	return
}

// ListBlackoutsForDate returns blackouts touching date in the requester's timezone.
func (s *BlackoutService) ListBlackoutsForDate(ctx context.Context, requester Requester, date string) ([]BlackoutView, error) {
	if s == nil {
		return nil, fmt.Errorf("BlackoutService is nil")
	}
	if s.store == nil {
		return nil, fmt.Errorf("booking store not configured")
	}
	if err := Authorize(requester, ResourceBlackout, ActionRead); err != nil {
		return nil, err
	}

	loc := requester.Location()
	dayStart, dayEnd, err := scheduler.LocalDay(date, loc)
	if err != nil {
		return nil, fieldError("date", "enter a valid date (YYYY-MM-DD)")
	}
	blackouts, err := s.store.ListBlackouts(ctx, BlackoutQuery{
		Overlapping: &TimeWindow{Start: dayStart, End: dayEnd},
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	views := make([]BlackoutView, 0, len(blackouts))
	for _, b := range blackouts {
		views = append(views, ProjectBlackout(b, loc))
	}
	return views, nil
}

// checkBlackoutPlacement rejects overlap with another blackout and lists the
// booked sessions the blackout covers.
func checkBlackoutPlacement(ctx context.Context, tx BookingReader, blackout scheduler.Blackout) ([]ConflictWarning, error) {
	index := NewAvailabilityIndex(tx)
	others, err := index.FindOverlappingBlackouts(ctx, blackout.Range(), blackout.ID)
	if err != nil {
		return nil, err
	}
	if len(others) > 0 {
		return nil, fmt.Errorf("%w: overlaps blackout period %s", ErrSlotUnavailable, others[0].Range())
	}

	sessions, err := index.FindOverlappingSessions(ctx, blackout.Range())
	if err != nil {
		return nil, err
	}
	warnings := make([]ConflictWarning, 0, len(sessions))
	for _, session := range sessions {
		warnings = append(warnings, ConflictWarning{
			SessionID: session.ID,
			Start:     session.Range().Start(),
			End:       session.Range().End(),
		})
	}
	return warnings, nil
}

func blackoutRange(params BlackoutParams) (scheduler.TimeRange, *time.Location, error) {
	vErr := &ValidationError{}
	loc, ok := resolveLocation(params.Timezone, params.Requester.Location(), vErr)
	if !ok {
		return scheduler.TimeRange{}, nil, vErr
	}
	r, ok := parseLocalRange(params.Date, params.StartTime, params.EndTime, loc, vErr)
	if !ok {
		return scheduler.TimeRange{}, nil, vErr
	}
	return r, loc, nil
}

func blackoutEvent(eventType EventType, blackout scheduler.Blackout, actorID string, now time.Time) DomainEvent {
	return DomainEvent{
		Type:       eventType,
		BlackoutID: blackout.ID,
		ActorID:    actorID,
		Start:      blackout.Range().Start(),
		End:        blackout.Range().End(),
		OccurredAt: now,
	}
}
