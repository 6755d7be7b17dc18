package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meeting-calendar/internal/logging"
	"github.com/example/meeting-calendar/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	pairs := []any{"service", serviceName}
	if logger == nil {
		logger = base
		if id := logging.RequestIDFromContext(ctx); id != "" {
			pairs = append(pairs, "request_id", id)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrLinkCancelled), errors.Is(err, ErrLinkMissed),
		errors.Is(err, ErrLinkEnded), errors.Is(err, ErrLinkNotStarted):
		return "link_unavailable"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

// mapRepoError translates persistence sentinels into service errors. Overlap
// and version failures at write time both mean another writer won a race.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrOverlap),
		errors.Is(err, persistence.ErrVersionConflict),
		errors.Is(err, persistence.ErrBusy):
		return errors.Join(ErrConcurrencyConflict, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("session", "the record violates a storage constraint")
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("owner", "related records are missing")
	}
	return err
}
