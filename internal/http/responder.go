package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-calendar/internal/application"
)

var (
	errBadRequestBody      = errors.New("the request body is not valid JSON")
	errInvalidBlackoutID   = errors.New("a blackout id is required")
	errMissingSessionToken = errors.New("a login token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors onto status codes and stable error codes.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := describeServiceError(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

func describeServiceError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "unknown error"}
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "the request contains invalid fields",
			Errors:    cloneFieldErrors(vErr.FieldErrors),
		}
	case errors.Is(err, application.ErrSlotUnavailable):
		return http.StatusBadRequest, errorResponse{
			ErrorCode: "SLOT_UNAVAILABLE",
			Message:   "the requested time is not available",
			Errors:    map[string]string{"slot": slotMessage(err)},
		}
	case errors.Is(err, application.ErrConcurrencyConflict):
		return http.StatusConflict, errorResponse{
			ErrorCode: "CONCURRENT_MODIFICATION",
			Message:   "the record was changed by another request; reload and try again",
		}
	case errors.Is(err, application.ErrLinkCancelled):
		return http.StatusBadRequest, errorResponse{ErrorCode: "SESSION_CANCELLED", Message: "this session was cancelled"}
	case errors.Is(err, application.ErrLinkMissed):
		return http.StatusBadRequest, errorResponse{ErrorCode: "SESSION_MISSED", Message: "this session was missed"}
	case errors.Is(err, application.ErrLinkEnded):
		return http.StatusBadRequest, errorResponse{ErrorCode: "SESSION_ENDED", Message: "this session has ended"}
	case errors.Is(err, application.ErrLinkNotStarted):
		return http.StatusBadRequest, errorResponse{ErrorCode: "SESSION_NOT_STARTED", Message: "this session has not started yet"}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: "email or password is incorrect"}
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_EXPIRED", Message: "the login session is no longer valid; sign in again"}
	case errors.Is(err, application.ErrAccountDisabled):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_ACCOUNT_DISABLED", Message: "this account is disabled"}
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: "you are not allowed to perform this action"}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "the requested resource was not found"}
	default:
		return http.StatusInternalServerError, errorResponse{ErrorCode: "INTERNAL", Message: "an internal error occurred"}
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// slotMessage strips the sentinel prefix so only the conflicting range remains.
func slotMessage(err error) string {
	msg := err.Error()
	prefix := application.ErrSlotUnavailable.Error() + ": "
	if idx := strings.Index(msg, prefix); idx >= 0 {
		if detail := strings.TrimSpace(msg[idx+len(prefix):]); detail != "" {
			return detail
		}
	}
	return "the requested time overlaps another booking or a blackout"
}

func cloneFieldErrors(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for field, msg := range fields {
		out[field] = msg
	}
	return out
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
