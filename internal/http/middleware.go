package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/meeting-calendar/internal/application"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Requester, error)
}

// RequireSession resolves the login token into a Requester or answers 401.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
				return
			}

			requester, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				status, body := describeServiceError(err)
				switch status {
				case http.StatusInternalServerError:
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "session validation failed", "error", err)
				case http.StatusForbidden:
				default:
					status = http.StatusUnauthorized
					body = errorResponse{ErrorCode: "AUTH_SESSION_EXPIRED", Message: "the login session is no longer valid; sign in again"}
				}
				responder.writeJSON(r.Context(), w, status, body)
				return
			}

			ctx := ContextWithRequester(r.Context(), requester)
			if logger := LoggerFromContext(ctx); logger != nil {
				ctx = ContextWithLogger(ctx, logger.With("requester_id", requester.ID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
