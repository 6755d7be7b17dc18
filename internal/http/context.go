package http

import (
	"context"
	"log/slog"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/logging"
)

type contextKey string

const (
	requesterContextKey  contextKey = "requester"
	blackoutIDContextKey contextKey = "blackout_id"
)

// ContextWithRequester returns a derived context containing the authenticated requester.
func ContextWithRequester(ctx context.Context, requester application.Requester) context.Context {
	return context.WithValue(ctx, requesterContextKey, requester)
}

// RequesterFromContext extracts the authenticated requester from context if available.
func RequesterFromContext(ctx context.Context) (application.Requester, bool) {
	requester, ok := ctx.Value(requesterContextKey).(application.Requester)
	return requester, ok
}

// ContextWithBlackoutID injects the blackout identifier resolved from the request path.
func ContextWithBlackoutID(ctx context.Context, blackoutID string) context.Context {
	return context.WithValue(ctx, blackoutIDContextKey, blackoutID)
}

// BlackoutIDFromContext extracts a blackout identifier previously associated with the context.
func BlackoutIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(blackoutIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches the request scoped logger. Services read the same value.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
