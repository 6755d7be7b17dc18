package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{}

type requestIDKey struct{}

// RequestIDHeader is read from incoming calendar requests and echoed back.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// RequestID returns the caller supplied id when it is usable, otherwise a
// fresh random one. Ids are printable ASCII without spaces.
func RequestID(supplied string) string {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" || len(supplied) > maxRequestIDLength {
		return uuid.NewString()
	}
	for i := 0; i < len(supplied); i++ {
		if c := supplied[i]; c <= ' ' || c > '~' {
			return uuid.NewString()
		}
	}
	return supplied
}

// ContextWithRequestID tags the context with the id of the booking request
// being served.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
