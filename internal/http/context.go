package http

import (
	"context"
	"log/slog"

	"github.com/example/room-reservations/internal/logging"
)

type contextKey string

const (
	requestIDContextKey  contextKey = "request_id"
	resourceIDContextKey contextKey = "resource_id"
)

// ContextWithLogger returns a derived context carrying the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithRequestID stores the request identifier assigned by RequestLogger.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request identifier assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

// ContextWithResourceID injects the numeric identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, id)
}

// ResourceIDFromContext extracts the identifier stored by ContextWithResourceID.
func ResourceIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(int64)
	return id, ok
}
