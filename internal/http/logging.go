package http

import (
	"context"
	"log/slog"

	"github.com/example/room-reservations/internal/application"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request scoped logger so request_id, method and
// path ride along with every handler log line.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "handler", handlerName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}

// logFailure records a failed service call. Rejections caused by the caller
// are warnings; store and unexpected failures are errors.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	kind := application.ErrorKind(err)
	level := slog.LevelWarn
	switch kind {
	case "store", "timeout", "unexpected":
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg, "error", err, "error_kind", kind)
}

// logBadRequest records a request rejected before reaching a service.
func logBadRequest(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []any{"error_kind", "bad_request"}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.WarnContext(ctx, msg, attrs...)
}
